package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ErrorUnauthorized      = "ORDERS_UNAUTHORIZED"
	ErrorMalformedPayload  = "ORDERS_MALFORMED_PAYLOAD"
	ErrorBadInput          = "ORDERS_BAD_INPUT"
	ErrorNotFound          = "ORDERS_NOT_FOUND"
	ErrorDuplicate         = "ORDERS_DUPLICATE"
	ErrorPersistenceFailed = "ORDERS_PERSISTENCE_FAILED"
	ErrorDispatchFailed    = "ORDERS_DISPATCH_FAILED"
	ErrorInternal          = "ORDERS_INTERNAL"
)

// MapError normalizes any error into a go-errors envelope carrying an HTTP
// status code and a service text code.
func MapError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "signature"), strings.Contains(msg, "unauthorized"):
		return newEnvelopeError(err.Error(), goerrors.CategoryAuth, ErrorUnauthorized)
	case strings.Contains(msg, "decode"), strings.Contains(msg, "unmarshal"), strings.Contains(msg, "malformed"):
		return newEnvelopeError(err.Error(), goerrors.CategoryOperation, ErrorMalformedPayload)
	case strings.Contains(msg, "already exists"), strings.Contains(msg, "duplicate"):
		return newEnvelopeError(err.Error(), goerrors.CategoryConflict, ErrorDuplicate)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return newEnvelopeError(err.Error(), goerrors.CategoryBadInput, ErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureErrorEnvelope(mapped)
}

func newEnvelopeError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = httpStatusFor(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ErrorBadInput
	case goerrors.CategoryNotFound:
		return ErrorNotFound
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return ErrorUnauthorized
	case goerrors.CategoryConflict:
		return ErrorDuplicate
	case goerrors.CategoryExternal:
		return ErrorDispatchFailed
	case goerrors.CategoryOperation:
		return ErrorPersistenceFailed
	default:
		return ErrorInternal
	}
}

func httpStatusFor(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
