package notifier

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-order-verify/core"
)

func notifierError(message string, category goerrors.Category, metadata map[string]any) error {
	err := goerrors.New(message, category).
		WithCode(http.StatusBadGateway).
		WithTextCode(core.ErrorDispatchFailed)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func notifierWrapError(source error, category goerrors.Category, message string, metadata map[string]any) error {
	if source == nil {
		return notifierError(message, category, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(http.StatusBadGateway).
		WithTextCode(core.ErrorDispatchFailed)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}
