package webhooks

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-order-verify/core"
	"github.com/goliatone/go-order-verify/shopify"
)

// Outcome labels for the terminal states of a processed request.
const (
	OutcomeIgnored      = "ignored"
	OutcomeNoPhone      = "no_phone"
	OutcomeDeduped      = "deduped"
	OutcomeOptedOut     = "opted_out"
	OutcomeNotified     = "notified"
	OutcomeNotifyFailed = "notify_failed"
)

// Pipeline orchestrates webhook ingestion: authenticate, parse, extract,
// deduplicate, persist, gate, dispatch. Each request is an independent unit
// of work; the store's uniqueness constraint on the source order id is the
// only cross-request coordination point.
type Pipeline struct {
	Verifier Verifier
	Store    core.VerificationStore
	Sender   core.NotificationSender
	// CountryCode feeds the phone normalization heuristic.
	CountryCode string
	Logger      core.Logger
	Metrics     core.MetricsRecorder
	Now         func() time.Time
}

func NewPipeline(
	verifier Verifier,
	store core.VerificationStore,
	sender core.NotificationSender,
	countryCode string,
) *Pipeline {
	return &Pipeline{
		Verifier:    verifier,
		Store:       store,
		Sender:      sender,
		CountryCode: strings.TrimSpace(countryCode),
		Metrics:     core.NopMetricsRecorder{},
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Process runs the sequential ingestion contract. The result carries the
// response the source platform should see; a non-nil error always pairs
// with a rejected or faulted result. Once a record has been durably
// created, the result is success no matter what dispatch does.
func (p *Pipeline) Process(ctx context.Context, req core.InboundRequest) (core.InboundResult, error) {
	if p == nil || p.Store == nil {
		return core.InboundResult{}, webhookError(
			"webhooks: pipeline requires a verification store",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			core.ErrorInternal,
			nil,
		)
	}
	startedAt := p.now()

	if p.Verifier != nil {
		if err := p.Verifier.Verify(ctx, req); err != nil {
			p.observe(ctx, startedAt, "rejected", map[string]any{"error": err.Error()})
			return core.InboundResult{
					Accepted:   false,
					StatusCode: http.StatusUnauthorized,
					Metadata:   map[string]any{"rejected": true},
				}, webhookWrapError(
					err,
					goerrors.CategoryAuth,
					"webhooks: signature verification failed",
					http.StatusUnauthorized,
					core.ErrorUnauthorized,
					nil,
				)
		}
	}

	order, err := shopify.ParseOrder(req.Body)
	if err != nil {
		p.observe(ctx, startedAt, "malformed", map[string]any{"error": err.Error()})
		return core.InboundResult{
				Accepted:   false,
				StatusCode: http.StatusInternalServerError,
			}, webhookWrapError(
				err,
				goerrors.CategoryOperation,
				"webhooks: malformed webhook payload",
				http.StatusInternalServerError,
				core.ErrorMalformedPayload,
				nil,
			)
	}

	if !order.IsOrderEvent() {
		return p.acknowledge(ctx, startedAt, OutcomeIgnored, ""), nil
	}
	sourceOrderID := order.SourceOrderID()

	rawPhone, hasPhone := shopify.ExtractPhone(order)
	if !hasPhone {
		// Deliberate policy: many valid orders carry no phone at all.
		return p.acknowledge(ctx, startedAt, OutcomeNoPhone, sourceOrderID), nil
	}
	phone, ok := shopify.NormalizePhone(rawPhone, p.CountryCode)
	if !ok {
		return p.acknowledge(ctx, startedAt, OutcomeNoPhone, sourceOrderID), nil
	}

	if _, found, err := p.Store.FindBySourceOrderID(ctx, sourceOrderID); err != nil {
		return p.persistenceFault(ctx, startedAt, sourceOrderID, "lookup verification record", err)
	} else if found {
		return p.acknowledge(ctx, startedAt, OutcomeDeduped, sourceOrderID), nil
	}

	record, created, err := p.Store.CreateIfAbsent(ctx, shopify.BuildVerificationInput(order, phone))
	if err != nil {
		return p.persistenceFault(ctx, startedAt, sourceOrderID, "create verification record", err)
	}
	if !created {
		// Lost the insert race against a concurrent redelivery; the winner
		// owns the record and any notification.
		return p.acknowledge(ctx, startedAt, OutcomeDeduped, sourceOrderID), nil
	}

	if !shopify.HasNotificationOptIn(order) {
		return p.acknowledge(ctx, startedAt, OutcomeOptedOut, sourceOrderID), nil
	}

	if p.Sender != nil {
		if err := p.Sender.Send(ctx, core.NotificationPayloadFromRecord(record)); err != nil {
			// Dispatch failure is isolated: the record is durable and the
			// platform must not retry, so the response stays success.
			p.logError(ctx, "notification dispatch failed", map[string]any{
				"source_order_id": sourceOrderID,
				"error":           err.Error(),
			})
			return p.acknowledge(ctx, startedAt, OutcomeNotifyFailed, sourceOrderID), nil
		}
	}
	return p.acknowledge(ctx, startedAt, OutcomeNotified, sourceOrderID), nil
}

func (p *Pipeline) acknowledge(
	ctx context.Context,
	startedAt time.Time,
	outcome string,
	sourceOrderID string,
) core.InboundResult {
	metadata := map[string]any{"outcome": outcome}
	if sourceOrderID != "" {
		metadata["source_order_id"] = sourceOrderID
	}
	p.observe(ctx, startedAt, outcome, metadata)
	return core.InboundResult{
		Accepted:   true,
		StatusCode: http.StatusOK,
		Metadata:   metadata,
	}
}

func (p *Pipeline) persistenceFault(
	ctx context.Context,
	startedAt time.Time,
	sourceOrderID string,
	operation string,
	err error,
) (core.InboundResult, error) {
	p.observe(ctx, startedAt, "persistence_failed", map[string]any{
		"source_order_id": sourceOrderID,
		"error":           err.Error(),
	})
	return core.InboundResult{
			Accepted:   false,
			StatusCode: http.StatusInternalServerError,
		}, webhookWrapError(
			err,
			goerrors.CategoryOperation,
			fmt.Sprintf("webhooks: %s", operation),
			http.StatusInternalServerError,
			core.ErrorPersistenceFailed,
			map[string]any{"source_order_id": sourceOrderID},
		)
}

func (p *Pipeline) observe(ctx context.Context, startedAt time.Time, outcome string, fields map[string]any) {
	duration := p.now().Sub(startedAt)
	if p.Metrics != nil {
		tags := map[string]string{"outcome": outcome}
		p.Metrics.IncCounter(ctx, "orderverify.ingest.total", 1, tags)
		p.Metrics.ObserveHistogram(ctx, "orderverify.ingest.duration_ms", float64(duration.Milliseconds()), tags)
	}
	logFields := map[string]any{"outcome": outcome, "duration_ms": duration.Milliseconds()}
	for key, value := range fields {
		logFields[key] = value
	}
	switch outcome {
	case "rejected", "malformed", "persistence_failed", OutcomeNotifyFailed:
		p.logError(ctx, "webhook processed", logFields)
	default:
		p.logInfo(ctx, "webhook processed", logFields)
	}
}

func (p *Pipeline) logInfo(ctx context.Context, message string, fields map[string]any) {
	p.log(ctx, "info", message, fields)
}

func (p *Pipeline) logError(ctx context.Context, message string, fields map[string]any) {
	p.log(ctx, "error", message, fields)
}

func (p *Pipeline) log(ctx context.Context, level string, message string, fields map[string]any) {
	if p == nil || p.Logger == nil {
		return
	}
	logger := p.Logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	if fieldsLogger, ok := logger.(core.FieldsLogger); ok {
		logger = fieldsLogger.WithFields(fields)
	}
	args := flattenFields(fields)
	switch level {
	case "error":
		logger.Error(message, args...)
	default:
		logger.Info(message, args...)
	}
}

func (p *Pipeline) now() time.Time {
	if p != nil && p.Now != nil {
		return p.Now().UTC()
	}
	return time.Now().UTC()
}

func flattenFields(fields map[string]any) []any {
	if len(fields) == 0 {
		return nil
	}
	args := make([]any, 0, len(fields)*2)
	for key, value := range fields {
		args = append(args, key, value)
	}
	return args
}
