package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-order-verify/core"
)

// IngestService is the webhook processing surface commands dispatch into.
type IngestService interface {
	Process(ctx context.Context, req core.InboundRequest) (core.InboundResult, error)
}

type IngestOrderCommand struct {
	service IngestService
}

func NewIngestOrderCommand(service IngestService) *IngestOrderCommand {
	return &IngestOrderCommand{service: service}
}

func (c *IngestOrderCommand) Execute(ctx context.Context, msg IngestOrderMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: ingest service is required")
	}
	if err := msg.Validate(); err != nil {
		return commandWrapValidation(err, "command: invalid ingest message")
	}
	out, err := c.service.Process(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type UpdateStatusCommand struct {
	store core.VerificationStore
}

func NewUpdateStatusCommand(store core.VerificationStore) *UpdateStatusCommand {
	return &UpdateStatusCommand{store: store}
}

func (c *UpdateStatusCommand) Execute(ctx context.Context, msg UpdateStatusMessage) error {
	if c == nil || c.store == nil {
		return commandDependencyError("command: verification store is required")
	}
	if err := msg.Validate(); err != nil {
		return commandWrapValidation(err, "command: invalid status message")
	}
	status, err := core.ParseVerificationStatus(msg.Status)
	if err != nil {
		return commandWrapValidation(err, "command: invalid status message")
	}
	out, err := c.store.UpdateStatus(ctx, msg.SourceOrderID, status)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type PruneVerificationsCommand struct {
	store core.VerificationStore
}

func NewPruneVerificationsCommand(store core.VerificationStore) *PruneVerificationsCommand {
	return &PruneVerificationsCommand{store: store}
}

func (c *PruneVerificationsCommand) Execute(ctx context.Context, msg PruneVerificationsMessage) error {
	if c == nil || c.store == nil {
		return commandDependencyError("command: verification store is required")
	}
	if err := msg.Validate(); err != nil {
		return commandWrapValidation(err, "command: invalid prune message")
	}
	pruned, err := c.store.PruneTerminal(ctx, msg.Before)
	if err != nil {
		return err
	}
	storeResult(ctx, pruned)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
