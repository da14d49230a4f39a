package command

import (
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-order-verify/core"
)

const (
	TypeIngestOrder        = "orderverify.command.order.ingest"
	TypeUpdateStatus       = "orderverify.command.verification.update_status"
	TypePruneVerifications = "orderverify.command.verification.prune"
)

type IngestOrderMessage struct {
	Request core.InboundRequest
}

func (IngestOrderMessage) Type() string { return TypeIngestOrder }

func (m IngestOrderMessage) Validate() error {
	if len(m.Request.Body) == 0 {
		return fmt.Errorf("command: request body is required")
	}
	return nil
}

type UpdateStatusMessage struct {
	SourceOrderID string
	Status        string
}

func (UpdateStatusMessage) Type() string { return TypeUpdateStatus }

func (m UpdateStatusMessage) Validate() error {
	if strings.TrimSpace(m.SourceOrderID) == "" {
		return fmt.Errorf("command: source order id is required")
	}
	if _, err := core.ParseVerificationStatus(m.Status); err != nil {
		return fmt.Errorf("command: %w", err)
	}
	return nil
}

type PruneVerificationsMessage struct {
	Before time.Time
}

func (PruneVerificationsMessage) Type() string { return TypePruneVerifications }

func (m PruneVerificationsMessage) Validate() error {
	if m.Before.IsZero() {
		return fmt.Errorf("command: prune cutoff is required")
	}
	return nil
}
