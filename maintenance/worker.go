package maintenance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-order-verify/adapters/gojob"
	"github.com/goliatone/go-order-verify/core"
)

const defaultRetention = 90 * 24 * time.Hour

// Worker drains prune jobs from the queue and sweeps terminal verification
// records older than the retention window. It never touches PENDING rows:
// an order still awaiting a reply is not garbage regardless of age.
type Worker struct {
	Dequeuer  core.JobDequeuer
	Store     core.VerificationStore
	Retention time.Duration
	Logger    core.Logger
	Now       func() time.Time
}

func NewWorker(dequeuer core.JobDequeuer, store core.VerificationStore, retention time.Duration) *Worker {
	if retention <= 0 {
		retention = defaultRetention
	}
	return &Worker{
		Dequeuer:  dequeuer,
		Store:     store,
		Retention: retention,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Run consumes deliveries until the context is canceled or the dequeuer
// closes.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil || w.Dequeuer == nil || w.Store == nil {
		return fmt.Errorf("maintenance: worker requires a dequeuer and a store")
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		delivery, err := w.Dequeuer.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return fmt.Errorf("maintenance: dequeue: %w", err)
		}
		if delivery == nil {
			continue
		}
		w.handle(ctx, delivery)
	}
}

func (w *Worker) handle(ctx context.Context, delivery core.JobDelivery) {
	msg := delivery.Message()
	if msg == nil || strings.TrimSpace(msg.JobID) != gojob.JobIDPruneVerifications {
		_ = delivery.Nack(ctx, core.JobNackOptions{
			DeadLetter: true,
			Reason:     "maintenance: unexpected job id",
		})
		return
	}

	cutoff := w.cutoff(msg)
	pruned, err := w.Store.PruneTerminal(ctx, cutoff)
	if err != nil {
		if w.Logger != nil {
			w.Logger.Error("prune sweep failed", "error", err.Error())
		}
		_ = delivery.Nack(ctx, core.JobNackOptions{
			Requeue: true,
			Delay:   time.Minute,
			Reason:  err.Error(),
		})
		return
	}
	if w.Logger != nil {
		w.Logger.Info("prune sweep completed",
			"pruned", pruned,
			"cutoff", cutoff.Format(time.RFC3339),
		)
	}
	_ = delivery.Ack(ctx)
}

// cutoff honors an explicit cutoff parameter when present, otherwise the
// retention window counted back from now.
func (w *Worker) cutoff(msg *core.JobExecutionMessage) time.Time {
	if msg != nil {
		if raw, ok := msg.Parameters["cutoff"].(string); ok {
			if parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(raw)); err == nil {
				return parsed.UTC()
			}
		}
	}
	return w.now().Add(-w.retention())
}

func (w *Worker) retention() time.Duration {
	if w != nil && w.Retention > 0 {
		return w.Retention
	}
	return defaultRetention
}

func (w *Worker) now() time.Time {
	if w != nil && w.Now != nil {
		return w.Now().UTC()
	}
	return time.Now().UTC()
}

// SchedulePrune enqueues one retention sweep. The idempotency key collapses
// duplicate schedules within the same hour.
func SchedulePrune(ctx context.Context, enqueuer core.JobEnqueuer, cutoff time.Time) error {
	if enqueuer == nil {
		return fmt.Errorf("maintenance: enqueuer is required")
	}
	msg := &core.JobExecutionMessage{
		JobID:          gojob.JobIDPruneVerifications,
		Parameters:     map[string]any{},
		IdempotencyKey: gojob.JobIDPruneVerifications + "::" + time.Now().UTC().Format("2006010215"),
	}
	if !cutoff.IsZero() {
		msg.Parameters["cutoff"] = cutoff.UTC().Format(time.RFC3339)
	}
	return enqueuer.Enqueue(ctx, msg)
}
