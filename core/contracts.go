package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// VerificationStore is the record repository collaborator. Implementations
// must back CreateIfAbsent with a uniqueness constraint on the source order
// id so that racing redeliveries collapse to a single record.
type VerificationStore interface {
	// FindBySourceOrderID returns the record and true when one exists.
	// Absence is not an error.
	FindBySourceOrderID(ctx context.Context, sourceOrderID string) (VerificationRecord, bool, error)
	// CreateIfAbsent persists a new PENDING record. created=false with a
	// nil error means another writer won the race; the returned record is
	// the existing one.
	CreateIfAbsent(ctx context.Context, in CreateVerificationInput) (VerificationRecord, bool, error)
	// UpdateStatus applies an external actor's status transition.
	UpdateStatus(ctx context.Context, sourceOrderID string, status VerificationStatus) (VerificationRecord, error)
	// PruneTerminal deletes terminal-status records last touched before the
	// cutoff and reports how many were removed.
	PruneTerminal(ctx context.Context, before time.Time) (int, error)
}

// NotificationSender delivers a payload to the downstream dispatcher.
// Delivery is best effort and at most once; callers isolate failures.
type NotificationSender interface {
	Send(ctx context.Context, payload NotificationPayload) error
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type JobExecutionMessage struct {
	JobID          string
	ScriptPath     string
	Parameters     map[string]any
	IdempotencyKey string
	DedupPolicy    string
}

type JobNackOptions struct {
	Delay      time.Duration
	Requeue    bool
	DeadLetter bool
	Reason     string
}

type JobEnqueuer interface {
	Enqueue(ctx context.Context, msg *JobExecutionMessage) error
}

type JobDelivery interface {
	Message() *JobExecutionMessage
	Ack(ctx context.Context) error
	Nack(ctx context.Context, opts JobNackOptions) error
}

type JobDequeuer interface {
	Dequeue(ctx context.Context) (JobDelivery, error)
}
