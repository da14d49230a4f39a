package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-order-verify/core"
)

// VerificationStore persists verification records in SQL. Idempotency rests
// on the unique index over source_order_id: CreateIfAbsent inserts blind and
// treats a unique violation as losing the race, then returns the winner's
// row.
type VerificationStore struct {
	db   *bun.DB
	repo repository.Repository[*verificationRecord]
}

func NewVerificationStore(db *bun.DB) (*VerificationStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*verificationRecord](db, verificationHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid verification repository wiring: %w", err)
		}
	}
	return &VerificationStore{
		db:   db,
		repo: repo,
	}, nil
}

func (s *VerificationStore) FindBySourceOrderID(
	ctx context.Context,
	sourceOrderID string,
) (core.VerificationRecord, bool, error) {
	if s == nil || s.db == nil {
		return core.VerificationRecord{}, false, fmt.Errorf("sqlstore: verification store is not configured")
	}
	sourceOrderID = strings.TrimSpace(sourceOrderID)
	if sourceOrderID == "" {
		return core.VerificationRecord{}, false, fmt.Errorf("sqlstore: source order id is required")
	}
	record := &verificationRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.source_order_id = ?", sourceOrderID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.VerificationRecord{}, false, nil
		}
		return core.VerificationRecord{}, false, err
	}
	return record.toDomain(), true, nil
}

func (s *VerificationStore) CreateIfAbsent(
	ctx context.Context,
	in core.CreateVerificationInput,
) (core.VerificationRecord, bool, error) {
	if s == nil || s.db == nil {
		return core.VerificationRecord{}, false, fmt.Errorf("sqlstore: verification store is not configured")
	}
	if err := in.Validate(); err != nil {
		return core.VerificationRecord{}, false, err
	}

	now := time.Now().UTC()
	record := newVerificationRecord(in, uuid.NewString(), now)
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		if !isUniqueViolation(err) {
			return core.VerificationRecord{}, false, err
		}
		existing, found, lookupErr := s.FindBySourceOrderID(ctx, in.SourceOrderID)
		if lookupErr != nil {
			return core.VerificationRecord{}, false, lookupErr
		}
		if !found {
			return core.VerificationRecord{}, false, fmt.Errorf(
				"sqlstore: unique violation for source order %q but no row found",
				strings.TrimSpace(in.SourceOrderID),
			)
		}
		return existing, false, nil
	}
	return record.toDomain(), true, nil
}

func (s *VerificationStore) UpdateStatus(
	ctx context.Context,
	sourceOrderID string,
	status core.VerificationStatus,
) (core.VerificationRecord, error) {
	if s == nil || s.db == nil {
		return core.VerificationRecord{}, fmt.Errorf("sqlstore: verification store is not configured")
	}
	sourceOrderID = strings.TrimSpace(sourceOrderID)
	if sourceOrderID == "" {
		return core.VerificationRecord{}, fmt.Errorf("sqlstore: source order id is required")
	}
	if _, err := core.ParseVerificationStatus(string(status)); err != nil {
		return core.VerificationRecord{}, err
	}

	now := time.Now().UTC()
	result, err := s.db.NewUpdate().
		Model((*verificationRecord)(nil)).
		Set("status = ?", string(status)).
		Set("updated_at = ?", now).
		Where("source_order_id = ?", sourceOrderID).
		Exec(ctx)
	if err != nil {
		return core.VerificationRecord{}, err
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return core.VerificationRecord{}, fmt.Errorf("%w: source order %q", core.ErrVerificationNotFound, sourceOrderID)
	}

	updated, found, err := s.FindBySourceOrderID(ctx, sourceOrderID)
	if err != nil {
		return core.VerificationRecord{}, err
	}
	if !found {
		return core.VerificationRecord{}, fmt.Errorf("%w: source order %q", core.ErrVerificationNotFound, sourceOrderID)
	}
	return updated, nil
}

func (s *VerificationStore) PruneTerminal(ctx context.Context, before time.Time) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: verification store is not configured")
	}
	if before.IsZero() {
		return 0, fmt.Errorf("sqlstore: prune cutoff is required")
	}
	terminal := []string{
		string(core.VerificationStatusApproved),
		string(core.VerificationStatusRejected),
		string(core.VerificationStatusNoReply),
	}
	result, err := s.db.NewDelete().
		Model((*verificationRecord)(nil)).
		Where("status IN (?)", bun.In(terminal)).
		Where("updated_at < ?", before.UTC()).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func isUniqueViolation(err error) bool {
	message := strings.ToLower(strings.TrimSpace(err.Error()))
	return strings.Contains(message, "unique constraint failed") ||
		strings.Contains(message, "duplicate key value violates unique constraint")
}
