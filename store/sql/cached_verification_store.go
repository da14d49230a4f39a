package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	repositorycache "github.com/goliatone/go-repository-cache/cache"

	"github.com/goliatone/go-order-verify/core"
)

const verificationCacheKeyPrefix = "go-order-verify::verification::v1"

var errVerificationCacheMiss = errors.New("sqlstore: verification cache miss")

// CachedVerificationStore layers a read-through cache over the dedup lookup.
// Only positive lookups are cached; the unique constraint in the base store
// stays the correctness backstop, so a stale miss costs one insert attempt,
// never a duplicate record.
type CachedVerificationStore struct {
	base  core.VerificationStore
	cache repositorycache.CacheService
}

func NewCachedVerificationStore(
	base core.VerificationStore,
	cacheService repositorycache.CacheService,
) (*CachedVerificationStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base verification store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: verification cache service is required")
	}
	return &CachedVerificationStore{base: base, cache: cacheService}, nil
}

// VerificationCacheKey returns the deterministic cache key for a source
// order id, with the id URL-path escaped.
func VerificationCacheKey(sourceOrderID string) (string, error) {
	sourceOrderID = strings.TrimSpace(sourceOrderID)
	if sourceOrderID == "" {
		return "", fmt.Errorf("sqlstore: source order id is required")
	}
	return verificationCacheKeyPrefix + "::" + url.PathEscape(sourceOrderID), nil
}

func (s *CachedVerificationStore) FindBySourceOrderID(
	ctx context.Context,
	sourceOrderID string,
) (core.VerificationRecord, bool, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.VerificationRecord{}, false, fmt.Errorf("sqlstore: cached verification store is not configured")
	}
	cacheKey, err := VerificationCacheKey(sourceOrderID)
	if err != nil {
		return core.VerificationRecord{}, false, err
	}

	record, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (core.VerificationRecord, error) {
		fetched, found, fetchErr := s.base.FindBySourceOrderID(ctx, sourceOrderID)
		if fetchErr != nil {
			return core.VerificationRecord{}, fetchErr
		}
		if !found {
			return core.VerificationRecord{}, errVerificationCacheMiss
		}
		return fetched, nil
	})
	if err != nil {
		if errors.Is(err, errVerificationCacheMiss) {
			return core.VerificationRecord{}, false, nil
		}
		return core.VerificationRecord{}, false, err
	}
	return record, true, nil
}

func (s *CachedVerificationStore) CreateIfAbsent(
	ctx context.Context,
	in core.CreateVerificationInput,
) (core.VerificationRecord, bool, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.VerificationRecord{}, false, fmt.Errorf("sqlstore: cached verification store is not configured")
	}
	record, created, err := s.base.CreateIfAbsent(ctx, in)
	if err != nil {
		return core.VerificationRecord{}, false, err
	}
	if invalidateErr := s.invalidate(ctx, record.SourceOrderID); invalidateErr != nil {
		return core.VerificationRecord{}, false, invalidateErr
	}
	return record, created, nil
}

func (s *CachedVerificationStore) UpdateStatus(
	ctx context.Context,
	sourceOrderID string,
	status core.VerificationStatus,
) (core.VerificationRecord, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.VerificationRecord{}, fmt.Errorf("sqlstore: cached verification store is not configured")
	}
	record, err := s.base.UpdateStatus(ctx, sourceOrderID, status)
	if err != nil {
		return core.VerificationRecord{}, err
	}
	if invalidateErr := s.invalidate(ctx, record.SourceOrderID); invalidateErr != nil {
		return core.VerificationRecord{}, invalidateErr
	}
	return record, nil
}

// PruneTerminal passes through without touching cached entries. A cached
// copy of a pruned record can only produce a dedup hit, and pruning only
// runs long after the redelivery window has closed.
func (s *CachedVerificationStore) PruneTerminal(ctx context.Context, before time.Time) (int, error) {
	if s == nil || s.base == nil {
		return 0, fmt.Errorf("sqlstore: cached verification store is not configured")
	}
	return s.base.PruneTerminal(ctx, before)
}

func (s *CachedVerificationStore) invalidate(ctx context.Context, sourceOrderID string) error {
	cacheKey, err := VerificationCacheKey(sourceOrderID)
	if err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKey)
}

var _ core.VerificationStore = (*CachedVerificationStore)(nil)
