package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-ado-alerts/core"
	glog "github.com/goliatone/go-logger/glog"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const RecentAlertsCacheKey = "go-ado-alerts::recent_alerts::v1"

// CachedAlertStore serves recent reads from a cache. The cached value always
// holds the newest RecentAlertsLimit records; Create drops it.
type CachedAlertStore struct {
	base    core.AlertStore
	cache   repositorycache.CacheService
	logger  core.Logger
	metrics core.MetricsRecorder
}

type CachedStoreOption func(*CachedAlertStore)

func WithCacheLogger(logger core.Logger) CachedStoreOption {
	return func(s *CachedAlertStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithCacheMetrics(recorder core.MetricsRecorder) CachedStoreOption {
	return func(s *CachedAlertStore) {
		if recorder != nil {
			s.metrics = recorder
		}
	}
}

func NewCachedAlertStore(
	base core.AlertStore,
	cacheService repositorycache.CacheService,
	opts ...CachedStoreOption,
) (*CachedAlertStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base alert store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: alert cache service is required")
	}
	store := &CachedAlertStore{
		base:    base,
		cache:   cacheService,
		logger:  glog.Nop(),
		metrics: core.NopMetricsRecorder{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

func NewAlertCacheService(ttl time.Duration) (repositorycache.CacheService, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("sqlstore: alert cache ttl must be positive")
	}
	config := repositorycache.DefaultConfig()
	config.TTL = ttl
	return repositorycache.NewCacheService(config)
}

func (s *CachedAlertStore) Create(ctx context.Context, in core.CreateAlertRecordInput) (core.AlertRecord, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.AlertRecord{}, fmt.Errorf("sqlstore: cached alert store is not configured")
	}
	record, err := s.base.Create(ctx, in)
	if err != nil {
		return core.AlertRecord{}, err
	}
	// The row is committed; a stale cache only delays visibility until the TTL.
	if err := s.cache.Delete(ctx, RecentAlertsCacheKey); err != nil {
		s.metrics.IncCounter(ctx, "alerts.cache.invalidate.failure", 1, map[string]string{"key": RecentAlertsCacheKey})
		core.LogWithFields(ctx, s.logger, "warn", "recent alerts cache invalidation failed", map[string]any{
			"alert_record_id": record.ID,
			"error":           err.Error(),
		})
	}
	return record, nil
}

func (s *CachedAlertStore) ListRecent(ctx context.Context, limit int) ([]core.AlertRecord, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return nil, fmt.Errorf("sqlstore: cached alert store is not configured")
	}
	limit = core.NormalizeRecentLimit(limit)
	records, err := repositorycache.GetOrFetch(ctx, s.cache, RecentAlertsCacheKey, func(ctx context.Context) ([]core.AlertRecord, error) {
		fetched, fetchErr := s.base.ListRecent(ctx, core.RecentAlertsLimit)
		if fetchErr != nil {
			return nil, fetchErr
		}
		return cloneAlertRecords(fetched), nil
	})
	if err != nil {
		return nil, err
	}
	if len(records) > limit {
		records = records[:limit]
	}
	return cloneAlertRecords(records), nil
}

func cloneAlertRecords(records []core.AlertRecord) []core.AlertRecord {
	out := make([]core.AlertRecord, len(records))
	for index, record := range records {
		record.Payload = append([]byte(nil), record.Payload...)
		out[index] = record
	}
	return out
}
