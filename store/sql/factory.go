package sqlstore

import (
	"fmt"
	"time"

	"github.com/goliatone/go-ado-alerts/core"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun"
)

type RepositoryFactory struct {
	db        *bun.DB
	cacheTTL  time.Duration
	cacheOpts []CachedStoreOption

	alertStore  *AlertStore
	cachedStore *CachedAlertStore
}

type FactoryOption func(*RepositoryFactory)

// WithRecentAlertsCache puts a read cache in front of the alert store. A
// non-positive ttl leaves reads uncached.
func WithRecentAlertsCache(ttl time.Duration) FactoryOption {
	return func(f *RepositoryFactory) {
		f.cacheTTL = ttl
	}
}

// WithCacheObservability forwards a logger and metrics recorder to the cached
// store, which reports failed invalidations through them.
func WithCacheObservability(logger core.Logger, recorder core.MetricsRecorder) FactoryOption {
	return func(f *RepositoryFactory) {
		f.cacheOpts = append(f.cacheOpts, WithCacheLogger(logger), WithCacheMetrics(recorder))
	}
}

func NewRepositoryFactory(opts ...FactoryOption) *RepositoryFactory {
	factory := &RepositoryFactory{}
	for _, opt := range opts {
		if opt != nil {
			opt(factory)
		}
	}
	return factory
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client, opts ...FactoryOption) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory(opts...)
	if _, err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func (f *RepositoryFactory) BuildStores(persistenceClient any) (core.AlertStore, error) {
	if f == nil {
		return nil, fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return nil, err
		}
		f.db = db
	}
	if f.alertStore == nil {
		if err := f.initStores(); err != nil {
			return nil, err
		}
	}
	return f.AlertStore(), nil
}

// AlertStore returns the cached store when a cache is configured.
func (f *RepositoryFactory) AlertStore() core.AlertStore {
	if f == nil {
		return nil
	}
	if f.cachedStore != nil {
		return f.cachedStore
	}
	if f.alertStore == nil {
		return nil
	}
	return f.alertStore
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) initStores() error {
	alertStore, err := NewAlertStore(f.db)
	if err != nil {
		return err
	}
	f.alertStore = alertStore

	if f.cacheTTL > 0 {
		cacheService, err := NewAlertCacheService(f.cacheTTL)
		if err != nil {
			return fmt.Errorf("sqlstore: new alert cache service: %w", err)
		}
		cached, err := NewCachedAlertStore(alertStore, cacheService, f.cacheOpts...)
		if err != nil {
			return err
		}
		f.cachedStore = cached
	}
	return nil
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
