package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-ado-alerts/core"
	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

// PersistenceConfig satisfies the configuration contract of
// go-persistence-bun.
type PersistenceConfig struct {
	Driver      string
	DSN         string
	Debug       bool
	PingTimeout time.Duration
	Identifier  string
}

func PersistenceConfigFromCore(cfg core.Config) PersistenceConfig {
	driver := strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	if driver == "" {
		driver = core.DriverPostgres
	}
	return PersistenceConfig{
		Driver:      driver,
		DSN:         strings.TrimSpace(cfg.Database.DSN),
		Debug:       !cfg.IsProduction(),
		PingTimeout: cfg.Database.PingTimeout,
		Identifier:  strings.TrimSpace(cfg.ServiceName),
	}
}

func (c PersistenceConfig) GetDebug() bool {
	return c.Debug
}

func (c PersistenceConfig) GetDriver() string {
	return c.Driver
}

func (c PersistenceConfig) GetServer() string {
	return c.DSN
}

func (c PersistenceConfig) GetPingTimeout() time.Duration {
	if c.PingTimeout <= 0 {
		return 5 * time.Second
	}
	return c.PingTimeout
}

func (c PersistenceConfig) GetOtelIdentifier() string {
	if c.Identifier == "" {
		return "alerthook"
	}
	return c.Identifier
}

// ClientProvider opens the database on first use and keeps the handle for the
// life of the provider. A failed open is not remembered.
type ClientProvider struct {
	config PersistenceConfig

	mu     sync.Mutex
	client *persistence.Client
}

func NewClientProvider(config PersistenceConfig) *ClientProvider {
	return &ClientProvider{config: config}
}

func (p *ClientProvider) Config() PersistenceConfig {
	if p == nil {
		return PersistenceConfig{}
	}
	return p.config
}

func (p *ClientProvider) Client(ctx context.Context) (*persistence.Client, error) {
	if p == nil {
		return nil, fmt.Errorf("sqlstore: client provider is nil")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return p.client, nil
	}
	client, err := OpenClient(ctx, p.config)
	if err != nil {
		return nil, err
	}
	p.client = client
	return client, nil
}

func (p *ClientProvider) Initialized() bool {
	if p == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.client != nil
}

func (p *ClientProvider) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client == nil {
		return nil
	}
	err := p.client.Close()
	p.client = nil
	return err
}

// OpenClient opens and pings a database for the configured driver and wraps
// it in a persistence client.
func OpenClient(ctx context.Context, config PersistenceConfig) (*persistence.Client, error) {
	if config.DSN == "" {
		return nil, fmt.Errorf("sqlstore: database dsn is required")
	}
	driverName, dialect, err := resolveDriver(config.Driver)
	if err != nil {
		return nil, err
	}
	sqlDB, err := sql.Open(driverName, config.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s database: %w", driverName, err)
	}
	if driverName == core.DriverSQLite && strings.Contains(config.DSN, "mode=memory") {
		sqlDB.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, config.GetPingTimeout())
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlstore: ping %s database: %w", driverName, err)
	}

	client, err := persistence.New(config, sqlDB, dialect)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlstore: new persistence client: %w", err)
	}
	return client, nil
}

func resolveDriver(driver string) (string, schema.Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", core.DriverPostgres:
		return core.DriverPostgres, pgdialect.New(), nil
	case core.DriverPGX:
		return core.DriverPGX, pgdialect.New(), nil
	case core.DriverSQLite:
		return core.DriverSQLite, sqlitedialect.New(), nil
	default:
		return "", nil, fmt.Errorf("sqlstore: unsupported database driver %q", driver)
	}
}

var shared struct {
	mu       sync.Mutex
	provider *ClientProvider
}

// SharedClient returns the process-wide persistence client, creating its
// provider from cfg on first call. Later calls reuse the first provider.
func SharedClient(ctx context.Context, cfg core.Config) (*persistence.Client, error) {
	shared.mu.Lock()
	if shared.provider == nil {
		shared.provider = NewClientProvider(PersistenceConfigFromCore(cfg))
	}
	provider := shared.provider
	shared.mu.Unlock()
	return provider.Client(ctx)
}

// CloseSharedClient closes and forgets the process-wide client.
func CloseSharedClient() error {
	shared.mu.Lock()
	provider := shared.provider
	shared.provider = nil
	shared.mu.Unlock()
	return provider.Close()
}
