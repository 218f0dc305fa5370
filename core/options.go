package core

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-config/cfgx"
	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	opts "github.com/goliatone/go-options"
)

type ErrorMapper func(err error) *goerrors.Error

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type serviceBuilder struct {
	runtimeConfig   Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorMapper     ErrorMapper
	configProvider  ConfigProvider
	optionsResolver OptionsResolver
	store           AlertStore
	reader          AlertReader
	notifier        Notifier
	now             func() time.Time
}

type Option func(*serviceBuilder)

func WithLogger(logger Logger) Option {
	return func(b *serviceBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *serviceBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *serviceBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithErrorMapper(mapper ErrorMapper) Option {
	return func(b *serviceBuilder) {
		b.errorMapper = mapper
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *serviceBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *serviceBuilder) {
		b.optionsResolver = resolver
	}
}

func WithAlertStore(store AlertStore) Option {
	return func(b *serviceBuilder) {
		b.store = store
	}
}

// WithAlertReader overrides the read path, e.g. with a cached reader. The
// store is used when no reader is set.
func WithAlertReader(reader AlertReader) Option {
	return func(b *serviceBuilder) {
		b.reader = reader
	}
}

func WithNotifier(notifier Notifier) Option {
	return func(b *serviceBuilder) {
		b.notifier = notifier
	}
}

func WithClock(now func() time.Time) Option {
	return func(b *serviceBuilder) {
		b.now = now
	}
}

func defaultServiceBuilder(runtime Config) serviceBuilder {
	loggerProvider, logger := glog.Resolve("alerts", nil, nil)
	return serviceBuilder{
		runtimeConfig:   runtime,
		loggerProvider:  loggerProvider,
		logger:          logger,
		metricsRecorder: NopMetricsRecorder{},
		errorMapper:     MapError,
		configProvider:  NewCfgxConfigProvider(nil),
		optionsResolver: GoOptionsResolver{},
		notifier:        NopNotifier{},
		now:             time.Now,
	}
}

type StaticConfigLoader struct {
	Values map[string]any
}

func (l StaticConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

// EnvConfigLoader maps the process environment onto config keys. Unset
// variables are left out so defaults apply.
type EnvConfigLoader struct {
	Lookup func(key string) (string, bool)
}

func (l EnvConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	lookup := l.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(keys ...string) (string, bool) {
		for _, key := range keys {
			if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
				return value, true
			}
		}
		return "", false
	}

	raw := map[string]any{}
	webhook := map[string]any{}
	database := map[string]any{}
	notification := map[string]any{}
	httpCfg := map[string]any{}
	queryCfg := map[string]any{}

	if value, ok := get("SERVICE_NAME"); ok {
		raw["service_name"] = strings.TrimSpace(value)
	}
	if value, ok := get("APP_ENV", "NODE_ENV"); ok {
		raw["environment"] = strings.ToLower(strings.TrimSpace(value))
	}
	if value, ok := get("AZURE_DEVOPS_WEBHOOK_SECRET"); ok {
		webhook["secret"] = value
	}
	if value, ok := get("WEBHOOK_PATH"); ok {
		webhook["path"] = strings.TrimSpace(value)
	}
	if value, ok := get("WEBHOOK_MAX_BODY_BYTES"); ok {
		limit, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("core: parse WEBHOOK_MAX_BODY_BYTES: %w", err)
		}
		webhook["max_body_bytes"] = limit
	}
	if value, ok := get("DATABASE_DRIVER"); ok {
		database["driver"] = strings.ToLower(strings.TrimSpace(value))
	}
	if value, ok := get("DATABASE_URL"); ok {
		database["dsn"] = strings.TrimSpace(value)
	}
	if value, ok := get("DATABASE_PING_TIMEOUT"); ok {
		timeout, err := time.ParseDuration(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("core: parse DATABASE_PING_TIMEOUT: %w", err)
		}
		database["ping_timeout"] = timeout
	}
	if value, ok := get("EMAIL_HOST"); ok {
		notification["host"] = strings.TrimSpace(value)
	}
	if value, ok := get("EMAIL_PORT"); ok {
		port, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("core: parse EMAIL_PORT: %w", err)
		}
		notification["port"] = port
	}
	if value, ok := get("EMAIL_SECURE"); ok {
		notification["secure"] = strings.EqualFold(strings.TrimSpace(value), "true")
	}
	if value, ok := get("EMAIL_USER"); ok {
		notification["username"] = strings.TrimSpace(value)
	}
	if value, ok := get("EMAIL_PASSWORD"); ok {
		notification["password"] = value
	}
	if value, ok := get("SENDER_EMAIL_ADDRESS"); ok {
		notification["sender"] = strings.TrimSpace(value)
	}
	if value, ok := get("RECIPIENT_EMAIL_ADDRESS"); ok {
		notification["recipient"] = strings.TrimSpace(value)
	}
	if value, ok := get("HTTP_ADDR"); ok {
		httpCfg["addr"] = strings.TrimSpace(value)
	}
	if value, ok := get("QUERY_CACHE_TTL"); ok {
		ttl, err := time.ParseDuration(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("core: parse QUERY_CACHE_TTL: %w", err)
		}
		queryCfg["cache_ttl"] = ttl
	}

	for key, section := range map[string]map[string]any{
		"webhook":      webhook,
		"database":     database,
		"notification": notification,
		"http":         httpCfg,
		"query":        queryCfg,
	} {
		if len(section) > 0 {
			raw[key] = section
		}
	}
	return raw, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = StaticConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig resolves defaults, the loader's values and runtime overrides in
// that order of precedence.
func LoadConfig(ctx context.Context, loader RawConfigLoader, runtime Config) (Config, error) {
	defaults := DefaultConfig()
	loaded, err := NewCfgxConfigProvider(loader).Load(ctx, defaults)
	if err != nil {
		return Config{}, err
	}
	return GoOptionsResolver{}.Resolve(defaults, loaded, runtime)
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true)
	loadedLayer := configToLayerMap(loaded, false)
	runtimeLayer := configToLayerMap(runtime, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	put := func(section map[string]any, key string, value any, zero bool) {
		if includeZero || !zero {
			section[key] = value
		}
	}

	put(layer, "service_name", cfg.ServiceName, strings.TrimSpace(cfg.ServiceName) == "")
	put(layer, "environment", cfg.Environment, strings.TrimSpace(cfg.Environment) == "")

	webhook := map[string]any{}
	put(webhook, "path", cfg.Webhook.Path, strings.TrimSpace(cfg.Webhook.Path) == "")
	put(webhook, "secret", cfg.Webhook.Secret, cfg.Webhook.Secret == "")
	put(webhook, "max_body_bytes", cfg.Webhook.MaxBodyBytes, cfg.Webhook.MaxBodyBytes == 0)

	database := map[string]any{}
	put(database, "driver", cfg.Database.Driver, strings.TrimSpace(cfg.Database.Driver) == "")
	put(database, "dsn", cfg.Database.DSN, strings.TrimSpace(cfg.Database.DSN) == "")
	put(database, "ping_timeout", cfg.Database.PingTimeout, cfg.Database.PingTimeout == 0)

	notification := map[string]any{}
	put(notification, "host", cfg.Notification.Host, cfg.Notification.Host == "")
	put(notification, "port", cfg.Notification.Port, cfg.Notification.Port == 0)
	put(notification, "secure", cfg.Notification.Secure, !cfg.Notification.Secure)
	put(notification, "username", cfg.Notification.Username, cfg.Notification.Username == "")
	put(notification, "password", cfg.Notification.Password, cfg.Notification.Password == "")
	put(notification, "sender", cfg.Notification.Sender, cfg.Notification.Sender == "")
	put(notification, "recipient", cfg.Notification.Recipient, cfg.Notification.Recipient == "")

	httpCfg := map[string]any{}
	put(httpCfg, "addr", cfg.HTTP.Addr, strings.TrimSpace(cfg.HTTP.Addr) == "")

	queryCfg := map[string]any{}
	put(queryCfg, "cache_ttl", cfg.Query.CacheTTL, cfg.Query.CacheTTL == 0)

	for key, section := range map[string]map[string]any{
		"webhook":      webhook,
		"database":     database,
		"notification": notification,
		"http":         httpCfg,
		"query":        queryCfg,
	} {
		if includeZero || len(section) > 0 {
			layer[key] = section
		}
	}
	return layer
}
