package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	EnvironmentProduction  = "production"
	EnvironmentDevelopment = "development"

	DriverPostgres = "postgres"
	DriverPGX      = "pgx"
	DriverSQLite   = "sqlite3"

	DefaultWebhookPath  = "/webhook"
	DefaultMaxBodyBytes = int64(1 << 20)
)

type WebhookConfig struct {
	Path         string `koanf:"path" mapstructure:"path"`
	Secret       string `koanf:"secret" mapstructure:"secret"`
	MaxBodyBytes int64  `koanf:"max_body_bytes" mapstructure:"max_body_bytes"`
}

type DatabaseConfig struct {
	Driver      string        `koanf:"driver" mapstructure:"driver"`
	DSN         string        `koanf:"dsn" mapstructure:"dsn"`
	PingTimeout time.Duration `koanf:"ping_timeout" mapstructure:"ping_timeout"`
}

// NotificationConfig carries the mail relay settings. The sender that reads it
// does not open connections.
type NotificationConfig struct {
	Host      string `koanf:"host" mapstructure:"host"`
	Port      int    `koanf:"port" mapstructure:"port"`
	Secure    bool   `koanf:"secure" mapstructure:"secure"`
	Username  string `koanf:"username" mapstructure:"username"`
	Password  string `koanf:"password" mapstructure:"password"`
	Sender    string `koanf:"sender" mapstructure:"sender"`
	Recipient string `koanf:"recipient" mapstructure:"recipient"`
}

type HTTPConfig struct {
	Addr string `koanf:"addr" mapstructure:"addr"`
}

type QueryConfig struct {
	CacheTTL time.Duration `koanf:"cache_ttl" mapstructure:"cache_ttl"`
}

type Config struct {
	ServiceName  string             `koanf:"service_name" mapstructure:"service_name"`
	Environment  string             `koanf:"environment" mapstructure:"environment"`
	Webhook      WebhookConfig      `koanf:"webhook" mapstructure:"webhook"`
	Database     DatabaseConfig     `koanf:"database" mapstructure:"database"`
	Notification NotificationConfig `koanf:"notification" mapstructure:"notification"`
	HTTP         HTTPConfig         `koanf:"http" mapstructure:"http"`
	Query        QueryConfig        `koanf:"query" mapstructure:"query"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "alerthook",
		Environment: EnvironmentDevelopment,
		Webhook: WebhookConfig{
			Path:         DefaultWebhookPath,
			MaxBodyBytes: DefaultMaxBodyBytes,
		},
		Database: DatabaseConfig{
			Driver:      DriverPostgres,
			PingTimeout: 5 * time.Second,
		},
		Notification: NotificationConfig{
			Port: 587,
		},
		HTTP: HTTPConfig{
			Addr: ":3000",
		},
	}
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), EnvironmentProduction)
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if path := strings.TrimSpace(c.Webhook.Path); path == "" || !strings.HasPrefix(path, "/") {
		return fmt.Errorf("core: webhook.path must start with /, got %q", c.Webhook.Path)
	}
	if c.Webhook.MaxBodyBytes < 0 {
		return fmt.Errorf("core: webhook.max_body_bytes must be >= 0")
	}
	switch strings.ToLower(strings.TrimSpace(c.Database.Driver)) {
	case "", DriverPostgres, DriverPGX, DriverSQLite:
	default:
		return fmt.Errorf("core: unsupported database.driver %q", c.Database.Driver)
	}
	if c.Database.PingTimeout < 0 {
		return fmt.Errorf("core: database.ping_timeout must be >= 0")
	}
	if c.Notification.Port < 0 || c.Notification.Port > 65535 {
		return fmt.Errorf("core: notification.port is invalid: %d", c.Notification.Port)
	}
	if c.Query.CacheTTL < 0 {
		return fmt.Errorf("core: query.cache_ttl must be >= 0")
	}
	return nil
}
