package alerts

import (
	"fmt"

	"github.com/goliatone/go-ado-alerts/adapters/gocommand"
	alertscommand "github.com/goliatone/go-ado-alerts/command"
	"github.com/goliatone/go-ado-alerts/core"
	"github.com/goliatone/go-ado-alerts/inbound"
	alertsquery "github.com/goliatone/go-ado-alerts/query"
	"github.com/goliatone/go-ado-alerts/webhooks"
)

type Commands struct {
	IngestWebhook *alertscommand.IngestWebhookCommand
}

type Queries struct {
	ListRecentAlerts *alertsquery.ListRecentAlertsQuery
}

type Facade struct {
	service   *core.Service
	processor *webhooks.Processor
	commands  Commands
	queries   Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	verifier core.Verifier
}

// WithVerifier replaces the shared secret verifier built from the webhook
// config.
func WithVerifier(verifier core.Verifier) FacadeOption {
	return func(options *facadeOptions) {
		options.verifier = verifier
	}
}

func NewFacade(service *core.Service, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("alerts: service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	if cfg.verifier == nil {
		cfg.verifier = webhooks.NewSharedSecretVerifier(service.Config().Webhook.Secret)
	}

	deps := service.Dependencies()
	processor := webhooks.NewProcessor(cfg.verifier, service)
	processor.Logger = deps.Logger
	if deps.MetricsRecorder != nil {
		processor.Metrics = deps.MetricsRecorder
	}

	return &Facade{
		service:   service,
		processor: processor,
		commands: Commands{
			IngestWebhook: alertscommand.NewIngestWebhookCommand(processor),
		},
		queries: Queries{
			ListRecentAlerts: alertsquery.NewListRecentAlertsQuery(service),
		},
	}, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() *core.Service {
	if f == nil {
		return nil
	}
	return f.service
}

func (f *Facade) Processor() *webhooks.Processor {
	if f == nil {
		return nil
	}
	return f.processor
}

// RouterConfig returns the inbound config for the facade handlers. Health and
// metrics hooks are left for the caller.
func (f *Facade) RouterConfig() inbound.Config {
	if f == nil {
		return inbound.Config{}
	}
	cfg := f.service.Config()
	return inbound.Config{
		Path:         cfg.Webhook.Path,
		Ingest:       f.commands.IngestWebhook,
		Recent:       f.queries.ListRecentAlerts,
		MaxBodyBytes: cfg.Webhook.MaxBodyBytes,
		Logger:       f.service.Dependencies().Logger,
	}
}

// Register adds the ingest command and the recent alerts query to the
// registry and subscribes both on the go-command dispatcher.
func (f *Facade) Register(adapter *gocommand.RegistryAdapter) (*gocommand.Subscriptions, error) {
	if f == nil {
		return nil, fmt.Errorf("alerts: facade is nil")
	}
	if adapter == nil {
		return nil, fmt.Errorf("alerts: registry adapter is required")
	}
	subs := &gocommand.Subscriptions{}
	ingest, err := gocommand.RegisterAndSubscribe[alertscommand.IngestWebhookMessage](adapter, f.commands.IngestWebhook)
	if err != nil {
		return nil, fmt.Errorf("alerts: register ingest command: %w", err)
	}
	subs.Add(ingest)
	list, err := gocommand.RegisterAndSubscribeQuery[alertsquery.ListRecentAlertsMessage, []core.AlertRecord](adapter, f.queries.ListRecentAlerts)
	if err != nil {
		subs.UnsubscribeAll()
		return nil, fmt.Errorf("alerts: register recent alerts query: %w", err)
	}
	subs.Add(list)
	return subs, nil
}
