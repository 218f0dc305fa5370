package alerts

import (
	"fmt"

	"github.com/goliatone/go-ado-alerts/core"
	"github.com/goliatone/go-ado-alerts/notifications"
	sqlstore "github.com/goliatone/go-ado-alerts/store/sql"
	glog "github.com/goliatone/go-logger/glog"
	persistence "github.com/goliatone/go-persistence-bun"
)

// Dependencies are the runtime collaborators Setup does not build itself.
type Dependencies struct {
	Persistence    *persistence.Client
	Logger         core.Logger
	LoggerProvider core.LoggerProvider
	Metrics        core.MetricsRecorder
	// Notifier overrides the email sender built from cfg.Notification.
	Notifier core.Notifier
}

// Setup builds the bun alert store from the persistence client, the email
// notifier and the service, and returns the facade over them.
func Setup(cfg Config, deps Dependencies, opts ...Option) (*Facade, error) {
	if deps.Persistence == nil {
		return nil, fmt.Errorf("alerts: persistence client is required")
	}
	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(
		deps.Persistence,
		sqlstore.WithRecentAlertsCache(cfg.Query.CacheTTL),
		sqlstore.WithCacheObservability(deps.namedLogger("alerts.store"), deps.Metrics),
	)
	if err != nil {
		return nil, fmt.Errorf("alerts: build alert store: %w", err)
	}

	notifier := deps.Notifier
	if notifier == nil {
		logger := deps.namedLogger("alerts.notifications")
		notifier = notifications.NewEmailSender(cfg.Notification, notifications.WithLogger(glog.Ensure(logger)))
	}

	serviceOpts := []Option{
		core.WithAlertStore(factory.AlertStore()),
		core.WithNotifier(notifier),
	}
	if deps.Logger != nil {
		serviceOpts = append(serviceOpts, core.WithLogger(deps.Logger))
	}
	if deps.LoggerProvider != nil {
		serviceOpts = append(serviceOpts, core.WithLoggerProvider(deps.LoggerProvider))
	}
	if deps.Metrics != nil {
		serviceOpts = append(serviceOpts, core.WithMetricsRecorder(deps.Metrics))
	}
	serviceOpts = append(serviceOpts, opts...)

	service, err := core.NewService(cfg, serviceOpts...)
	if err != nil {
		return nil, err
	}
	return NewFacade(service)
}

func (d Dependencies) namedLogger(name string) core.Logger {
	if d.LoggerProvider != nil {
		return d.LoggerProvider.GetLogger(name)
	}
	return d.Logger
}
