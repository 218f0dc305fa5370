package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Service struct {
	config          Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorMapper     ErrorMapper
	store           AlertStore
	reader          AlertReader
	notifier        Notifier
	now             func() time.Time
}

type ServiceDependencies struct {
	Logger          Logger
	LoggerProvider  LoggerProvider
	MetricsRecorder MetricsRecorder
	ErrorMapper     ErrorMapper
	Store           AlertStore
	Reader          AlertReader
	Notifier        Notifier
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("alerts", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("alerts"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = MapError
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.notifier == nil {
		builder.notifier = NopNotifier{}
	}
	if builder.now == nil {
		builder.now = time.Now
	}
	if builder.store == nil {
		return nil, fmt.Errorf("core: alert store is required")
	}
	if builder.reader == nil {
		builder.reader = builder.store
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, builder.errorMapper(err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, builder.errorMapper(err)
	}

	return &Service{
		config:          finalConfig,
		logger:          logger,
		loggerProvider:  provider,
		metricsRecorder: builder.metricsRecorder,
		errorMapper:     builder.errorMapper,
		store:           builder.store,
		reader:          builder.reader,
		notifier:        builder.notifier,
		now:             builder.now,
	}, nil
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:          s.logger,
		LoggerProvider:  s.loggerProvider,
		MetricsRecorder: s.metricsRecorder,
		ErrorMapper:     s.errorMapper,
		Store:           s.store,
		Reader:          s.reader,
		Notifier:        s.notifier,
	}
}

// HandleAlertWebhook stores one delivery and, for security alerts, attempts a
// notification. Notification failures never reach the caller.
func (s *Service) HandleAlertWebhook(ctx context.Context, webhook AlertWebhook) (IngestOutcome, error) {
	if s == nil || s.store == nil {
		return IngestOutcome{}, fmt.Errorf("core: alert service is not configured")
	}
	startedAt := time.Now()

	eventType := webhook.EventType
	if strings.TrimSpace(eventType) == "" {
		eventType = DefaultEventType
	}
	alert, isAlert := ExtractSecurityAlert(eventType, webhook.Document)

	input := CreateAlertRecordInput{
		EventType:      eventType,
		SubscriptionID: webhook.SubscriptionID,
		Payload:        webhook.Payload,
		ReceivedAt:     s.now().UTC(),
	}
	if isAlert {
		input.Alert = &alert
	}

	fields := map[string]any{
		"provider_id":    ProviderAzureDevOps,
		"event_type":     eventType,
		"security_alert": isAlert,
	}
	if webhook.SubscriptionID != nil {
		fields["subscription_id"] = *webhook.SubscriptionID
	}

	record, err := s.store.Create(ctx, input)
	if err != nil {
		s.recordCounter(ctx, "alerts.persist.failure", 1, map[string]string{"event_type": eventType})
		s.observeOperation(ctx, startedAt, "ingest", err, fields)
		return IngestOutcome{SecurityAlert: isAlert}, PersistenceError(err, "core: persist alert record failed")
	}
	fields["alert_record_id"] = record.ID
	s.observeOperation(ctx, startedAt, "ingest", nil, fields)

	outcome := IngestOutcome{Record: record, SecurityAlert: isAlert}
	if !isAlert {
		s.logInfo(ctx, "unhandled event type or missing resource", map[string]any{
			"event_type":      eventType,
			"alert_record_id": record.ID,
		})
		return outcome, nil
	}

	summary := AlertSummaryFields(record)
	summary["alert_record_id"] = record.ID
	s.logInfo(ctx, "new advanced security alert detected", summary)

	if err := s.notify(ctx, RenderAlertNotification(record)); err != nil {
		s.recordCounter(ctx, "alerts.notify.failure", 1, map[string]string{"event_type": eventType})
		s.logError(ctx, "failed to send email notification", map[string]any{
			"alert_record_id": record.ID,
			"error":           err.Error(),
			"error_code":      AlertErrorNotificationFailed,
		})
		return outcome, nil
	}
	outcome.Notified = true
	s.logInfo(ctx, "email notification sent", map[string]any{"alert_record_id": record.ID})
	return outcome, nil
}

func (s *Service) notify(ctx context.Context, notification Notification) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = NotificationError(fmt.Errorf("core: notifier panic: %v", recovered), "core: notification failed")
		}
	}()
	if err := s.notifier.Notify(ctx, notification); err != nil {
		return NotificationError(err, "core: notification failed")
	}
	return nil
}

// ListRecentAlerts returns at most RecentAlertsLimit records, newest first.
func (s *Service) ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error) {
	if s == nil || s.reader == nil {
		return nil, fmt.Errorf("core: alert service is not configured")
	}
	startedAt := time.Now()
	limit = NormalizeRecentLimit(limit)

	records, err := s.reader.ListRecent(ctx, limit)
	s.observeOperation(ctx, startedAt, "list_recent", err, map[string]any{
		"provider_id": ProviderAzureDevOps,
		"limit":       limit,
		"count":       len(records),
	})
	if err != nil {
		return nil, QueryError(err, "core: fetch alerts failed")
	}
	if len(records) > limit {
		records = records[:limit]
	}
	if records == nil {
		records = []AlertRecord{}
	}
	return records, nil
}

func NormalizeRecentLimit(limit int) int {
	if limit <= 0 || limit > RecentAlertsLimit {
		return RecentAlertsLimit
	}
	return limit
}
