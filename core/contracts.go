package core

import (
	"context"

	glog "github.com/goliatone/go-logger/glog"
)

type AlertStore interface {
	Create(ctx context.Context, in CreateAlertRecordInput) (AlertRecord, error)
	ListRecent(ctx context.Context, limit int) ([]AlertRecord, error)
}

type AlertReader interface {
	ListRecent(ctx context.Context, limit int) ([]AlertRecord, error)
}

type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

type AlertHandler interface {
	HandleAlertWebhook(ctx context.Context, webhook AlertWebhook) (IngestOutcome, error)
}

type Verifier interface {
	Verify(ctx context.Context, req InboundRequest) error
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Notification) error { return nil }
