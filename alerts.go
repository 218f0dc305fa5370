// Package alerts composes the Azure DevOps security alert webhook receiver.
//
// Setup wires the bun-backed alert store, the inert email notifier and the
// core service into a Facade exposing the ingest command and the recent
// alerts query. The Facade can mount itself on a gin engine or register its
// handlers on a go-command registry.
package alerts

import "github.com/goliatone/go-ado-alerts/core"

type Config = core.Config

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies

type AlertRecord = core.AlertRecord

type AlertStore = core.AlertStore

type Notifier = core.Notifier

var (
	WithLogger          = core.WithLogger
	WithLoggerProvider  = core.WithLoggerProvider
	WithMetricsRecorder = core.WithMetricsRecorder
	WithErrorMapper     = core.WithErrorMapper
	WithConfigProvider  = core.WithConfigProvider
	WithOptionsResolver = core.WithOptionsResolver
	WithAlertStore      = core.WithAlertStore
	WithAlertReader     = core.WithAlertReader
	WithNotifier        = core.WithNotifier
	WithClock           = core.WithClock
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}
