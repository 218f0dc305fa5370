// Package notifications holds the alert email sender.
package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-ado-alerts/core"
	glog "github.com/goliatone/go-logger/glog"
)

// EmailSender is the mail side of alert notifications. It carries the relay
// settings but never opens a connection; Send only validates and logs.
type EmailSender struct {
	config core.NotificationConfig
	logger core.Logger
}

type EmailOption func(*EmailSender)

func WithLogger(logger core.Logger) EmailOption {
	return func(s *EmailSender) {
		s.logger = logger
	}
}

func NewEmailSender(config core.NotificationConfig, opts ...EmailOption) *EmailSender {
	sender := &EmailSender{config: config}
	for _, opt := range opts {
		if opt != nil {
			opt(sender)
		}
	}
	sender.logger = glog.Ensure(sender.logger)
	return sender
}

func (s *EmailSender) Config() core.NotificationConfig {
	if s == nil {
		return core.NotificationConfig{}
	}
	return s.config
}

// Configured reports whether enough relay settings exist to address a message.
func (s *EmailSender) Configured() bool {
	if s == nil {
		return false
	}
	return strings.TrimSpace(s.config.Host) != "" && strings.TrimSpace(s.config.Recipient) != ""
}

func (s *EmailSender) Send(ctx context.Context, subject string, htmlBody string) error {
	if s == nil {
		return fmt.Errorf("notifications: email sender is nil")
	}
	if strings.TrimSpace(subject) == "" {
		return fmt.Errorf("notifications: email subject is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	fields := map[string]any{
		"subject":    subject,
		"body_bytes": len(htmlBody),
		"delivered":  false,
	}
	if s.Configured() {
		fields["relay_host"] = s.config.Host
		fields["relay_port"] = s.config.Port
		fields["recipient"] = s.config.Recipient
	}
	core.LogWithFields(ctx, s.logger, "debug", "email delivery is disabled, message dropped", fields)
	return nil
}

func (s *EmailSender) Notify(ctx context.Context, notification core.Notification) error {
	return s.Send(ctx, notification.Subject, notification.HTMLBody)
}

var _ core.Notifier = (*EmailSender)(nil)
