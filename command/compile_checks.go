package command

import (
	"github.com/goliatone/go-ado-alerts/webhooks"
	gocmd "github.com/goliatone/go-command"
)

var (
	_ gocmd.Commander[IngestWebhookMessage] = (*IngestWebhookCommand)(nil)
	_ WebhookProcessor                      = (*webhooks.Processor)(nil)
)
