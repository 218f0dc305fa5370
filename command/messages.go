package command

import (
	"strings"

	"github.com/goliatone/go-ado-alerts/core"
)

const (
	TypeIngestWebhook = "alerts.command.webhook.ingest"
)

type IngestWebhookMessage struct {
	Request core.InboundRequest
}

func (IngestWebhookMessage) Type() string { return TypeIngestWebhook }

// Validate only checks routing fields. Body problems are reported by the
// processor as a 400 result.
func (m IngestWebhookMessage) Validate() error {
	if provider := strings.TrimSpace(m.Request.ProviderID); provider != "" && provider != core.ProviderAzureDevOps {
		return core.InvalidFieldError("command", "provider_id", "unsupported provider "+provider)
	}
	if surface := strings.TrimSpace(m.Request.Surface); surface != "" && surface != core.SurfaceWebhook {
		return core.InvalidFieldError("command", "surface", "unsupported surface "+surface)
	}
	return nil
}
