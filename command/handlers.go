package command

import (
	"context"

	"github.com/goliatone/go-ado-alerts/core"
	gocmd "github.com/goliatone/go-command"
)

type WebhookProcessor interface {
	Process(ctx context.Context, req core.InboundRequest) (core.InboundResult, error)
}

type IngestWebhookCommand struct {
	processor WebhookProcessor
}

func NewIngestWebhookCommand(processor WebhookProcessor) *IngestWebhookCommand {
	return &IngestWebhookCommand{processor: processor}
}

// Execute stores the processor result even when the delivery is rejected so
// the caller can render the 400 and 401 responses.
func (c *IngestWebhookCommand) Execute(ctx context.Context, msg IngestWebhookMessage) error {
	if c == nil || c.processor == nil {
		return core.ConfigurationError("command: webhook processor is required", nil)
	}
	req := msg.Request
	if req.ProviderID == "" {
		req.ProviderID = core.ProviderAzureDevOps
	}
	if req.Surface == "" {
		req.Surface = core.SurfaceWebhook
	}
	out, err := c.processor.Process(ctx, req)
	if out.StatusCode != 0 {
		storeResult(ctx, out)
	}
	return err
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
