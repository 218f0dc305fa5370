package webhooks

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-ado-alerts/core"
)

const (
	MessageAccepted       = "Webhook received and processed successfully!"
	MessageInvalidPayload = "Invalid JSON payload."
	MessageUnauthorized   = "Unauthorized: Invalid secret."
)

type Processor struct {
	Verifier core.Verifier
	Handler  core.AlertHandler
	Logger   core.Logger
	Metrics  core.MetricsRecorder
}

func NewProcessor(verifier core.Verifier, handler core.AlertHandler) *Processor {
	return &Processor{
		Verifier: verifier,
		Handler:  handler,
		Metrics:  core.NopMetricsRecorder{},
	}
}

// Process parses, verifies and hands one delivery to the alert handler. A
// returned error always comes with a 400 or 401 result, except when the
// processor itself is not configured.
func (p *Processor) Process(ctx context.Context, req core.InboundRequest) (core.InboundResult, error) {
	if p == nil || p.Handler == nil {
		return core.InboundResult{}, fmt.Errorf("webhooks: processor requires an alert handler")
	}
	startedAt := time.Now()
	providerID := strings.TrimSpace(req.ProviderID)
	if providerID == "" {
		providerID = core.ProviderAzureDevOps
	}

	document, err := core.DecodeDocument(req.Body)
	if err != nil {
		p.count(ctx, "alerts.webhook.rejected", map[string]string{"reason": "invalid_json"})
		p.log(ctx, "warn", "error parsing webhook payload", map[string]any{
			"provider_id": providerID,
			"error":       err.Error(),
		})
		return core.InboundResult{
			Accepted:   false,
			StatusCode: http.StatusBadRequest,
			Message:    MessageInvalidPayload,
			Metadata:   map[string]any{"provider_id": providerID, "rejected": true},
		}, core.BadInputError(err, "webhooks: invalid json payload")
	}

	if p.Verifier != nil {
		if err := p.Verifier.Verify(ctx, req); err != nil {
			p.count(ctx, "alerts.webhook.rejected", map[string]string{"reason": "secret_mismatch"})
			p.log(ctx, "warn", "webhook secret mismatch", map[string]any{"provider_id": providerID})
			return core.InboundResult{
				Accepted:   false,
				StatusCode: http.StatusUnauthorized,
				Message:    MessageUnauthorized,
				Metadata:   map[string]any{"provider_id": providerID, "rejected": true},
			}, core.UnauthorizedError(err, "webhooks: webhook verification failed")
		}
	}

	webhook := core.AlertWebhook{
		EventType:      headerValue(req.Headers, core.HeaderEvent),
		SubscriptionID: optionalHeader(req.Headers, core.HeaderSubscriptionID),
		Payload:        append([]byte(nil), req.Body...),
		Document:       document,
	}
	p.log(ctx, "info", "received azure devops webhook", map[string]any{
		"provider_id": providerID,
		"event_type":  eventTypeOrDefault(webhook.EventType),
	})

	metadata := map[string]any{
		"provider_id": providerID,
		"event_type":  eventTypeOrDefault(webhook.EventType),
	}
	outcome, err := p.handle(ctx, webhook)
	if err != nil {
		mapped := core.MapError(err)
		metadata["persisted"] = false
		metadata["error_code"] = mapped.TextCode
		p.log(ctx, "error", "error processing webhook", map[string]any{
			"provider_id": providerID,
			"event_type":  metadata["event_type"],
			"error":       err.Error(),
			"error_code":  mapped.TextCode,
			"duration_ms": time.Since(startedAt).Milliseconds(),
		})
	} else {
		metadata["persisted"] = true
		metadata["alert_record_id"] = outcome.Record.ID
		metadata["security_alert"] = outcome.SecurityAlert
		metadata["notified"] = outcome.Notified
	}

	return core.InboundResult{
		Accepted:   true,
		StatusCode: http.StatusOK,
		Message:    MessageAccepted,
		Metadata:   metadata,
	}, nil
}

func (p *Processor) handle(ctx context.Context, webhook core.AlertWebhook) (outcome core.IngestOutcome, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("webhooks: alert handler panic: %v", recovered)
		}
	}()
	return p.Handler.HandleAlertWebhook(ctx, webhook)
}

func (p *Processor) log(ctx context.Context, level string, message string, fields map[string]any) {
	if p.Logger == nil {
		return
	}
	core.LogWithFields(ctx, p.Logger, level, message, fields)
}

func (p *Processor) count(ctx context.Context, name string, tags map[string]string) {
	if p.Metrics == nil {
		return
	}
	p.Metrics.IncCounter(ctx, name, 1, tags)
}

func eventTypeOrDefault(eventType string) string {
	if strings.TrimSpace(eventType) == "" {
		return core.DefaultEventType
	}
	return eventType
}

func optionalHeader(headers map[string]string, key string) *string {
	value := headerValue(headers, key)
	if value == "" {
		return nil
	}
	return &value
}

func headerValue(headers map[string]string, key string) string {
	value, _ := lookupHeader(headers, key)
	return strings.TrimSpace(value)
}

func lookupHeader(headers map[string]string, key string) (string, bool) {
	if len(headers) == 0 {
		return "", false
	}
	for existing, value := range headers {
		if strings.EqualFold(strings.TrimSpace(existing), strings.TrimSpace(key)) {
			return value, true
		}
	}
	return "", false
}
