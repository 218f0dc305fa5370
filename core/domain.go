package core

import (
	"encoding/json"
	"errors"
	"time"
)

const (
	ProviderAzureDevOps = "azure-devops"
	SurfaceWebhook      = "webhook"

	EventTypeSecurityAlertCreated = "ms.advancedSecurity.alert.created"
	DefaultEventType              = "unknown"

	HeaderEvent          = "x-azure-devops-event"
	HeaderSubscriptionID = "x-azure-devops-subscription-id"
	HeaderWebhookSecret  = "x-webhook-secret"

	RecentAlertsLimit = 20
)

var (
	ErrInvalidPayload = errors.New("core: invalid json payload")
	ErrSecretMismatch = errors.New("core: webhook secret mismatch")
)

// AlertRecord is one persisted webhook delivery. The security alert fields are
// only populated for alert created events that carry a resource object.
type AlertRecord struct {
	ID             string          `json:"id"`
	EventType      string          `json:"eventType"`
	SubscriptionID *string         `json:"subscriptionId"`
	Payload        json.RawMessage `json:"payload"`
	AlertID        *int64          `json:"alertId"`
	RuleID         *string         `json:"ruleId"`
	RuleName       *string         `json:"ruleName"`
	Severity       *string         `json:"severity"`
	State          *string         `json:"state"`
	RepositoryName *string         `json:"repositoryName"`
	Branch         *string         `json:"branch"`
	AlertURL       *string         `json:"alertUrl"`
	ReceivedAt     time.Time       `json:"receivedAt"`
}

func (r AlertRecord) IsSecurityAlert() bool {
	return r.AlertID != nil ||
		r.RuleID != nil ||
		r.RuleName != nil ||
		r.Severity != nil ||
		r.State != nil ||
		r.RepositoryName != nil ||
		r.Branch != nil ||
		r.AlertURL != nil
}

type SecurityAlert struct {
	AlertID        *int64
	RuleID         *string
	RuleName       *string
	Severity       *string
	State          *string
	RepositoryName *string
	Branch         *string
	AlertURL       *string
}

type CreateAlertRecordInput struct {
	EventType      string
	SubscriptionID *string
	Payload        json.RawMessage
	Alert          *SecurityAlert
	ReceivedAt     time.Time
}

// AlertWebhook is a parsed delivery handed from the webhook processor to the
// alert handler. Document holds the decoded form of Payload.
type AlertWebhook struct {
	EventType      string
	SubscriptionID *string
	Payload        json.RawMessage
	Document       any
}

type IngestOutcome struct {
	Record        AlertRecord
	SecurityAlert bool
	Notified      bool
}

type Notification struct {
	Subject  string
	HTMLBody string
}

type InboundRequest struct {
	ProviderID string
	Surface    string
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

type InboundResult struct {
	Accepted   bool
	StatusCode int
	Message    string
	Metadata   map[string]any
}
