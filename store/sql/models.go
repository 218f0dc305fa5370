package sqlstore

import (
	"encoding/json"
	"time"

	"github.com/uptrace/bun"
)

type alertRecordModel struct {
	bun.BaseModel `bun:"table:ado_security_alerts,alias:asa"`

	ID             string          `bun:"id,pk"`
	EventType      string          `bun:"event_type,notnull"`
	SubscriptionID *string         `bun:"subscription_id"`
	Payload        json.RawMessage `bun:"payload,type:jsonb,notnull"`
	AlertID        *int64          `bun:"alert_id"`
	RuleID         *string         `bun:"rule_id"`
	RuleName       *string         `bun:"rule_name"`
	Severity       *string         `bun:"severity"`
	State          *string         `bun:"state"`
	RepositoryName *string         `bun:"repository_name"`
	Branch         *string         `bun:"branch"`
	AlertURL       *string         `bun:"alert_url"`
	ReceivedAt     time.Time       `bun:"received_at,nullzero,notnull,default:current_timestamp"`
}
