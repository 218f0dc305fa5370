package query

import (
	"github.com/goliatone/go-ado-alerts/core"
)

const (
	TypeListRecentAlerts = "alerts.query.recent.list"
)

// ListRecentAlertsMessage asks for the newest records. A zero Limit means
// core.RecentAlertsLimit and larger values are capped to it.
type ListRecentAlertsMessage struct {
	Limit int
}

func (ListRecentAlertsMessage) Type() string { return TypeListRecentAlerts }

func (m ListRecentAlertsMessage) Validate() error {
	if m.Limit < 0 {
		return core.InvalidFieldError("query", "limit", "limit must be >= 0")
	}
	return nil
}

func (m ListRecentAlertsMessage) EffectiveLimit() int {
	return core.NormalizeRecentLimit(m.Limit)
}
