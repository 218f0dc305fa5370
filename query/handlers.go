package query

import (
	"context"

	"github.com/goliatone/go-ado-alerts/core"
)

type RecentAlertsLister interface {
	ListRecentAlerts(ctx context.Context, limit int) ([]core.AlertRecord, error)
}

type ListRecentAlertsQuery struct {
	lister RecentAlertsLister
}

func NewListRecentAlertsQuery(lister RecentAlertsLister) *ListRecentAlertsQuery {
	return &ListRecentAlertsQuery{lister: lister}
}

// Query returns records newest first. The slice is never nil on success.
func (q *ListRecentAlertsQuery) Query(ctx context.Context, msg ListRecentAlertsMessage) ([]core.AlertRecord, error) {
	if q == nil || q.lister == nil {
		return nil, core.ConfigurationError("query: recent alerts lister is required", nil)
	}
	limit := msg.EffectiveLimit()
	records, err := q.lister.ListRecentAlerts(ctx, limit)
	if err != nil {
		return nil, err
	}
	if len(records) > limit {
		records = records[:limit]
	}
	if records == nil {
		records = []core.AlertRecord{}
	}
	return records, nil
}
