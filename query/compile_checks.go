package query

import (
	"github.com/goliatone/go-ado-alerts/core"
	gocmd "github.com/goliatone/go-command"
)

var (
	_ gocmd.Querier[ListRecentAlertsMessage, []core.AlertRecord] = (*ListRecentAlertsQuery)(nil)
	_ RecentAlertsLister                                         = (*core.Service)(nil)
)
