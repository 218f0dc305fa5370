package sqlstore

import "github.com/goliatone/go-ado-alerts/core"

var (
	_ core.AlertStore  = (*AlertStore)(nil)
	_ core.AlertStore  = (*CachedAlertStore)(nil)
	_ core.AlertReader = (*CachedAlertStore)(nil)
)
