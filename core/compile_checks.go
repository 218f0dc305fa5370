package core

import glog "github.com/goliatone/go-logger/glog"

var (
	_ AlertHandler = (*Service)(nil)
	_ Notifier     = NopNotifier{}

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
