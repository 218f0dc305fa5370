package gologger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	glog "github.com/goliatone/go-logger/glog"
)

const LevelTrace = slog.Level(-8)

// Resolve uses deterministic precedence provider > logger > nop.
func Resolve(name string, provider glog.LoggerProvider, logger glog.Logger) (glog.LoggerProvider, glog.Logger) {
	return glog.Resolve(name, provider, logger)
}

type ConsoleOptions struct {
	Writer io.Writer
	Level  string
	JSON   bool
	Exit   func(code int)
}

// ConsoleLogger writes key/value records to a writer. It satisfies glog.Logger
// and glog.FieldsLogger.
type ConsoleLogger struct {
	handler slog.Handler
	fields  map[string]any
	exit    func(code int)
}

func NewConsoleLogger(opts ConsoleOptions) *ConsoleLogger {
	writer := opts.Writer
	if writer == nil {
		writer = os.Stdout
	}
	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}
	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(writer, handlerOpts)
	} else {
		handler = slog.NewTextHandler(writer, handlerOpts)
	}
	exit := opts.Exit
	if exit == nil {
		exit = os.Exit
	}
	return &ConsoleLogger{handler: handler, fields: map[string]any{}, exit: exit}
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "fatal":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *ConsoleLogger) Trace(msg string, args ...any) { l.log(context.Background(), LevelTrace, msg, args) }
func (l *ConsoleLogger) Debug(msg string, args ...any) { l.log(context.Background(), slog.LevelDebug, msg, args) }
func (l *ConsoleLogger) Info(msg string, args ...any)  { l.log(context.Background(), slog.LevelInfo, msg, args) }
func (l *ConsoleLogger) Warn(msg string, args ...any)  { l.log(context.Background(), slog.LevelWarn, msg, args) }
func (l *ConsoleLogger) Error(msg string, args ...any) { l.log(context.Background(), slog.LevelError, msg, args) }

func (l *ConsoleLogger) Fatal(msg string, args ...any) {
	l.log(context.Background(), slog.LevelError, msg, args)
	l.exit(1)
}

func (l *ConsoleLogger) WithContext(context.Context) glog.Logger {
	return l
}

func (l *ConsoleLogger) WithFields(fields map[string]any) glog.Logger {
	merged := make(map[string]any, len(l.fields)+len(fields))
	for key, value := range l.fields {
		merged[key] = value
	}
	for key, value := range fields {
		merged[key] = value
	}
	return &ConsoleLogger{handler: l.handler, fields: merged, exit: l.exit}
}

func (l *ConsoleLogger) log(ctx context.Context, level slog.Level, msg string, args []any) {
	if l == nil || l.handler == nil || !l.handler.Enabled(ctx, level) {
		return
	}
	slog.New(l.handler).Log(ctx, level, msg, append(l.fieldArgs(), args...)...)
}

func (l *ConsoleLogger) fieldArgs() []any {
	if len(l.fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(l.fields))
	for key := range l.fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	args := make([]any, 0, len(keys)*2)
	for _, key := range keys {
		args = append(args, key, l.fields[key])
	}
	return args
}

// ConsoleProvider hands out console loggers tagged with a logger name.
type ConsoleProvider struct {
	root *ConsoleLogger
}

func NewConsoleProvider(root *ConsoleLogger) *ConsoleProvider {
	if root == nil {
		root = NewConsoleLogger(ConsoleOptions{})
	}
	return &ConsoleProvider{root: root}
}

func (p *ConsoleProvider) GetLogger(name string) glog.Logger {
	name = strings.TrimSpace(name)
	if name == "" {
		return p.root
	}
	return p.root.WithFields(map[string]any{"logger": name})
}

var (
	_ glog.Logger         = (*ConsoleLogger)(nil)
	_ glog.FieldsLogger   = (*ConsoleLogger)(nil)
	_ glog.LoggerProvider = (*ConsoleProvider)(nil)
)
