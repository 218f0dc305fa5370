package core

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

var operationReplacer = strings.NewReplacer(" ", "_", "-", "_")

// operationEvent describes one finished service call.
type operationEvent struct {
	name      string
	startedAt time.Time
	err       error
	fields    map[string]any
}

func (e operationEvent) status() string {
	if e.err != nil {
		return "failure"
	}
	return "success"
}

// tags keep metric cardinality bounded: operation, status, and the provider and
// event type when known.
func (e operationEvent) tags() map[string]string {
	tags := map[string]string{
		"operation": e.name,
		"status":    e.status(),
	}
	for _, key := range []string{"provider_id", "event_type"} {
		value, ok := e.fields[key]
		if !ok || value == nil {
			continue
		}
		if text := strings.TrimSpace(fmt.Sprint(value)); text != "" {
			tags[key] = text
		}
	}
	return tags
}

func (s *Service) observeOperation(
	ctx context.Context,
	startedAt time.Time,
	operation string,
	err error,
	fields map[string]any,
) {
	if s == nil {
		return
	}
	name := normalizeOperation(operation)
	if name == "" {
		name = "unknown"
	}
	s.emit(ctx, operationEvent{name: name, startedAt: startedAt, err: err, fields: fields})
}

func (s *Service) emit(ctx context.Context, event operationEvent) {
	elapsed := time.Since(event.startedAt).Milliseconds()
	tags := event.tags()
	s.recordCounter(ctx, "alerts."+event.name+".total", 1, tags)
	s.recordHistogram(ctx, "alerts."+event.name+".duration_ms", float64(elapsed), tags)

	line := cloneMap(event.fields)
	line["operation"] = event.name
	line["status"] = event.status()
	line["duration_ms"] = elapsed
	if event.err == nil {
		s.logInfo(ctx, event.name+" succeeded", line)
		return
	}
	line["error"] = event.err.Error()
	if mapped := s.errorMapper(event.err); mapped != nil {
		line["error_code"] = mapped.TextCode
	}
	s.logError(ctx, event.name+" failed", line)
}

func (s *Service) logInfo(ctx context.Context, message string, fields map[string]any) {
	if s != nil {
		LogWithFields(ctx, s.logger, "info", message, fields)
	}
}

func (s *Service) logError(ctx context.Context, message string, fields map[string]any) {
	if s != nil {
		LogWithFields(ctx, s.logger, "error", message, fields)
	}
}

func (s *Service) recordCounter(ctx context.Context, name string, value int64, tags map[string]string) {
	if s == nil || s.metricsRecorder == nil {
		return
	}
	s.metricsRecorder.IncCounter(ctx, name, value, cloneMap(tags))
}

func (s *Service) recordHistogram(ctx context.Context, name string, value float64, tags map[string]string) {
	if s == nil || s.metricsRecorder == nil {
		return
	}
	s.metricsRecorder.ObserveHistogram(ctx, name, value, cloneMap(tags))
}

// LogWithFields writes one structured line. Loggers that accept field maps get
// them attached; all others receive sorted key/value pairs.
func LogWithFields(ctx context.Context, logger Logger, level string, message string, fields map[string]any) {
	if logger == nil {
		return
	}
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	var args []any
	if fieldsLogger, ok := logger.(FieldsLogger); ok {
		logger = fieldsLogger.WithFields(cloneMap(fields))
	} else {
		args = flattenFields(fields)
	}
	logAt(logger, level)(message, args...)
}

func logAt(logger Logger, level string) func(string, ...any) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "error":
		return logger.Error
	case "warn":
		return logger.Warn
	case "debug":
		return logger.Debug
	case "trace":
		return logger.Trace
	default:
		return logger.Info
	}
}

func flattenFields(fields map[string]any) []any {
	args := make([]any, 0, len(fields)*2)
	for _, key := range slices.Sorted(maps.Keys(fields)) {
		args = append(args, key, fields[key])
	}
	if len(args) == 0 {
		return nil
	}
	return args
}

func normalizeOperation(operation string) string {
	return operationReplacer.Replace(strings.ToLower(strings.TrimSpace(operation)))
}
