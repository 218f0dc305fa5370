package core

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

type memoryAlertStore struct {
	mu        sync.Mutex
	next      int
	records   []AlertRecord
	createErr error
	listErr   error
}

func (s *memoryAlertStore) Create(_ context.Context, in CreateAlertRecordInput) (AlertRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return AlertRecord{}, s.createErr
	}
	s.next++
	record := AlertRecord{
		ID:             fmt.Sprintf("rec_%d", s.next),
		EventType:      in.EventType,
		SubscriptionID: in.SubscriptionID,
		Payload:        in.Payload,
		ReceivedAt:     in.ReceivedAt,
	}
	if in.Alert != nil {
		record.AlertID = in.Alert.AlertID
		record.RuleID = in.Alert.RuleID
		record.RuleName = in.Alert.RuleName
		record.Severity = in.Alert.Severity
		record.State = in.Alert.State
		record.RepositoryName = in.Alert.RepositoryName
		record.Branch = in.Alert.Branch
		record.AlertURL = in.Alert.AlertURL
	}
	s.records = append(s.records, record)
	return record, nil
}

func (s *memoryAlertStore) ListRecent(_ context.Context, limit int) ([]AlertRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := append([]AlertRecord(nil), s.records...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ReceivedAt.After(out[j].ReceivedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	sent  []Notification
	err   error
	panic bool
}

func (n *recordingNotifier) Notify(_ context.Context, notification Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.panic {
		panic("mail relay exploded")
	}
	n.sent = append(n.sent, notification)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type stubLogger struct{}

func (stubLogger) Trace(string, ...any)                 {}
func (stubLogger) Debug(string, ...any)                 {}
func (stubLogger) Info(string, ...any)                  {}
func (stubLogger) Warn(string, ...any)                  {}
func (stubLogger) Error(string, ...any)                 {}
func (stubLogger) Fatal(string, ...any)                 {}
func (l stubLogger) WithContext(context.Context) Logger { return l }

type stubLoggerProvider struct {
	logger Logger
}

func (s stubLoggerProvider) GetLogger(string) Logger {
	return s.logger
}

type mapRawLoader struct {
	values map[string]any
}

func (l mapRawLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.values))
	for key, value := range l.values {
		out[key] = value
	}
	return out, nil
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func newTestService(store *memoryAlertStore, notifier Notifier, opts ...Option) (*Service, error) {
	base := []Option{WithAlertStore(store)}
	if notifier != nil {
		base = append(base, WithNotifier(notifier))
	}
	return NewService(Config{}, append(base, opts...)...)
}

func strPtr(value string) *string { return &value }

func int64Ptr(value int64) *int64 { return &value }
