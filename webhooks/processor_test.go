package webhooks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/goliatone/go-ado-alerts/core"
	goerrors "github.com/goliatone/go-errors"
)

const exampleAlertBody = `{"resource":{"alertId":1,"ruleId":"R1","ruleName":"SQL Injection","severity":"critical","state":"active","repository":{"name":"repo1"},"branch":"main","url":"https://x/1"}}`

func TestProcessor_RejectsInvalidJSON(t *testing.T) {
	handler := &stubAlertHandler{}
	processor := NewProcessor(NewSharedSecretVerifier(""), handler)

	for _, body := range []string{"", "{", "not json", `{"a":1} trailing`} {
		result, err := processor.Process(context.Background(), core.InboundRequest{Body: []byte(body)})
		if err == nil {
			t.Fatalf("expected error for body %q", body)
		}
		if result.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400 for body %q, got %d", body, result.StatusCode)
		}
		if result.Message != MessageInvalidPayload {
			t.Fatalf("expected invalid payload message, got %q", result.Message)
		}
		var richErr *goerrors.Error
		if !goerrors.As(err, &richErr) || richErr.TextCode != core.AlertErrorBadInput {
			t.Fatalf("expected bad input envelope, got %v", err)
		}
	}
	if handler.callCount() != 0 {
		t.Fatalf("expected handler not to be called, got %d", handler.callCount())
	}
}

func TestProcessor_RejectsSecretMismatch(t *testing.T) {
	handler := &stubAlertHandler{}
	processor := NewProcessor(NewSharedSecretVerifier("s3cr3t"), handler)

	for name, headers := range map[string]map[string]string{
		"missing":  {},
		"wrong":    {core.HeaderWebhookSecret: "nope"},
		"padded":   {core.HeaderWebhookSecret: " s3cr3t"},
		"prefixed": {core.HeaderWebhookSecret: "s3cr3t-extra"},
	} {
		result, err := processor.Process(context.Background(), core.InboundRequest{
			Headers: headers,
			Body:    []byte(`{}`),
		})
		if err == nil {
			t.Fatalf("%s: expected verification error", name)
		}
		if result.StatusCode != http.StatusUnauthorized || result.Message != MessageUnauthorized {
			t.Fatalf("%s: expected 401 unauthorized, got %d %q", name, result.StatusCode, result.Message)
		}
	}
	if handler.callCount() != 0 {
		t.Fatalf("expected handler not to be called, got %d", handler.callCount())
	}

	result, err := processor.Process(context.Background(), core.InboundRequest{
		Headers: map[string]string{"X-Webhook-Secret": "s3cr3t"},
		Body:    []byte(`{}`),
	})
	if err != nil {
		t.Fatalf("expected matching secret to pass, got %v", err)
	}
	if result.StatusCode != http.StatusOK || handler.callCount() != 1 {
		t.Fatalf("expected processing to proceed, got %d calls=%d", result.StatusCode, handler.callCount())
	}
}

func TestProcessor_ParsesBeforeVerifying(t *testing.T) {
	processor := NewProcessor(NewSharedSecretVerifier("s3cr3t"), &stubAlertHandler{})
	result, err := processor.Process(context.Background(), core.InboundRequest{Body: []byte("{")})
	if err == nil || result.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad JSON to win over a missing secret, got %d", result.StatusCode)
	}
}

func TestProcessor_SwallowsHandlerFailures(t *testing.T) {
	for name, handler := range map[string]*stubAlertHandler{
		"error": {err: core.PersistenceError(errors.New("db down"), "core: persist alert record failed")},
		"panic": {panic: true},
	} {
		processor := NewProcessor(nil, handler)
		result, err := processor.Process(context.Background(), core.InboundRequest{Body: []byte(`{"a":1}`)})
		if err != nil {
			t.Fatalf("%s: expected swallowed error, got %v", name, err)
		}
		if result.StatusCode != http.StatusOK || result.Message != MessageAccepted {
			t.Fatalf("%s: expected 200 accepted, got %d %q", name, result.StatusCode, result.Message)
		}
		if result.Metadata["persisted"] != false {
			t.Fatalf("%s: expected persisted=false metadata, got %#v", name, result.Metadata)
		}
	}
}

func TestProcessor_PassesHeadersAndRawPayload(t *testing.T) {
	handler := &stubAlertHandler{}
	processor := NewProcessor(nil, handler)
	body := []byte(`{"x": [1, 2,3]}`)
	_, err := processor.Process(context.Background(), core.InboundRequest{
		Headers: map[string]string{
			"X-Azure-DevOps-Event":           "git.push",
			"X-Azure-DevOps-Subscription-Id": "sub-9",
		},
		Body: body,
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	got := handler.last()
	if got.EventType != "git.push" {
		t.Fatalf("expected event type from header, got %q", got.EventType)
	}
	if got.SubscriptionID == nil || *got.SubscriptionID != "sub-9" {
		t.Fatalf("expected subscription id from header, got %v", got.SubscriptionID)
	}
	if string(got.Payload) != string(body) {
		t.Fatalf("expected verbatim payload, got %s", got.Payload)
	}

	_, _ = processor.Process(context.Background(), core.InboundRequest{Body: body})
	if handler.last().SubscriptionID != nil {
		t.Fatalf("expected nil subscription id when header is absent")
	}
}

func TestProcessor_SecurityAlertExample(t *testing.T) {
	store := &memoryAlertStore{}
	svc, err := core.NewService(core.Config{}, core.WithAlertStore(store))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	processor := NewProcessor(NewSharedSecretVerifier(""), svc)

	result, err := processor.Process(context.Background(), core.InboundRequest{
		Headers: map[string]string{core.HeaderEvent: core.EventTypeSecurityAlertCreated},
		Body:    []byte(exampleAlertBody),
	})
	if err != nil || result.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d err=%v", result.StatusCode, err)
	}
	if result.Metadata["security_alert"] != true {
		t.Fatalf("expected security alert metadata, got %#v", result.Metadata)
	}
	if len(store.records) != 1 {
		t.Fatalf("expected one record, got %d", len(store.records))
	}
	record := store.records[0]
	if record.RuleName == nil || *record.RuleName != "SQL Injection" {
		t.Fatalf("expected rule name, got %v", record.RuleName)
	}
	if record.Severity == nil || *record.Severity != "critical" {
		t.Fatalf("expected severity critical, got %v", record.Severity)
	}
	if record.AlertID == nil || *record.AlertID != 1 {
		t.Fatalf("expected alert id 1, got %v", record.AlertID)
	}
	if record.RepositoryName == nil || *record.RepositoryName != "repo1" {
		t.Fatalf("expected repository repo1, got %v", record.RepositoryName)
	}
	if record.AlertURL == nil || *record.AlertURL != "https://x/1" {
		t.Fatalf("expected alert url, got %v", record.AlertURL)
	}
}

func TestProcessor_UnrelatedEventExample(t *testing.T) {
	store := &memoryAlertStore{}
	svc, err := core.NewService(core.Config{}, core.WithAlertStore(store))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	processor := NewProcessor(nil, svc)

	subscription := "sub-1"
	result, err := processor.Process(context.Background(), core.InboundRequest{
		Headers: map[string]string{
			core.HeaderEvent:          "build.complete",
			core.HeaderSubscriptionID: subscription,
		},
		Body: []byte(`{"message":"build done"}`),
	})
	if err != nil || result.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d err=%v", result.StatusCode, err)
	}
	record := store.records[0]
	if record.EventType != "build.complete" || record.SubscriptionID == nil || *record.SubscriptionID != subscription {
		t.Fatalf("unexpected envelope fields %#v", record)
	}
	if record.IsSecurityAlert() {
		t.Fatalf("expected no alert fields, got %#v", record)
	}
	if string(record.Payload) != `{"message":"build done"}` {
		t.Fatalf("expected payload stored, got %s", record.Payload)
	}
}

func TestProcessor_DoesNotDeduplicate(t *testing.T) {
	store := &memoryAlertStore{}
	svc, err := core.NewService(core.Config{}, core.WithAlertStore(store))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	processor := NewProcessor(nil, svc)
	req := core.InboundRequest{
		Headers: map[string]string{core.HeaderEvent: core.EventTypeSecurityAlertCreated},
		Body:    []byte(exampleAlertBody),
	}
	for attempt := 0; attempt < 2; attempt++ {
		if _, err := processor.Process(context.Background(), req); err != nil {
			t.Fatalf("process attempt %d: %v", attempt, err)
		}
	}
	if len(store.records) != 2 {
		t.Fatalf("expected two records, got %d", len(store.records))
	}
	if store.records[0].ID == store.records[1].ID {
		t.Fatalf("expected distinct record ids")
	}
}

func TestProcessor_RequiresHandler(t *testing.T) {
	if _, err := (&Processor{}).Process(context.Background(), core.InboundRequest{Body: []byte(`{}`)}); err == nil {
		t.Fatalf("expected configuration error")
	}
}

type stubAlertHandler struct {
	mu    sync.Mutex
	calls []core.AlertWebhook
	err   error
	panic bool
}

func (h *stubAlertHandler) HandleAlertWebhook(_ context.Context, webhook core.AlertWebhook) (core.IngestOutcome, error) {
	h.mu.Lock()
	h.calls = append(h.calls, webhook)
	h.mu.Unlock()
	if h.panic {
		panic("handler exploded")
	}
	if h.err != nil {
		return core.IngestOutcome{}, h.err
	}
	return core.IngestOutcome{Record: core.AlertRecord{ID: fmt.Sprintf("rec_%d", len(h.calls))}}, nil
}

func (h *stubAlertHandler) callCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.calls)
}

func (h *stubAlertHandler) last() core.AlertWebhook {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.calls) == 0 {
		return core.AlertWebhook{}
	}
	return h.calls[len(h.calls)-1]
}

type memoryAlertStore struct {
	mu      sync.Mutex
	records []core.AlertRecord
}

func (s *memoryAlertStore) Create(_ context.Context, in core.CreateAlertRecordInput) (core.AlertRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record := core.AlertRecord{
		ID:             fmt.Sprintf("rec_%d", len(s.records)+1),
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

func (s *memoryAlertStore) ListRecent(context.Context, int) ([]core.AlertRecord, error) {
	return nil, nil
}
