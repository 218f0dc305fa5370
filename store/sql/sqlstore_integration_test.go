package sqlstore_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/goliatone/go-ado-alerts/core"
	alertmigrations "github.com/goliatone/go-ado-alerts/migrations"
	sqlstore "github.com/goliatone/go-ado-alerts/store/sql"
	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

type testPersistenceConfig struct {
	driver string
	server string
}

func (c testPersistenceConfig) GetDebug() bool {
	return false
}

func (c testPersistenceConfig) GetDriver() string {
	return c.driver
}

func (c testPersistenceConfig) GetServer() string {
	return c.server
}

func (c testPersistenceConfig) GetPingTimeout() time.Duration {
	return time.Second
}

func (c testPersistenceConfig) GetOtelIdentifier() string {
	return "go-ado-alerts-tests"
}

func TestAlertStore_CreatePersistsSecurityAlert(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.AlertStore()
	if store == nil {
		t.Fatalf("expected alert store from factory")
	}

	payload := json.RawMessage(`{"resource":{"alertId":1,"ruleName":"SQL Injection"}}`)
	subscription := "sub-1"
	receivedAt := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)
	created, err := store.Create(ctx, core.CreateAlertRecordInput{
		EventType:      core.EventTypeSecurityAlertCreated,
		SubscriptionID: &subscription,
		Payload:        payload,
		ReceivedAt:     receivedAt,
		Alert: &core.SecurityAlert{
			AlertID:        int64Ptr(1),
			RuleID:         strPtr("R1"),
			RuleName:       strPtr("SQL Injection"),
			Severity:       strPtr("critical"),
			State:          strPtr("active"),
			RepositoryName: strPtr("repo1"),
			Branch:         strPtr("main"),
			AlertURL:       strPtr("https://x/1"),
		},
	})
	if err != nil {
		t.Fatalf("create alert record: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected generated id")
	}

	records, err := store.ListRecent(ctx, 20)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one record, got %d", len(records))
	}
	got := records[0]
	if got.ID != created.ID {
		t.Fatalf("expected id %q, got %q", created.ID, got.ID)
	}
	if got.RuleName == nil || *got.RuleName != "SQL Injection" {
		t.Fatalf("expected rule name, got %v", got.RuleName)
	}
	if got.Severity == nil || *got.Severity != "critical" {
		t.Fatalf("expected severity critical, got %v", got.Severity)
	}
	if got.AlertID == nil || *got.AlertID != 1 {
		t.Fatalf("expected alert id 1, got %v", got.AlertID)
	}
	if got.RepositoryName == nil || *got.RepositoryName != "repo1" {
		t.Fatalf("expected repository, got %v", got.RepositoryName)
	}
	if got.SubscriptionID == nil || *got.SubscriptionID != subscription {
		t.Fatalf("expected subscription id, got %v", got.SubscriptionID)
	}
	if !got.ReceivedAt.Equal(receivedAt) {
		t.Fatalf("expected received_at %v, got %v", receivedAt, got.ReceivedAt)
	}
	if !jsonEqual(t, got.Payload, payload) {
		t.Fatalf("expected payload %s, got %s", payload, got.Payload)
	}
}

func TestAlertStore_CreateWithoutAlertLeavesFieldsNull(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	store, err := sqlstore.NewAlertStore(client.DB())
	if err != nil {
		t.Fatalf("new alert store: %v", err)
	}
	created, err := store.Create(ctx, core.CreateAlertRecordInput{
		Payload: json.RawMessage(`{"message":"build done"}`),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.EventType != core.DefaultEventType {
		t.Fatalf("expected default event type, got %q", created.EventType)
	}

	var nullAlertFields int
	if err := client.DB().NewRaw(
		"SELECT COUNT(*) FROM ado_security_alerts WHERE id = ? AND alert_id IS NULL AND rule_id IS NULL AND rule_name IS NULL AND severity IS NULL AND state IS NULL AND repository_name IS NULL AND branch IS NULL AND alert_url IS NULL AND subscription_id IS NULL",
		created.ID,
	).Scan(ctx, &nullAlertFields); err != nil {
		t.Fatalf("query null fields: %v", err)
	}
	if nullAlertFields != 1 {
		t.Fatalf("expected alert columns to be NULL")
	}

	records, err := store.ListRecent(ctx, 20)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(records) != 1 || records[0].IsSecurityAlert() {
		t.Fatalf("expected one plain record, got %#v", records)
	}
	if records[0].ReceivedAt.IsZero() {
		t.Fatalf("expected server-assigned received_at")
	}
}

func TestAlertStore_ListRecentOrdersAndLimits(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	store, err := sqlstore.NewAlertStore(client.DB())
	if err != nil {
		t.Fatalf("new alert store: %v", err)
	}
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	order := []int{3, 24, 0, 11, 7, 19, 2, 22, 15, 5, 9, 13, 1, 17, 21, 4, 8, 23, 6, 12, 10, 14, 16, 18, 20}
	for _, minute := range order {
		if _, err := store.Create(ctx, core.CreateAlertRecordInput{
			EventType:  "git.push",
			Payload:    json.RawMessage(fmt.Sprintf(`{"n":%d}`, minute)),
			ReceivedAt: base.Add(time.Duration(minute) * time.Minute),
		}); err != nil {
			t.Fatalf("create %d: %v", minute, err)
		}
	}

	records, err := store.ListRecent(ctx, 20)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(records) != 20 {
		t.Fatalf("expected 20 records, got %d", len(records))
	}
	for index, record := range records {
		want := base.Add(time.Duration(24-index) * time.Minute)
		if !record.ReceivedAt.Equal(want) {
			t.Fatalf("expected record %d received at %v, got %v", index, want, record.ReceivedAt)
		}
	}

	records, err = store.ListRecent(ctx, 100)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(records) != 20 {
		t.Fatalf("expected limit capped at 20, got %d", len(records))
	}

	records, err = store.ListRecent(ctx, 3)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
}

func TestAlertStore_SamePayloadTwiceCreatesTwoRecords(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	store, err := sqlstore.NewAlertStore(client.DB())
	if err != nil {
		t.Fatalf("new alert store: %v", err)
	}
	input := core.CreateAlertRecordInput{EventType: "git.push", Payload: json.RawMessage(`{"same":true}`)}
	first, err := store.Create(ctx, input)
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, err := store.Create(ctx, input)
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if first.ID == second.ID {
		t.Fatalf("expected distinct ids")
	}
	records, err := store.ListRecent(ctx, 20)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected two records, got %d", len(records))
	}
}

func TestAlertStore_RejectsEmptyPayload(t *testing.T) {
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	store, err := sqlstore.NewAlertStore(client.DB())
	if err != nil {
		t.Fatalf("new alert store: %v", err)
	}
	if _, err := store.Create(context.Background(), core.CreateAlertRecordInput{}); err == nil {
		t.Fatalf("expected empty payload error")
	}
}

func TestRepositoryFactory_CachedStoreSeesNewRecords(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client, sqlstore.WithRecentAlertsCache(time.Minute))
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.AlertStore()
	if _, ok := store.(*sqlstore.CachedAlertStore); !ok {
		t.Fatalf("expected cached alert store, got %T", store)
	}

	records, err := store.ListRecent(ctx, 20)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected empty store, got %d", len(records))
	}
	if _, err := store.Create(ctx, core.CreateAlertRecordInput{Payload: json.RawMessage(`{}`)}); err != nil {
		t.Fatalf("create: %v", err)
	}
	records, err = store.ListRecent(ctx, 20)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected create to invalidate cache, got %d records", len(records))
	}
}

func TestClientProvider_OpensLazilyAndCaches(t *testing.T) {
	dsn := fmt.Sprintf("file:alerts-provider-%d?mode=memory&cache=shared", time.Now().UnixNano())
	provider := sqlstore.NewClientProvider(sqlstore.PersistenceConfig{
		Driver: core.DriverSQLite,
		DSN:    dsn,
	})
	defer func() { _ = provider.Close() }()

	if provider.Initialized() {
		t.Fatalf("expected provider to start uninitialized")
	}
	first, err := provider.Client(context.Background())
	if err != nil {
		t.Fatalf("first client: %v", err)
	}
	second, err := provider.Client(context.Background())
	if err != nil {
		t.Fatalf("second client: %v", err)
	}
	if first != second {
		t.Fatalf("expected the same client instance")
	}
	if !provider.Initialized() {
		t.Fatalf("expected provider to be initialized")
	}
	if err := provider.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if provider.Initialized() {
		t.Fatalf("expected close to reset the provider")
	}
}

func TestClientProvider_DoesNotCacheFailures(t *testing.T) {
	provider := sqlstore.NewClientProvider(sqlstore.PersistenceConfig{Driver: core.DriverSQLite})
	if _, err := provider.Client(context.Background()); err == nil {
		t.Fatalf("expected missing dsn error")
	}
	if provider.Initialized() {
		t.Fatalf("expected failed open to leave provider uninitialized")
	}

	provider = sqlstore.NewClientProvider(sqlstore.PersistenceConfig{Driver: "oracle", DSN: "x"})
	if _, err := provider.Client(context.Background()); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
}

func TestSharedClient_ReusesProcessWideClient(t *testing.T) {
	defer func() { _ = sqlstore.CloseSharedClient() }()

	cfg := core.DefaultConfig()
	cfg.Database.Driver = core.DriverSQLite
	cfg.Database.DSN = fmt.Sprintf("file:alerts-shared-%d?mode=memory&cache=shared", time.Now().UnixNano())

	first, err := sqlstore.SharedClient(context.Background(), cfg)
	if err != nil {
		t.Fatalf("shared client: %v", err)
	}
	other := cfg
	other.Database.DSN = "ignored-after-first-call"
	second, err := sqlstore.SharedClient(context.Background(), other)
	if err != nil {
		t.Fatalf("shared client again: %v", err)
	}
	if first != second {
		t.Fatalf("expected the process-wide client to be reused")
	}
}

func TestPersistenceConfigFromCore(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.Database.DSN = " postgres://db/alerts "
	pc := sqlstore.PersistenceConfigFromCore(cfg)
	if !pc.GetDebug() {
		t.Fatalf("expected debug outside production")
	}
	if pc.GetServer() != "postgres://db/alerts" || pc.GetDriver() != core.DriverPostgres {
		t.Fatalf("unexpected persistence config %#v", pc)
	}
	if pc.GetOtelIdentifier() != "alerthook" {
		t.Fatalf("expected service name identifier, got %q", pc.GetOtelIdentifier())
	}

	cfg.Environment = core.EnvironmentProduction
	if sqlstore.PersistenceConfigFromCore(cfg).GetDebug() {
		t.Fatalf("expected debug off in production")
	}
}

func newSQLiteClient(t *testing.T) (*persistence.Client, func()) {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:alerts-test-%d?mode=memory&cache=shared&_foreign_keys=on",
		time.Now().UnixNano(),
	)
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	cfg := testPersistenceConfig{
		driver: "sqlite3",
		server: dsn,
	}
	client, err := persistence.New(cfg, sqlDB, sqlitedialect.New())
	if err != nil {
		_ = sqlDB.Close()
		t.Fatalf("new persistence client: %v", err)
	}
	if err := alertmigrations.Apply(context.Background(), client, core.DriverSQLite); err != nil {
		_ = client.Close()
		t.Fatalf("migrate: %v", err)
	}
	return client, func() {
		_ = client.Close()
	}
}

func jsonEqual(t *testing.T, left []byte, right []byte) bool {
	t.Helper()
	var a, b any
	if err := json.Unmarshal(left, &a); err != nil {
		t.Fatalf("decode left json: %v", err)
	}
	if err := json.Unmarshal(right, &b); err != nil {
		t.Fatalf("decode right json: %v", err)
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func strPtr(value string) *string { return &value }

func int64Ptr(value int64) *int64 { return &value }
