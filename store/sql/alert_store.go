package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-ado-alerts/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type AlertStore struct {
	db   *bun.DB
	repo repository.Repository[*alertRecordModel]
	now  func() time.Time
}

func NewAlertStore(db *bun.DB) (*AlertStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*alertRecordModel](db, alertRecordHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid alert repository wiring: %w", err)
		}
	}
	return &AlertStore{db: db, repo: repo, now: time.Now}, nil
}

func (s *AlertStore) Create(ctx context.Context, in core.CreateAlertRecordInput) (core.AlertRecord, error) {
	if s == nil || s.repo == nil {
		return core.AlertRecord{}, fmt.Errorf("sqlstore: alert store is not configured")
	}
	if len(in.Payload) == 0 {
		return core.AlertRecord{}, fmt.Errorf("sqlstore: alert payload is required")
	}
	eventType := strings.TrimSpace(in.EventType)
	if eventType == "" {
		eventType = core.DefaultEventType
	}
	receivedAt := in.ReceivedAt.UTC()
	if in.ReceivedAt.IsZero() {
		receivedAt = s.now().UTC()
	}

	record := &alertRecordModel{
		ID:             uuid.NewString(),
		EventType:      eventType,
		SubscriptionID: in.SubscriptionID,
		Payload:        append([]byte(nil), in.Payload...),
		ReceivedAt:     receivedAt,
	}
	if alert := in.Alert; alert != nil {
		record.AlertID = alert.AlertID
		record.RuleID = alert.RuleID
		record.RuleName = alert.RuleName
		record.Severity = alert.Severity
		record.State = alert.State
		record.RepositoryName = alert.RepositoryName
		record.Branch = alert.Branch
		record.AlertURL = alert.AlertURL
	}

	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return core.AlertRecord{}, fmt.Errorf("sqlstore: create alert record: %w", err)
	}
	if created == nil {
		created = record
	}
	return toCoreAlertRecord(created), nil
}

// ListRecent returns up to limit records, newest first. Equal timestamps are
// ordered by id so repeated reads agree.
func (s *AlertStore) ListRecent(ctx context.Context, limit int) ([]core.AlertRecord, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: alert store is not configured")
	}
	limit = core.NormalizeRecentLimit(limit)
	records, _, err := s.repo.List(ctx,
		repository.OrderBy("received_at DESC"),
		repository.OrderBy("id DESC"),
		repository.SelectPaginate(limit, 0),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: list recent alerts: %w", err)
	}
	out := make([]core.AlertRecord, 0, len(records))
	for _, record := range records {
		if record == nil {
			continue
		}
		out = append(out, toCoreAlertRecord(record))
	}
	return out, nil
}

func toCoreAlertRecord(record *alertRecordModel) core.AlertRecord {
	if record == nil {
		return core.AlertRecord{}
	}
	return core.AlertRecord{
		ID:             record.ID,
		EventType:      record.EventType,
		SubscriptionID: record.SubscriptionID,
		Payload:        append([]byte(nil), record.Payload...),
		AlertID:        record.AlertID,
		RuleID:         record.RuleID,
		RuleName:       record.RuleName,
		Severity:       record.Severity,
		State:          record.State,
		RepositoryName: record.RepositoryName,
		Branch:         record.Branch,
		AlertURL:       record.AlertURL,
		ReceivedAt:     record.ReceivedAt.UTC(),
	}
}
