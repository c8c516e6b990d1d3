package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type auditModel struct {
	bun.BaseModel `bun:"table:scheduler_audit_events,alias:sae"`

	ID         uuid.UUID      `bun:",pk,type:uuid"`
	EntityType string         `bun:"entity_type,notnull"`
	EntityID   string         `bun:"entity_id"`
	Action     string         `bun:"action,notnull"`
	Outcome    string         `bun:"outcome,notnull"`
	Message    string         `bun:"message"`
	Metadata   map[string]any `bun:"metadata,type:jsonb"`
	OccurredAt time.Time      `bun:"occurred_at,notnull"`
}

// BunAuditRecorder stores audit events in the scheduler_audit_events table.
type BunAuditRecorder struct {
	db *bun.DB
}

var (
	_ AuditRecorder = (*BunAuditRecorder)(nil)
	_ AuditPruner   = (*BunAuditRecorder)(nil)
)

func NewBunAuditRecorder(db *bun.DB) *BunAuditRecorder {
	return &BunAuditRecorder{db: db}
}

func (r *BunAuditRecorder) Record(ctx context.Context, event AuditEvent) error {
	record := &auditModel{
		ID:         uuid.New(),
		EntityType: event.EntityType,
		EntityID:   event.EntityID,
		Action:     event.Action,
		Outcome:    event.Outcome,
		Message:    event.Message,
		Metadata:   event.Metadata,
		OccurredAt: event.OccurredAt.UTC(),
	}
	if _, err := r.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return fmt.Errorf("audit: record: %w", err)
	}
	return nil
}

func (r *BunAuditRecorder) List(ctx context.Context) ([]AuditEvent, error) {
	var records []auditModel
	if err := r.db.NewSelect().Model(&records).OrderExpr("occurred_at ASC, id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("audit: list: %w", err)
	}
	out := make([]AuditEvent, 0, len(records))
	for _, record := range records {
		out = append(out, AuditEvent{
			EntityType: record.EntityType,
			EntityID:   record.EntityID,
			Action:     record.Action,
			Outcome:    record.Outcome,
			Message:    record.Message,
			OccurredAt: record.OccurredAt,
			Metadata:   record.Metadata,
		})
	}
	return out, nil
}

func (r *BunAuditRecorder) Clear(ctx context.Context) error {
	if _, err := r.db.NewDelete().Model((*auditModel)(nil)).Where("1 = 1").Exec(ctx); err != nil {
		return fmt.Errorf("audit: clear: %w", err)
	}
	return nil
}

func (r *BunAuditRecorder) Prune(ctx context.Context, before time.Time) (int, error) {
	res, err := r.db.NewDelete().Model((*auditModel)(nil)).Where("occurred_at < ?", before.UTC()).Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("audit: prune: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(n), nil
}

// EnsureAuditSchema creates the audit table when missing.
func EnsureAuditSchema(ctx context.Context, db *bun.DB) error {
	if _, err := db.NewCreateTable().Model((*auditModel)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("audit: create table: %w", err)
	}
	return nil
}
