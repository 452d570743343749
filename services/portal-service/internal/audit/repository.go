package audit

import (
	"context"
	"embed"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/careportal/libs/db"
	"github.com/md-rashed-zaman/careportal/libs/flow"
	"github.com/md-rashed-zaman/careportal/libs/httpx"
	otelx "github.com/md-rashed-zaman/careportal/libs/otel"
)

//go:embed migrations/*.sql
var Migrations embed.FS

const MigrationsDir = "migrations"

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Repository stores flow events in Postgres. It implements flow.Recorder.
type Repository struct {
	db querier
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{db: pool}
}

var _ flow.Recorder = (*Repository)(nil)

func (r *Repository) Record(ctx context.Context, e flow.Event) error {
	metadata := map[string]string{}
	if id := httpx.RequestIDFromContext(ctx); id != "" {
		metadata["request_id"] = id
	}
	if id := otelx.TraceID(ctx); id != "" {
		metadata["trace_id"] = id
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO portal_audit_events (event_id, event_type, session_id, user_id, role, metadata, occurred_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7)
		ON CONFLICT (event_id) DO NOTHING
	`, e.ID, e.Type, e.SessionID, e.UserID, e.Role, raw, e.At)
	return err
}

type Entry struct {
	ID         int64           `json:"id"`
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	SessionID  string          `json:"session_id"`
	UserID     string          `json:"user_id,omitempty"`
	Role       string          `json:"role,omitempty"`
	Metadata   json.RawMessage `json:"metadata"`
	OccurredAt string          `json:"occurred_at"`
}

func (r *Repository) ListRecent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, event_id::text, event_type, session_id, COALESCE(user_id, ''), COALESCE(role, ''), metadata, occurred_at
		FROM portal_audit_events
		ORDER BY id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var occurredAt time.Time
		if err := rows.Scan(&e.ID, &e.EventID, &e.EventType, &e.SessionID, &e.UserID, &e.Role, &e.Metadata, &occurredAt); err != nil {
			return nil, err
		}
		e.OccurredAt = occurredAt.UTC().Format(time.RFC3339)
		entries = append(entries, e)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return entries, nil
}
