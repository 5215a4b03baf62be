package beds

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var bedEventsSchema = []string{`
CREATE TABLE IF NOT EXISTS bed_events (
	id          UUID PRIMARY KEY,
	event_type  TEXT NOT NULL,
	bed_id      TEXT NOT NULL,
	patient_id  TEXT,
	mode        TEXT NOT NULL,
	payload     JSONB,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE INDEX IF NOT EXISTS bed_events_created_at_idx ON bed_events (created_at DESC)`,
}

// PgEventLog stores workflow events in Postgres.
type PgEventLog struct {
	pool *pgxpool.Pool
}

func NewPgEventLog(pool *pgxpool.Pool) *PgEventLog {
	return &PgEventLog{pool: pool}
}

func (l *PgEventLog) EnsureSchema(ctx context.Context) error {
	for _, stmt := range bedEventsSchema {
		if _, err := l.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create bed_events schema: %w", err)
		}
	}
	return nil
}

func (l *PgEventLog) Record(ctx context.Context, ev Event) error {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}

	var payload []byte
	if len(ev.Payload) > 0 {
		data, err := json.Marshal(ev.Payload)
		if err != nil {
			return fmt.Errorf("marshal event payload: %w", err)
		}
		payload = data
	}

	_, err := l.pool.Exec(ctx, `
		INSERT INTO bed_events (id, event_type, bed_id, patient_id, mode, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, now()))
	`, ev.ID, ev.Type, ev.BedID, nullableString(ev.PatientID), ev.Mode, payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert bed event: %w", err)
	}

	return nil
}

func (l *PgEventLog) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	rows, err := l.pool.Query(ctx, `
		SELECT id, event_type, bed_id, patient_id, mode, payload, created_at
		FROM bed_events
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query bed events: %w", err)
	}
	defer rows.Close()

	var result []Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ev)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func scanEvent(row pgx.Row) (*Event, error) {
	var ev Event
	var patientID *string
	var payload []byte

	if err := row.Scan(&ev.ID, &ev.Type, &ev.BedID, &patientID, &ev.Mode, &payload, &ev.CreatedAt); err != nil {
		return nil, fmt.Errorf("scan bed event: %w", err)
	}

	if patientID != nil {
		ev.PatientID = *patientID
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &ev.Payload); err != nil {
			return nil, fmt.Errorf("decode bed event payload: %w", err)
		}
	}
	return &ev, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
