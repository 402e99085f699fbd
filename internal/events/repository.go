package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"

	"petcare/internal/lifecycle"
)

// Querier is satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func Insert(ctx context.Context, tx pgx.Tx, facilityID string, kind lifecycle.Kind, appointmentID string, eventType lifecycle.EventType, summary, actor string, occurredAt time.Time, data any) error {
	var s *string
	if data != nil {
		b, _ := json.Marshal(data)
		str := string(b)
		s = &str
	}
	const q = `
INSERT INTO appointment_events (facility_id, kind, appointment_id, event_type, summary, actor, occurred_at, data)
VALUES ($1, $2, $3, $4, $5, $6, $7, CAST($8 AS jsonb))
`
	_, err := tx.Exec(ctx, q, facilityID, string(kind), appointmentID, string(eventType), summary, actor, occurredAt, s)
	return err
}

func ListByAppointment(ctx context.Context, db Querier, facilityID string, kind lifecycle.Kind, appointmentID string) ([]lifecycle.Event, error) {
	const q = `
SELECT id::text, appointment_id, event_type, summary, actor, occurred_at, COALESCE(data, '{}'::jsonb)
FROM appointment_events
WHERE facility_id = $1 AND kind = $2 AND appointment_id = $3
ORDER BY occurred_at ASC, created_at ASC
`
	rows, err := db.Query(ctx, q, facilityID, string(kind), appointmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []lifecycle.Event{}
	for rows.Next() {
		var (
			e         lifecycle.Event
			eventType string
			raw       []byte
		)
		if err := rows.Scan(&e.ID, &e.AppointmentID, &eventType, &e.Summary, &e.Actor, &e.OccurredAt, &raw); err != nil {
			return nil, err
		}
		e.EventType = lifecycle.EventType(eventType)
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &e.Data); err != nil {
				return nil, err
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
