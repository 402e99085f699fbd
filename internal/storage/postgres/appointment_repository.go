package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"petcare/internal/adminaction"
	"petcare/internal/audit"
	"petcare/internal/events"
	"petcare/internal/lifecycle"
	"petcare/pkg/db"
)

// AppointmentRepository stores one kind of appointment in the shared
// appointments table; the detail payload is kept as JSONB.
type AppointmentRepository[D lifecycle.Detail] struct {
	pool *pgxpool.Pool
	kind lifecycle.Kind
}

func NewAppointmentRepository[D lifecycle.Detail](pool *pgxpool.Pool, kind lifecycle.Kind) *AppointmentRepository[D] {
	return &AppointmentRepository[D]{pool: pool, kind: kind}
}

const selectColumns = `id, facility_id, kind, day::text, start_time, end_time, resource_id, resource_name,
       status, version, detail, created_at, updated_at`

// Insert upserts an externally created appointment (fixtures, imports).
func (r *AppointmentRepository[D]) Insert(ctx context.Context, a lifecycle.Appointment[D]) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = lifecycle.StatusScheduled
	}
	detail, err := json.Marshal(a.Detail)
	if err != nil {
		return fmt.Errorf("encode detail: %w", err)
	}
	const q = `
INSERT INTO appointments (facility_id, kind, id, day, start_time, end_time, resource_id, resource_name, status, detail)
VALUES ($1, $2, $3, $4::date, $5, $6, $7, $8, $9, $10)
ON CONFLICT (facility_id, kind, id) DO UPDATE SET
  day = EXCLUDED.day,
  start_time = EXCLUDED.start_time,
  end_time = EXCLUDED.end_time,
  resource_id = EXCLUDED.resource_id,
  resource_name = EXCLUDED.resource_name,
  status = EXCLUDED.status,
  detail = EXCLUDED.detail,
  version = appointments.version + 1,
  updated_at = NOW()
`
	_, err = r.pool.Exec(ctx, q, a.FacilityID, string(r.kind), a.ID, a.Date, a.StartTime, a.EndTime,
		a.ResourceID, a.ResourceName, string(a.Status), detail)
	if isUniqueViolation(err) {
		return &lifecycle.BusyError{ResourceID: a.ResourceID}
	}
	return err
}

func (r *AppointmentRepository[D]) Get(ctx context.Context, facilityID, id string) (lifecycle.Appointment[D], error) {
	q := `SELECT ` + selectColumns + `
FROM appointments
WHERE facility_id = $1 AND kind = $2 AND id = $3
`
	a, err := scanAppointment[D](r.pool.QueryRow(ctx, q, facilityID, string(r.kind), id))
	if errors.Is(err, pgx.ErrNoRows) {
		return lifecycle.Appointment[D]{}, lifecycle.ErrNotFound
	}
	return a, err
}

func (r *AppointmentRepository[D]) List(ctx context.Context, facilityID string, lq lifecycle.ListQuery) ([]lifecycle.Appointment[D], error) {
	q := `SELECT ` + selectColumns + `
FROM appointments
WHERE facility_id = $1 AND kind = $2
  AND ($3::text = '' OR day::text = $3)
  AND ($4::text = '' OR resource_id = $4)
ORDER BY seq ASC
`
	rows, err := r.pool.Query(ctx, q, facilityID, string(r.kind), lq.Date, lq.ResourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []lifecycle.Appointment[D]
	for rows.Next() {
		a, err := scanAppointment[D](rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ChangeStatus locks the row, re-checks the expected state and resource
// exclusivity, then writes the status with its timeline and audit rows.
func (r *AppointmentRepository[D]) ChangeStatus(ctx context.Context, ch lifecycle.StatusChange) (lifecycle.Appointment[D], error) {
	var out lifecycle.Appointment[D]
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		lockQ := `SELECT ` + selectColumns + `
FROM appointments
WHERE facility_id = $1 AND kind = $2 AND id = $3
FOR UPDATE
`
		cur, err := scanAppointment[D](tx.QueryRow(ctx, lockQ, ch.FacilityID, string(r.kind), ch.ID))
		if errors.Is(err, pgx.ErrNoRows) {
			return lifecycle.ErrNotFound
		}
		if err != nil {
			return err
		}
		if cur.Status != ch.From || (ch.Version != 0 && cur.Version != ch.Version) {
			return fmt.Errorf("%w: appointment %s is %s at version %d", lifecycle.ErrStaleTransition, cur.ID, cur.Status, cur.Version)
		}

		if ch.ExclusiveResource {
			peerQ := `SELECT ` + selectColumns + `
FROM appointments
WHERE facility_id = $1 AND kind = $2 AND resource_id = $3 AND status = 'in-progress' AND id <> $4
LIMIT 1
`
			peer, err := scanAppointment[D](tx.QueryRow(ctx, peerQ, ch.FacilityID, string(r.kind), cur.ResourceID, cur.ID))
			switch {
			case err == nil:
				return &lifecycle.BusyError{ResourceID: cur.ResourceID, AppointmentID: peer.ID, Occupant: peer.Subject()}
			case !errors.Is(err, pgx.ErrNoRows):
				return err
			}
		}

		updateQ := `UPDATE appointments
SET status = $4, version = version + 1, updated_at = $5
WHERE facility_id = $1 AND kind = $2 AND id = $3
RETURNING ` + selectColumns
		out, err = scanAppointment[D](tx.QueryRow(ctx, updateQ, ch.FacilityID, string(r.kind), ch.ID, string(ch.To), ch.OccurredAt))
		if isUniqueViolation(err) {
			// Lost a race with a concurrent start on the same resource.
			return &lifecycle.BusyError{ResourceID: cur.ResourceID}
		}
		if err != nil {
			return err
		}

		data := map[string]any{"from": string(ch.From), "to": string(ch.To)}
		if ch.Reason != "" {
			data["reason"] = ch.Reason
		}
		if ch.Action != "" {
			data["actionType"] = ch.Action
		}
		if err := events.Insert(ctx, tx, ch.FacilityID, r.kind, ch.ID, ch.Event, ch.Summary, ch.Actor, ch.OccurredAt, data); err != nil {
			return err
		}
		if ch.Event == lifecycle.EventAdminOverride {
			if err := adminaction.Insert(ctx, tx, ch.FacilityID, r.kind, ch.ID, adminaction.ActionType(ch.Action), ch.Reason, ch.Actor, data); err != nil {
				return err
			}
		}
		apptID := ch.ID
		return audit.Insert(ctx, tx, ch.FacilityID, &apptID, string(ch.Event), ch.Actor, map[string]any{
			"kind": string(r.kind), "from": string(ch.From), "to": string(ch.To), "version": out.Version,
		})
	})
	if err != nil {
		return lifecycle.Appointment[D]{}, err
	}
	return out, nil
}

func (r *AppointmentRepository[D]) Timeline(ctx context.Context, facilityID, id string) ([]lifecycle.Event, error) {
	return events.ListByAppointment(ctx, r.pool, facilityID, r.kind, id)
}

func scanAppointment[D lifecycle.Detail](row pgx.Row) (lifecycle.Appointment[D], error) {
	var (
		a      lifecycle.Appointment[D]
		kind   string
		status string
		detail []byte
	)
	if err := row.Scan(
		&a.ID, &a.FacilityID, &kind, &a.Date, &a.StartTime, &a.EndTime, &a.ResourceID, &a.ResourceName,
		&status, &a.Version, &detail, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return lifecycle.Appointment[D]{}, err
	}
	a.Kind = lifecycle.Kind(kind)
	a.Status = lifecycle.Status(status)
	if err := json.Unmarshal(detail, &a.Detail); err != nil {
		return lifecycle.Appointment[D]{}, fmt.Errorf("decode detail of %s: %w", a.ID, err)
	}
	return a, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
