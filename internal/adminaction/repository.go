package adminaction

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"petcare/internal/lifecycle"
)

func Insert(ctx context.Context, tx pgx.Tx, facilityID string, kind lifecycle.Kind, appointmentID string, actionType ActionType, reason, actor string, metadata any) error {
	var s *string
	if metadata != nil {
		b, _ := json.Marshal(metadata)
		str := string(b)
		s = &str
	}
	const q = `
INSERT INTO admin_actions (facility_id, kind, appointment_id, action_type, reason, actor, metadata)
VALUES ($1, $2, $3, $4, $5, $6, CAST($7 AS jsonb))
`
	_, err := tx.Exec(ctx, q, facilityID, string(kind), appointmentID, string(actionType), reason, actor, s)
	return err
}
