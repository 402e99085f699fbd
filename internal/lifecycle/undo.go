package lifecycle

import (
	"context"
	"time"
)

// UndoContext is the ephemeral record of one transition's prior state.
type UndoContext struct {
	Token         string    `json:"token"`
	FacilityID    string    `json:"facilityId"`
	Kind          Kind      `json:"kind"`
	AppointmentID string    `json:"appointmentId"`
	Subject       string    `json:"subject"`
	Previous      Status    `json:"previous"`
	Applied       Status    `json:"applied"`
	Version       int64     `json:"version"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

// UndoLedger stores undo contexts until they expire or are taken.
// Saving a context for an appointment invalidates any earlier one for it, and
// Save fails when the context has already expired.
// Tokens are scoped to a facility and kind: Take only finds and consumes a
// token within its own scope, is single-use, and returns ErrUndoExpired for
// unknown or expired tokens.
type UndoLedger interface {
	Save(ctx context.Context, u UndoContext) error
	Take(ctx context.Context, facilityID string, kind Kind, token string) (UndoContext, error)
}
