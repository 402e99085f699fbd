package lifecycle

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound             = errors.New("appointment not found")
	ErrInvalidTransition    = errors.New("invalid state transition")
	ErrStaleTransition      = errors.New("stale transition")
	ErrResourceBusy         = errors.New("resource busy")
	ErrConfirmationRequired = errors.New("confirmation required")
	ErrUndoExpired          = errors.New("undo expired")
	ErrUndoStale            = errors.New("undo stale")
	ErrReasonRequired       = errors.New("reason required")
)

// BusyError reports the appointment currently holding a resource.
type BusyError struct {
	ResourceID    string
	AppointmentID string
	Occupant      string
}

func (e *BusyError) Error() string {
	if e.Occupant == "" {
		return fmt.Sprintf("resource %s busy", e.ResourceID)
	}
	return fmt.Sprintf("resource %s busy with %s", e.ResourceID, e.Occupant)
}

func (e *BusyError) Is(target error) bool {
	return target == ErrResourceBusy
}
