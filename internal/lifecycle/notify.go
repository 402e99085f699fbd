package lifecycle

import (
	"context"
	"time"
)

type NotificationKind string

const (
	NotificationSuccess NotificationKind = "success"
	NotificationInfo    NotificationKind = "info"
)

// Notification is the transient, human-readable outcome of a status change.
type Notification struct {
	ID            string           `json:"id"`
	Kind          NotificationKind `json:"kind"`
	FacilityID    string           `json:"facilityId"`
	Appointment   Kind             `json:"appointmentKind"`
	AppointmentID string           `json:"appointmentId"`
	Subject       string           `json:"subject"`
	Status        Status           `json:"status"`
	Message       string           `json:"message"`
	UndoToken     string           `json:"undoToken,omitempty"`
	ExpiresAt     *time.Time       `json:"expiresAt,omitempty"`
	OccurredAt    time.Time        `json:"occurredAt"`
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

type NotifierFunc func(ctx context.Context, n Notification) error

func (f NotifierFunc) Notify(ctx context.Context, n Notification) error { return f(ctx, n) }
