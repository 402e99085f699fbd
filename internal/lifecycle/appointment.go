package lifecycle

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindGrooming Kind = "grooming"
	KindTraining Kind = "training"
)

func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindGrooming, KindTraining:
		return Kind(s), true
	default:
		return "", false
	}
}

// Detail is the kind-specific payload of an appointment. It is inert with
// respect to the lifecycle apart from naming the subject and feeding search.
type Detail interface {
	Subject() string
	SearchFields() []string
}

// Priced details contribute to the board summary.
type Priced interface {
	Price() decimal.Decimal
}

// Appointment is one grooming appointment or training session.
type Appointment[D Detail] struct {
	ID           string    `json:"id"`
	FacilityID   string    `json:"facilityId"`
	Kind         Kind      `json:"kind"`
	Date         string    `json:"date"`
	StartTime    string    `json:"startTime"`
	EndTime      string    `json:"endTime"`
	ResourceID   string    `json:"resourceId"`
	ResourceName string    `json:"resourceName"`
	Status       Status    `json:"status"`
	Version      int64     `json:"version"`
	Detail       D         `json:"detail"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (a Appointment[D]) Subject() string {
	return a.Detail.Subject()
}

type EventType string

const (
	EventStatusChanged EventType = "STATUS_CHANGED"
	EventStatusUndone  EventType = "STATUS_UNDONE"
	EventAdminOverride EventType = "ADMIN_OVERRIDE"
)

// Event is one entry of an appointment's timeline.
type Event struct {
	ID            string         `json:"id"`
	AppointmentID string         `json:"appointmentId"`
	EventType     EventType      `json:"eventType"`
	Summary       string         `json:"summary"`
	Actor         string         `json:"actor"`
	OccurredAt    time.Time      `json:"occurredAt"`
	Data          map[string]any `json:"data,omitempty"`
}

// StatusChange is a conditional write: it applies only while the appointment
// is still at From (and Version, when non-zero).
type StatusChange struct {
	FacilityID string
	Kind       Kind
	ID         string
	From       Status
	Version    int64
	To         Status

	// ExclusiveResource rejects the change with a *BusyError when another
	// appointment bound to the same resource is in progress.
	ExclusiveResource bool

	Event      EventType
	Summary    string
	Actor      string
	Reason     string
	Action     string
	OccurredAt time.Time
}

type ListQuery struct {
	Date       string
	ResourceID string
}

// Repository owns the appointment collection of one kind.
type Repository[D Detail] interface {
	Get(ctx context.Context, facilityID, id string) (Appointment[D], error)
	List(ctx context.Context, facilityID string, q ListQuery) ([]Appointment[D], error)
	ChangeStatus(ctx context.Context, ch StatusChange) (Appointment[D], error)
	Timeline(ctx context.Context, facilityID, id string) ([]Event, error)
}
