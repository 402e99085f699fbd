package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"petcare/internal/lifecycle"
)

// AppointmentRepository keeps one kind of appointment in process memory.
// Insertion order is the collection order seen by boards.
type AppointmentRepository[D lifecycle.Detail] struct {
	mu       sync.RWMutex
	kind     lifecycle.Kind
	order    []string
	items    map[string]lifecycle.Appointment[D]
	timeline map[string][]lifecycle.Event
}

func NewAppointmentRepository[D lifecycle.Detail](kind lifecycle.Kind) *AppointmentRepository[D] {
	return &AppointmentRepository[D]{
		kind:     kind,
		items:    make(map[string]lifecycle.Appointment[D]),
		timeline: make(map[string][]lifecycle.Event),
	}
}

func key(facilityID, id string) string {
	return facilityID + "/" + id
}

// Insert adds an externally created appointment. An in-progress appointment
// is rejected with *lifecycle.BusyError while its resource is held.
func (r *AppointmentRepository[D]) Insert(_ context.Context, a lifecycle.Appointment[D]) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = lifecycle.StatusScheduled
	}
	if a.Version == 0 {
		a.Version = 1
	}
	a.Kind = r.kind

	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(a.FacilityID, a.ID)
	if _, exists := r.items[k]; exists {
		return fmt.Errorf("appointment %s already exists", a.ID)
	}
	if a.Status == lifecycle.StatusInProgress {
		peers := r.listLocked(a.FacilityID, lifecycle.ListQuery{ResourceID: a.ResourceID})
		if err := lifecycle.CheckExclusive(peers, a); err != nil {
			return err
		}
	}
	r.items[k] = a
	r.order = append(r.order, k)
	return nil
}

func (r *AppointmentRepository[D]) Get(_ context.Context, facilityID, id string) (lifecycle.Appointment[D], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.items[key(facilityID, id)]
	if !ok {
		return lifecycle.Appointment[D]{}, lifecycle.ErrNotFound
	}
	return a, nil
}

func (r *AppointmentRepository[D]) List(_ context.Context, facilityID string, q lifecycle.ListQuery) ([]lifecycle.Appointment[D], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listLocked(facilityID, q), nil
}

func (r *AppointmentRepository[D]) listLocked(facilityID string, q lifecycle.ListQuery) []lifecycle.Appointment[D] {
	var out []lifecycle.Appointment[D]
	for _, k := range r.order {
		a := r.items[k]
		if a.FacilityID != facilityID {
			continue
		}
		if q.Date != "" && a.Date != q.Date {
			continue
		}
		if q.ResourceID != "" && a.ResourceID != q.ResourceID {
			continue
		}
		out = append(out, a)
	}
	return out
}

func (r *AppointmentRepository[D]) ChangeStatus(_ context.Context, ch lifecycle.StatusChange) (lifecycle.Appointment[D], error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key(ch.FacilityID, ch.ID)
	a, ok := r.items[k]
	if !ok {
		return lifecycle.Appointment[D]{}, lifecycle.ErrNotFound
	}
	if a.Status != ch.From || (ch.Version != 0 && a.Version != ch.Version) {
		return lifecycle.Appointment[D]{}, fmt.Errorf("%w: appointment %s is %s at version %d", lifecycle.ErrStaleTransition, a.ID, a.Status, a.Version)
	}
	if ch.ExclusiveResource {
		peers := r.listLocked(ch.FacilityID, lifecycle.ListQuery{ResourceID: a.ResourceID})
		if err := lifecycle.CheckExclusive(peers, a); err != nil {
			return lifecycle.Appointment[D]{}, err
		}
	}

	a.Status = ch.To
	a.Version++
	a.UpdatedAt = ch.OccurredAt
	r.items[k] = a

	data := map[string]any{"from": string(ch.From), "to": string(ch.To)}
	if ch.Reason != "" {
		data["reason"] = ch.Reason
	}
	if ch.Action != "" {
		data["actionType"] = ch.Action
	}
	r.timeline[k] = append(r.timeline[k], lifecycle.Event{
		ID:            uuid.NewString(),
		AppointmentID: a.ID,
		EventType:     ch.Event,
		Summary:       ch.Summary,
		Actor:         ch.Actor,
		OccurredAt:    ch.OccurredAt,
		Data:          data,
	})
	return a, nil
}

func (r *AppointmentRepository[D]) Timeline(_ context.Context, facilityID, id string) ([]lifecycle.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	evs := r.timeline[key(facilityID, id)]
	out := make([]lifecycle.Event, len(evs))
	copy(out, evs)
	return out, nil
}
