package lifecycle

// ResourceState is the derived busy/available status of one stylist or trainer.
type ResourceState struct {
	ResourceID    string `json:"resourceId"`
	ResourceName  string `json:"resourceName"`
	Available     bool   `json:"available"`
	Occupant      string `json:"occupant,omitempty"`
	AppointmentID string `json:"appointmentId,omitempty"`
}

// IsResourceAvailable reports whether no appointment bound to resourceID is in progress.
func IsResourceAvailable[D Detail](list []Appointment[D], resourceID string) bool {
	_, ok := occupying(list, resourceID, "")
	return !ok
}

// CurrentOccupant returns the subject of the in-progress appointment bound to resourceID.
func CurrentOccupant[D Detail](list []Appointment[D], resourceID string) (string, bool) {
	a, ok := occupying(list, resourceID, "")
	if !ok {
		return "", false
	}
	return a.Subject(), true
}

// Project derives the state of every resource seen in list, in first-seen order.
func Project[D Detail](list []Appointment[D]) []ResourceState {
	index := make(map[string]int)
	var out []ResourceState
	for _, a := range list {
		i, seen := index[a.ResourceID]
		if !seen {
			i = len(out)
			index[a.ResourceID] = i
			out = append(out, ResourceState{ResourceID: a.ResourceID, ResourceName: a.ResourceName, Available: true})
		}
		if a.Status == StatusInProgress && out[i].Available {
			out[i].Available = false
			out[i].Occupant = a.Subject()
			out[i].AppointmentID = a.ID
		}
	}
	return out
}

// ProjectOnto returns the resources seen in day, in first-seen order, with
// their state derived from every appointment in all. A stylist busy on another
// day therefore shows as busy on this day's board too.
func ProjectOnto[D Detail](day, all []Appointment[D]) []ResourceState {
	out := Project(day)
	full := Project(all)
	index := make(map[string]int, len(full))
	for i, rs := range full {
		index[rs.ResourceID] = i
	}
	for i := range out {
		j, ok := index[out[i].ResourceID]
		if !ok {
			continue
		}
		out[i].Available = full[j].Available
		out[i].Occupant = full[j].Occupant
		out[i].AppointmentID = full[j].AppointmentID
	}
	return out
}

// occupying finds an in-progress appointment on resourceID other than exceptID.
func occupying[D Detail](list []Appointment[D], resourceID, exceptID string) (Appointment[D], bool) {
	for _, a := range list {
		if a.ResourceID == resourceID && a.Status == StatusInProgress && a.ID != exceptID {
			return a, true
		}
	}
	return Appointment[D]{}, false
}

// CheckExclusive returns a *BusyError when another appointment holds the resource of candidate.
// Repositories call it while holding their write guard.
func CheckExclusive[D Detail](list []Appointment[D], candidate Appointment[D]) error {
	if a, ok := occupying(list, candidate.ResourceID, candidate.ID); ok {
		return &BusyError{ResourceID: candidate.ResourceID, AppointmentID: a.ID, Occupant: a.Subject()}
	}
	return nil
}
