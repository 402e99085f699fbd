// Package fixtures loads facilities and appointments from a YAML file into
// whichever stores the process runs with.
package fixtures

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"petcare/internal/facility"
	"petcare/internal/grooming"
	"petcare/internal/lifecycle"
	"petcare/internal/training"
)

type File struct {
	Facilities []FacilityDoc `yaml:"facilities"`
	Grooming   []GroomingDoc `yaml:"grooming"`
	Training   []TrainingDoc `yaml:"training"`
}

type FacilityDoc struct {
	ID   string `yaml:"id"`
	Slug string `yaml:"slug"`
	Name string `yaml:"name"`
}

// Slot is shared by both appointment kinds. Facility is a slug from the
// same file.
type Slot struct {
	ID           string `yaml:"id"`
	Facility     string `yaml:"facility"`
	Date         string `yaml:"date"`
	Start        string `yaml:"start"`
	End          string `yaml:"end"`
	ResourceID   string `yaml:"resourceId"`
	ResourceName string `yaml:"resourceName"`
	Status       string `yaml:"status"`
}

type GroomingDoc struct {
	Slot      `yaml:",inline"`
	PetName   string   `yaml:"petName"`
	Breed     string   `yaml:"breed"`
	OwnerName string   `yaml:"ownerName"`
	Phone     string   `yaml:"phone"`
	Package   string   `yaml:"package"`
	Price     string   `yaml:"price"`
	Notes     string   `yaml:"notes"`
	Allergies []string `yaml:"allergies"`
}

type TrainingDoc struct {
	Slot             `yaml:",inline"`
	ClassName        string        `yaml:"className"`
	PricePerAttendee string        `yaml:"pricePerAttendee"`
	Notes            string        `yaml:"notes"`
	Attendees        []AttendeeDoc `yaml:"attendees"`
}

type AttendeeDoc struct {
	PetName   string `yaml:"petName"`
	Breed     string `yaml:"breed"`
	OwnerName string `yaml:"ownerName"`
	Phone     string `yaml:"phone"`
}

// Set is a decoded fixture file with facility slugs resolved to ids.
type Set struct {
	Facilities []facility.Facility
	Grooming   []grooming.Appointment
	Training   []training.Session
}

func LoadFile(path string) (Set, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Set{}, fmt.Errorf("read fixtures: %w", err)
	}
	return Parse(b)
}

func Parse(b []byte) (Set, error) {
	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return Set{}, fmt.Errorf("decode fixtures: %w", err)
	}

	var out Set
	ids := make(map[string]string, len(f.Facilities))
	for _, fd := range f.Facilities {
		if fd.Slug == "" {
			return Set{}, fmt.Errorf("facility %q: slug required", fd.Name)
		}
		id := fd.ID
		if id == "" {
			id = fd.Slug
		}
		ids[fd.Slug] = id
		out.Facilities = append(out.Facilities, facility.Facility{ID: id, Slug: fd.Slug, Name: fd.Name, Status: "active"})
	}

	for _, gd := range f.Grooming {
		base, err := gd.Slot.resolve(ids)
		if err != nil {
			return Set{}, fmt.Errorf("grooming %s: %w", gd.ID, err)
		}
		price, err := parsePrice(gd.Price)
		if err != nil {
			return Set{}, fmt.Errorf("grooming %s: %w", gd.ID, err)
		}
		out.Grooming = append(out.Grooming, build(base, lifecycle.KindGrooming, grooming.Detail{
			Pet:          grooming.Pet{Name: gd.PetName, Breed: gd.Breed},
			Owner:        grooming.Owner{Name: gd.OwnerName, Phone: gd.Phone},
			Package:      gd.Package,
			PackagePrice: price,
			Notes:        gd.Notes,
			Allergies:    gd.Allergies,
		}))
	}

	for _, td := range f.Training {
		if td.Status == string(lifecycle.StatusCancelled) || td.Status == string(lifecycle.StatusNoShow) {
			return Set{}, fmt.Errorf("training %s: status %s not supported for sessions", td.ID, td.Status)
		}
		base, err := td.Slot.resolve(ids)
		if err != nil {
			return Set{}, fmt.Errorf("training %s: %w", td.ID, err)
		}
		price, err := parsePrice(td.PricePerAttendee)
		if err != nil {
			return Set{}, fmt.Errorf("training %s: %w", td.ID, err)
		}
		out.Training = append(out.Training, build(base, lifecycle.KindTraining, training.Detail{
			ClassName:        td.ClassName,
			Attendees:        attendees(td.Attendees),
			PricePerAttendee: price,
			Notes:            td.Notes,
		}))
	}

	if err := exclusive(out.Grooming); err != nil {
		return Set{}, err
	}
	if err := exclusive(out.Training); err != nil {
		return Set{}, err
	}
	return out, nil
}

// exclusive rejects a file that starts with two in-progress appointments on
// one resource of a facility.
func exclusive[D lifecycle.Detail](list []lifecycle.Appointment[D]) error {
	for i, a := range list {
		if a.Status != lifecycle.StatusInProgress {
			continue
		}
		var peers []lifecycle.Appointment[D]
		for _, p := range list[:i] {
			if p.FacilityID == a.FacilityID {
				peers = append(peers, p)
			}
		}
		if err := lifecycle.CheckExclusive(peers, a); err != nil {
			return fmt.Errorf("%s %s: %w", a.Kind, a.ID, err)
		}
	}
	return nil
}

// header carries the kind-independent fields until the detail type is known.
type header struct {
	ID, FacilityID, Date, StartTime, EndTime, ResourceID, ResourceName string
	Status                                                             lifecycle.Status
}

func (s Slot) resolve(facilityIDs map[string]string) (header, error) {
	if s.ID == "" {
		return header{}, fmt.Errorf("id required")
	}
	fid, ok := facilityIDs[s.Facility]
	if !ok {
		return header{}, fmt.Errorf("unknown facility %q", s.Facility)
	}
	if s.Date == "" || s.ResourceID == "" {
		return header{}, fmt.Errorf("date and resourceId required")
	}
	status := lifecycle.StatusScheduled
	if s.Status != "" {
		st, err := lifecycle.ParseStatus(s.Status)
		if err != nil {
			return header{}, err
		}
		status = st
	}
	name := s.ResourceName
	if name == "" {
		name = s.ResourceID
	}
	return header{
		ID: s.ID, FacilityID: fid, Date: s.Date, StartTime: s.Start, EndTime: s.End,
		ResourceID: s.ResourceID, ResourceName: name, Status: status,
	}, nil
}

func build[D lifecycle.Detail](h header, kind lifecycle.Kind, detail D) lifecycle.Appointment[D] {
	return lifecycle.Appointment[D]{
		ID: h.ID, FacilityID: h.FacilityID, Kind: kind, Date: h.Date, StartTime: h.StartTime, EndTime: h.EndTime,
		ResourceID: h.ResourceID, ResourceName: h.ResourceName, Status: h.Status, Version: 1,
		Detail: detail,
	}
}

func parsePrice(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid price %q: %w", s, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative price %q", s)
	}
	return d, nil
}

func attendees(docs []AttendeeDoc) []training.Attendee {
	out := make([]training.Attendee, 0, len(docs))
	for _, d := range docs {
		out = append(out, training.Attendee{PetName: d.PetName, Breed: d.Breed, OwnerName: d.OwnerName, Phone: d.Phone})
	}
	return out
}
