// Package training instantiates the appointment lifecycle for trainer-led sessions.
package training

import (
	"github.com/shopspring/decimal"

	"petcare/internal/clock"
	"petcare/internal/lifecycle"
)

type Attendee struct {
	PetName   string `json:"petName"`
	Breed     string `json:"breed,omitempty"`
	OwnerName string `json:"ownerName"`
	Phone     string `json:"phone,omitempty"`
}

type Detail struct {
	ClassName        string          `json:"className"`
	Attendees        []Attendee      `json:"attendees"`
	PricePerAttendee decimal.Decimal `json:"pricePerAttendee"`
	Notes            string          `json:"notes,omitempty"`
}

func (d Detail) Subject() string { return d.ClassName }

func (d Detail) SearchFields() []string {
	fields := make([]string, 0, 1+3*len(d.Attendees))
	fields = append(fields, d.ClassName)
	for _, a := range d.Attendees {
		fields = append(fields, a.PetName, a.OwnerName, a.Phone)
	}
	return fields
}

// Price is the session value: one fee per enrolled attendee.
func (d Detail) Price() decimal.Decimal {
	return d.PricePerAttendee.Mul(decimal.NewFromInt(int64(len(d.Attendees))))
}

var Vocabulary = lifecycle.Vocabulary{
	Advance: map[lifecycle.Status]string{
		lifecycle.StatusPending:    "Ready",
		lifecycle.StatusInProgress: "Start",
		lifecycle.StatusCompleted:  "Complete",
	},
}

type (
	Session = lifecycle.Appointment[Detail]
	Tracker = lifecycle.Tracker[Detail]
)

func NewTracker(repo lifecycle.Repository[Detail], ledger lifecycle.UndoLedger, clk clock.Clock, opts ...lifecycle.Option) *Tracker {
	return lifecycle.NewTracker[Detail](lifecycle.KindTraining, Vocabulary, repo, ledger, clk, opts...)
}
