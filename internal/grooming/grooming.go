// Package grooming instantiates the appointment lifecycle for stylist bookings.
package grooming

import (
	"github.com/shopspring/decimal"

	"petcare/internal/clock"
	"petcare/internal/lifecycle"
)

type Pet struct {
	Name  string `json:"name"`
	Breed string `json:"breed"`
}

type Owner struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type Detail struct {
	Pet          Pet             `json:"pet"`
	Owner        Owner           `json:"owner"`
	Package      string          `json:"package"`
	PackagePrice decimal.Decimal `json:"price"`
	Notes        string          `json:"notes,omitempty"`
	Allergies    []string        `json:"allergies,omitempty"`
}

func (d Detail) Subject() string { return d.Pet.Name }

func (d Detail) SearchFields() []string {
	return []string{d.Pet.Name, d.Owner.Name, d.Pet.Breed, d.Owner.Phone}
}

func (d Detail) Price() decimal.Decimal { return d.PackagePrice }

var Vocabulary = lifecycle.Vocabulary{
	Advance: map[lifecycle.Status]string{
		lifecycle.StatusPending:    "Arrived",
		lifecycle.StatusInProgress: "Start",
		lifecycle.StatusCompleted:  "Done",
	},
	Terminal: true,
}

type (
	Appointment = lifecycle.Appointment[Detail]
	Tracker     = lifecycle.Tracker[Detail]
)

func NewTracker(repo lifecycle.Repository[Detail], ledger lifecycle.UndoLedger, clk clock.Clock, opts ...lifecycle.Option) *Tracker {
	return lifecycle.NewTracker[Detail](lifecycle.KindGrooming, Vocabulary, repo, ledger, clk, opts...)
}
