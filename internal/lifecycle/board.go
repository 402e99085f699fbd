package lifecycle

import "github.com/shopspring/decimal"

// Board is one day of one kind as shown on the operations dashboard.
type Board[D Detail] struct {
	Date      string           `json:"date"`
	Items     []Appointment[D] `json:"items"`
	Resources []ResourceState  `json:"resources"`
	Summary   Summary          `json:"summary"`
}

type Summary struct {
	Total     int             `json:"total"`
	Counts    map[Status]int  `json:"counts"`
	Booked    decimal.Decimal `json:"booked"`
	Completed decimal.Decimal `json:"completed"`
}

const moneyScale = 2

// Summarize counts every appointment of the day regardless of filters.
// Terminal appointments are counted but excluded from the booked total.
func Summarize[D Detail](list []Appointment[D]) Summary {
	s := Summary{
		Counts:    make(map[Status]int),
		Booked:    decimal.Zero,
		Completed: decimal.Zero,
	}
	for _, a := range list {
		s.Total++
		s.Counts[a.Status]++

		p, ok := any(a.Detail).(Priced)
		if !ok || a.Status.IsTerminal() {
			continue
		}
		price := p.Price()
		s.Booked = s.Booked.Add(price)
		if a.Status == StatusCompleted {
			s.Completed = s.Completed.Add(price)
		}
	}
	s.Booked = s.Booked.Round(moneyScale)
	s.Completed = s.Completed.Round(moneyScale)
	return s
}
