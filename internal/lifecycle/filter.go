package lifecycle

import "strings"

// Filter is the board's status-visibility toggles plus free-text search.
type Filter struct {
	Statuses StatusSet
	Query    string
}

// Visible keeps list order and returns the appointments matching both the
// toggles and the case-insensitive query. The query is a literal substring,
// surrounding spaces included.
func Visible[D Detail](f Filter, list []Appointment[D]) []Appointment[D] {
	out := make([]Appointment[D], 0, len(list))
	if len(f.Statuses) == 0 {
		return out
	}
	q := strings.ToLower(f.Query)
	for _, a := range list {
		if !f.Statuses.Has(a.Status) {
			continue
		}
		if q != "" && !matches(a, q) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func matches[D Detail](a Appointment[D], q string) bool {
	if strings.Contains(strings.ToLower(a.ResourceName), q) {
		return true
	}
	for _, field := range a.Detail.SearchFields() {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}
