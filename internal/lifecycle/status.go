package lifecycle

import "fmt"

type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"

	// Terminal states sit outside the transition graph; only admin overrides touch them.
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no-show"
)

// chain is the active lifecycle in forward order.
var chain = []Status{StatusScheduled, StatusPending, StatusInProgress, StatusCompleted}

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusScheduled, StatusPending, StatusInProgress, StatusCompleted, StatusCancelled, StatusNoShow:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown status: %s", s)
	}
}

var allowedTransitions = map[Status]map[Status]bool{
	StatusScheduled:  {StatusPending: true},
	StatusPending:    {StatusInProgress: true, StatusScheduled: true},
	StatusInProgress: {StatusCompleted: true, StatusScheduled: true, StatusPending: true},
	StatusCompleted:  {StatusScheduled: true, StatusPending: true, StatusInProgress: true},
	StatusCancelled:  {},
	StatusNoShow:     {},
}

func CanTransition(from, to Status) bool {
	m, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return m[to]
}

// IsForward reports whether to comes after from on the active chain.
func IsForward(from, to Status) bool {
	fi, ti := position(from), position(to)
	return fi >= 0 && ti > fi
}

// Next returns the single forward successor of s.
func Next(s Status) (Status, bool) {
	i := position(s)
	if i < 0 || i == len(chain)-1 {
		return "", false
	}
	return chain[i+1], true
}

// RevertTargets lists every earlier active state reachable from s, in chain order.
func RevertTargets(s Status) []Status {
	i := position(s)
	if i <= 0 {
		return nil
	}
	out := make([]Status, i)
	copy(out, chain[:i])
	return out
}

func (s Status) IsTerminal() bool {
	return s == StatusCancelled || s == StatusNoShow
}

// Active returns the lifecycle states in forward order.
func Active() []Status {
	out := make([]Status, len(chain))
	copy(out, chain)
	return out
}

func (s Status) Label() string {
	switch s {
	case StatusScheduled:
		return "Scheduled"
	case StatusPending:
		return "Pending"
	case StatusInProgress:
		return "In Progress"
	case StatusCompleted:
		return "Completed"
	case StatusCancelled:
		return "Cancelled"
	case StatusNoShow:
		return "No Show"
	default:
		return string(s)
	}
}

func position(s Status) int {
	for i, c := range chain {
		if c == s {
			return i
		}
	}
	return -1
}

// Vocabulary names the user-facing verbs of one lifecycle instantiation.
type Vocabulary struct {
	// Advance maps a target status to the label of the forward action reaching it.
	Advance map[Status]string
	// Terminal is true when the instantiation models cancelled/no-show.
	Terminal bool
}

func (v Vocabulary) ActionLabel(to Status) string {
	if l, ok := v.Advance[to]; ok {
		return l
	}
	return to.Label()
}

// StatusSet is the set of status-visibility toggles on a board.
type StatusSet map[Status]bool

func NewStatusSet(statuses ...Status) StatusSet {
	set := make(StatusSet, len(statuses))
	for _, s := range statuses {
		set[s] = true
	}
	return set
}

// AllStatuses enables every toggle, terminal states included.
func AllStatuses() StatusSet {
	return NewStatusSet(StatusScheduled, StatusPending, StatusInProgress, StatusCompleted, StatusCancelled, StatusNoShow)
}

func (s StatusSet) Has(st Status) bool { return s[st] }
