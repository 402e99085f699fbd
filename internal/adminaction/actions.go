package adminaction

import (
	"fmt"

	"petcare/internal/lifecycle"
)

type ActionType string

const (
	ActionCancel     ActionType = "CANCEL"
	ActionMarkNoShow ActionType = "MARK_NO_SHOW"
	ActionReopen     ActionType = "REOPEN"
)

func ParseActionType(s string) (ActionType, error) {
	switch ActionType(s) {
	case ActionCancel, ActionMarkNoShow, ActionReopen:
		return ActionType(s), nil
	default:
		return "", fmt.Errorf("unknown action type: %s", s)
	}
}

// allowedFrom lists the statuses each override may start from.
var allowedFrom = map[ActionType]map[lifecycle.Status]bool{
	ActionCancel:     {lifecycle.StatusScheduled: true, lifecycle.StatusPending: true},
	ActionMarkNoShow: {lifecycle.StatusScheduled: true, lifecycle.StatusPending: true},
	ActionReopen:     {lifecycle.StatusCancelled: true, lifecycle.StatusNoShow: true},
}

var targets = map[ActionType]lifecycle.Status{
	ActionCancel:     lifecycle.StatusCancelled,
	ActionMarkNoShow: lifecycle.StatusNoShow,
	ActionReopen:     lifecycle.StatusScheduled,
}

// Target resolves where an override takes an appointment currently at from.
func Target(action ActionType, from lifecycle.Status) (lifecycle.Status, error) {
	if !allowedFrom[action][from] {
		return "", fmt.Errorf("%w: %s not allowed from %s", lifecycle.ErrInvalidTransition, action, from)
	}
	return targets[action], nil
}
