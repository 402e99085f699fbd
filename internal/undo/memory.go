package undo

import (
	"context"
	"errors"
	"sync"

	"petcare/internal/clock"
	"petcare/internal/lifecycle"
)

// ErrWindowClosed is returned by Save for a context that has already expired.
var ErrWindowClosed = errors.New("undo window already closed")

// MemoryLedger holds undo contexts in process memory.
type MemoryLedger struct {
	mu    sync.Mutex
	clock clock.Clock
	// byToken is keyed by scope and token, latest by appointment.
	byToken map[string]lifecycle.UndoContext
	latest  map[string]string
}

func NewMemoryLedger(clk clock.Clock) *MemoryLedger {
	return &MemoryLedger{
		clock:   clk,
		byToken: make(map[string]lifecycle.UndoContext),
		latest:  make(map[string]string),
	}
}

func (l *MemoryLedger) Save(_ context.Context, u lifecycle.UndoContext) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !u.ExpiresAt.After(l.clock.Now()) {
		return ErrWindowClosed
	}
	l.sweepLocked()
	k := entityKey(u)
	if prev, ok := l.latest[k]; ok {
		delete(l.byToken, prev)
	}
	tk := scopedToken(u.FacilityID, u.Kind, u.Token)
	l.byToken[tk] = u
	l.latest[k] = tk
	return nil
}

func (l *MemoryLedger) Take(_ context.Context, facilityID string, kind lifecycle.Kind, token string) (lifecycle.UndoContext, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tk := scopedToken(facilityID, kind, token)
	u, ok := l.byToken[tk]
	if !ok {
		return lifecycle.UndoContext{}, lifecycle.ErrUndoExpired
	}
	delete(l.byToken, tk)
	if k := entityKey(u); l.latest[k] == tk {
		delete(l.latest, k)
	}
	if l.clock.Now().After(u.ExpiresAt) {
		return lifecycle.UndoContext{}, lifecycle.ErrUndoExpired
	}
	return u, nil
}

// Len reports live plus not-yet-swept contexts.
func (l *MemoryLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.byToken)
}

func (l *MemoryLedger) sweepLocked() {
	now := l.clock.Now()
	for tk, u := range l.byToken {
		if now.After(u.ExpiresAt) {
			delete(l.byToken, tk)
			if k := entityKey(u); l.latest[k] == tk {
				delete(l.latest, k)
			}
		}
	}
}

func entityKey(u lifecycle.UndoContext) string {
	return u.FacilityID + ":" + string(u.Kind) + ":" + u.AppointmentID
}

func scopedToken(facilityID string, kind lifecycle.Kind, token string) string {
	return facilityID + ":" + string(kind) + ":" + token
}
