package facility

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrNotFound = errors.New("facility not found")

// Facility is one tenant: a grooming/training site with its own staff and bookings.
type Facility struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

type Store interface {
	FindBySlug(ctx context.Context, slug string) (*Facility, error)
}

// MemoryStore serves facilities loaded from fixtures.
type MemoryStore struct {
	mu     sync.RWMutex
	bySlug map[string]Facility
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{bySlug: make(map[string]Facility)}
}

func (s *MemoryStore) Upsert(_ context.Context, f Facility) (*Facility, error) {
	if f.Status == "" {
		f.Status = "active"
	}
	s.mu.Lock()
	s.bySlug[f.Slug] = f
	s.mu.Unlock()
	return &f, nil
}

func (s *MemoryStore) FindBySlug(_ context.Context, slug string) (*Facility, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.bySlug[slug]
	if !ok {
		return nil, ErrNotFound
	}
	return &f, nil
}
