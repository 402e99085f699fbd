package fixtures

import (
	"context"
	"fmt"

	"petcare/internal/facility"
	"petcare/internal/grooming"
	"petcare/internal/lifecycle"
	"petcare/internal/training"
)

type FacilitySink interface {
	Upsert(ctx context.Context, f facility.Facility) (*facility.Facility, error)
}

type AppointmentSink[D lifecycle.Detail] interface {
	Insert(ctx context.Context, a lifecycle.Appointment[D]) error
}

// Sinks receive a fixture set. Any sink may be nil to skip that part.
type Sinks struct {
	Facilities FacilitySink
	Grooming   AppointmentSink[grooming.Detail]
	Training   AppointmentSink[training.Detail]
}

type Counts struct {
	Facilities int
	Grooming   int
	Training   int
}

// Seed writes facilities first so that appointments can reference them.
func Seed(ctx context.Context, set Set, sinks Sinks) (Counts, error) {
	var c Counts
	if sinks.Facilities != nil {
		for _, f := range set.Facilities {
			if _, err := sinks.Facilities.Upsert(ctx, f); err != nil {
				return c, fmt.Errorf("seed facility %s: %w", f.Slug, err)
			}
			c.Facilities++
		}
	}
	n, err := insertAll(ctx, sinks.Grooming, set.Grooming)
	c.Grooming = n
	if err != nil {
		return c, err
	}
	n, err = insertAll(ctx, sinks.Training, set.Training)
	c.Training = n
	return c, err
}

func insertAll[D lifecycle.Detail](ctx context.Context, sink AppointmentSink[D], list []lifecycle.Appointment[D]) (int, error) {
	if sink == nil {
		return 0, nil
	}
	for i, a := range list {
		if err := sink.Insert(ctx, a); err != nil {
			return i, fmt.Errorf("seed %s appointment %s: %w", a.Kind, a.ID, err)
		}
	}
	return len(list), nil
}
