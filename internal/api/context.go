package api

import (
	"context"

	"petcare/internal/facility"
	"petcare/pkg/session"
)

type ctxKey string

const (
	ctxKeyFacility ctxKey = "facility"
	ctxKeyStaff    ctxKey = "staff"
)

func WithFacility(ctx context.Context, f *facility.Facility) context.Context {
	return context.WithValue(ctx, ctxKeyFacility, f)
}

func FacilityFromContext(ctx context.Context) *facility.Facility {
	v := ctx.Value(ctxKeyFacility)
	if v == nil {
		return nil
	}
	f, _ := v.(*facility.Facility)
	return f
}

func WithStaff(ctx context.Context, s *session.Staff) context.Context {
	return context.WithValue(ctx, ctxKeyStaff, s)
}

func StaffFromContext(ctx context.Context) *session.Staff {
	v := ctx.Value(ctxKeyStaff)
	if v == nil {
		return nil
	}
	s, _ := v.(*session.Staff)
	return s
}
