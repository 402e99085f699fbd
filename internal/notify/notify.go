package notify

import (
	"context"
	"errors"
	"log/slog"

	"petcare/internal/lifecycle"
)

// Log writes every notification to the structured log.
type Log struct {
	Logger *slog.Logger
}

func (l Log) Notify(_ context.Context, n lifecycle.Notification) error {
	args := []any{
		"notification_id", n.ID,
		"kind", string(n.Kind),
		"facility_id", n.FacilityID,
		"appointment_kind", string(n.Appointment),
		"appointment_id", n.AppointmentID,
		"status", string(n.Status),
	}
	if n.UndoToken != "" {
		args = append(args, "undoable", true)
	}
	l.Logger.Info(n.Message, args...)
	return nil
}

// Fanout delivers to every notifier and joins their errors.
type Fanout []lifecycle.Notifier

func (f Fanout) Notify(ctx context.Context, n lifecycle.Notification) error {
	var errs []error
	for _, target := range f {
		if target == nil {
			continue
		}
		if err := target.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
