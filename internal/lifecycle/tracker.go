package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"petcare/internal/clock"
)

const DefaultUndoWindow = 5 * time.Second

// Tracker runs the appointment lifecycle for one kind (grooming or training).
// It is safe for concurrent use as long as its repository and ledger are.
type Tracker[D Detail] struct {
	kind       Kind
	vocab      Vocabulary
	repo       Repository[D]
	ledger     UndoLedger
	clock      clock.Clock
	notifier   Notifier
	logger     *slog.Logger
	tracer     trace.Tracer
	undoWindow time.Duration
	newID      func() string
}

type options struct {
	notifier   Notifier
	logger     *slog.Logger
	undoWindow time.Duration
	newID      func() string
}

type Option func(*options)

func WithNotifier(n Notifier) Option {
	return func(o *options) { o.notifier = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithUndoWindow overrides how long an undo context stays valid.
func WithUndoWindow(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.undoWindow = d
		}
	}
}

// WithIDGenerator replaces uuid generation for undo tokens and notifications.
func WithIDGenerator(fn func() string) Option {
	return func(o *options) {
		if fn != nil {
			o.newID = fn
		}
	}
}

func NewTracker[D Detail](kind Kind, vocab Vocabulary, repo Repository[D], ledger UndoLedger, clk clock.Clock, opts ...Option) *Tracker[D] {
	o := options{
		logger:     slog.Default(),
		undoWindow: DefaultUndoWindow,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Tracker[D]{
		kind:       kind,
		vocab:      vocab,
		repo:       repo,
		ledger:     ledger,
		clock:      clk,
		notifier:   o.notifier,
		logger:     o.logger.With("kind", string(kind)),
		tracer:     otel.Tracer("petcare/lifecycle"),
		undoWindow: o.undoWindow,
		newID:      o.newID,
	}
}

func (t *Tracker[D]) Kind() Kind { return t.kind }

func (t *Tracker[D]) Vocabulary() Vocabulary { return t.vocab }

func (t *Tracker[D]) Get(ctx context.Context, facilityID, id string) (Appointment[D], error) {
	return t.repo.Get(ctx, facilityID, id)
}

func (t *Tracker[D]) Timeline(ctx context.Context, facilityID, id string) ([]Event, error) {
	if _, err := t.repo.Get(ctx, facilityID, id); err != nil {
		return nil, err
	}
	return t.repo.Timeline(ctx, facilityID, id)
}

// Board returns the visible subset of a day, the day's summary, and the state
// of each resource booked that day.
func (t *Tracker[D]) Board(ctx context.Context, facilityID, date string, f Filter) (Board[D], error) {
	ctx, span := t.start(ctx, "lifecycle.Board", facilityID, attribute.String("date", date))
	defer span.End()

	list, err := t.repo.List(ctx, facilityID, ListQuery{Date: date})
	if err != nil {
		return Board[D]{}, t.fail(span, err)
	}
	// Availability is not date-bound: the start guard scans every day.
	all, err := t.repo.List(ctx, facilityID, ListQuery{})
	if err != nil {
		return Board[D]{}, t.fail(span, err)
	}
	return Board[D]{
		Date:      date,
		Items:     Visible(f, list),
		Resources: ProjectOnto(list, all),
		Summary:   Summarize(list),
	}, nil
}

// Availability scans every appointment bound to resourceID.
func (t *Tracker[D]) Availability(ctx context.Context, facilityID, resourceID string) (ResourceState, error) {
	list, err := t.repo.List(ctx, facilityID, ListQuery{ResourceID: resourceID})
	if err != nil {
		return ResourceState{}, err
	}
	for _, rs := range Project(list) {
		if rs.ResourceID == resourceID {
			return rs, nil
		}
	}
	return ResourceState{ResourceID: resourceID, Available: true}, nil
}

type NextAction struct {
	Label     string `json:"label"`
	Target    Status `json:"target"`
	Enabled   bool   `json:"enabled"`
	BlockedBy string `json:"blockedBy,omitempty"`
}

// Actions is what the UI may offer for one appointment right now.
type Actions struct {
	Status Status      `json:"status"`
	Next   *NextAction `json:"next,omitempty"`
	Revert []Status    `json:"revert"`
}

func (t *Tracker[D]) Actions(ctx context.Context, facilityID, id string) (Actions, error) {
	a, err := t.repo.Get(ctx, facilityID, id)
	if err != nil {
		return Actions{}, err
	}
	out := Actions{Status: a.Status, Revert: RevertTargets(a.Status)}
	if out.Revert == nil {
		out.Revert = []Status{}
	}

	next, ok := Next(a.Status)
	if !ok {
		return out, nil
	}
	na := &NextAction{Label: t.vocab.ActionLabel(next), Target: next, Enabled: true}
	if next == StatusInProgress {
		list, err := t.repo.List(ctx, facilityID, ListQuery{ResourceID: a.ResourceID})
		if err != nil {
			return Actions{}, err
		}
		var busy *BusyError
		if err := CheckExclusive(list, a); errors.As(err, &busy) {
			na.Enabled = false
			na.BlockedBy = busy.Occupant
		}
	}
	out.Next = na
	return out, nil
}

// Prompt is the confirmation dialog shown before a transition.
type Prompt struct {
	AppointmentID string `json:"appointmentId"`
	Subject       string `json:"subject"`
	Action        string `json:"action"`
	From          Status `json:"from"`
	To            Status `json:"to"`
	ToLabel       string `json:"toLabel"`
	Version       int64  `json:"version"`
	Message       string `json:"message"`
}

func (t *Tracker[D]) Prompt(ctx context.Context, facilityID, id string, to Status) (Prompt, error) {
	a, err := t.repo.Get(ctx, facilityID, id)
	if err != nil {
		return Prompt{}, err
	}
	if !CanTransition(a.Status, to) {
		return Prompt{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, to)
	}
	action := "Revert"
	if IsForward(a.Status, to) {
		action = t.vocab.ActionLabel(to)
	}
	return Prompt{
		AppointmentID: a.ID,
		Subject:       a.Subject(),
		Action:        action,
		From:          a.Status,
		To:            to,
		ToLabel:       to.Label(),
		Version:       a.Version,
		Message:       fmt.Sprintf("%s: mark %s as %s?", action, a.Subject(), to.Label()),
	}, nil
}

type TransitionRequest struct {
	ID string
	// From is the status the caller saw; the change fails as stale if it moved.
	From Status
	// Version pins the exact snapshot when non-zero.
	Version   int64
	To        Status
	Confirmed bool
	Actor     string
}

type Result[D Detail] struct {
	Appointment  Appointment[D] `json:"appointment"`
	Notification Notification   `json:"notification"`
}

// Apply performs one guarded status change and opens an undo window for it.
func (t *Tracker[D]) Apply(ctx context.Context, facilityID string, req TransitionRequest) (Result[D], error) {
	ctx, span := t.start(ctx, "lifecycle.Apply", facilityID,
		attribute.String("appointment.id", req.ID),
		attribute.String("status.from", string(req.From)),
		attribute.String("status.to", string(req.To)),
	)
	defer span.End()

	if !CanTransition(req.From, req.To) {
		return Result[D]{}, t.fail(span, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, req.From, req.To))
	}
	if IsForward(req.From, req.To) && !req.Confirmed {
		return Result[D]{}, t.fail(span, ErrConfirmationRequired)
	}

	now := t.clock.Now()
	a, err := t.repo.ChangeStatus(ctx, StatusChange{
		FacilityID:        facilityID,
		Kind:              t.kind,
		ID:                req.ID,
		From:              req.From,
		Version:           req.Version,
		To:                req.To,
		ExclusiveResource: req.To == StatusInProgress,
		Event:             EventStatusChanged,
		Summary:           fmt.Sprintf("Status changed to %s", req.To.Label()),
		Actor:             req.Actor,
		OccurredAt:        now,
	})
	if err != nil {
		return Result[D]{}, t.fail(span, err)
	}

	n := Notification{
		ID:            t.newID(),
		Kind:          NotificationSuccess,
		FacilityID:    facilityID,
		Appointment:   t.kind,
		AppointmentID: a.ID,
		Subject:       a.Subject(),
		Status:        a.Status,
		Message:       fmt.Sprintf("%s is now %s", a.Subject(), a.Status.Label()),
		OccurredAt:    now,
	}

	undo := UndoContext{
		Token:         t.newID(),
		FacilityID:    facilityID,
		Kind:          t.kind,
		AppointmentID: a.ID,
		Subject:       a.Subject(),
		Previous:      req.From,
		Applied:       a.Status,
		Version:       a.Version,
		ExpiresAt:     now.Add(t.undoWindow),
	}
	if err := t.ledger.Save(ctx, undo); err != nil {
		// The transition stands; it just cannot be undone.
		t.logger.Warn("undo context not saved", "appointment_id", a.ID, "err", err)
	} else {
		n.UndoToken = undo.Token
		n.ExpiresAt = &undo.ExpiresAt
	}

	t.logger.Info("appointment status changed",
		"facility_id", facilityID,
		"appointment_id", a.ID,
		"from", string(req.From),
		"to", string(a.Status),
		"version", a.Version,
		"actor", req.Actor,
	)
	t.notify(ctx, n)

	return Result[D]{Appointment: a, Notification: n}, nil
}

// Advance applies the single forward step from req.From.
func (t *Tracker[D]) Advance(ctx context.Context, facilityID string, req TransitionRequest) (Result[D], error) {
	next, ok := Next(req.From)
	if !ok {
		return Result[D]{}, fmt.Errorf("%w: no step after %s", ErrInvalidTransition, req.From)
	}
	req.To = next
	return t.Apply(ctx, facilityID, req)
}

// Undo restores the status captured by token. It only succeeds while the
// appointment is still exactly as that transition left it.
func (t *Tracker[D]) Undo(ctx context.Context, facilityID, token, actor string) (Result[D], error) {
	ctx, span := t.start(ctx, "lifecycle.Undo", facilityID)
	defer span.End()

	u, err := t.ledger.Take(ctx, facilityID, t.kind, token)
	if err != nil {
		return Result[D]{}, t.fail(span, err)
	}
	now := t.clock.Now()
	if u.FacilityID != facilityID || u.Kind != t.kind || now.After(u.ExpiresAt) {
		return Result[D]{}, t.fail(span, ErrUndoExpired)
	}

	a, err := t.repo.ChangeStatus(ctx, StatusChange{
		FacilityID:        facilityID,
		Kind:              t.kind,
		ID:                u.AppointmentID,
		From:              u.Applied,
		Version:           u.Version,
		To:                u.Previous,
		ExclusiveResource: u.Previous == StatusInProgress,
		Event:             EventStatusUndone,
		Summary:           fmt.Sprintf("Status reverted to %s", u.Previous.Label()),
		Actor:             actor,
		OccurredAt:        now,
	})
	if errors.Is(err, ErrStaleTransition) {
		return Result[D]{}, t.fail(span, fmt.Errorf("%w: %v", ErrUndoStale, err))
	}
	if err != nil {
		return Result[D]{}, t.fail(span, err)
	}

	n := Notification{
		ID:            t.newID(),
		Kind:          NotificationInfo,
		FacilityID:    facilityID,
		Appointment:   t.kind,
		AppointmentID: a.ID,
		Subject:       a.Subject(),
		Status:        a.Status,
		Message:       fmt.Sprintf("%s reverted to %s", a.Subject(), a.Status.Label()),
		OccurredAt:    now,
	}
	t.logger.Info("appointment status undone",
		"facility_id", facilityID,
		"appointment_id", a.ID,
		"from", string(u.Applied),
		"to", string(a.Status),
		"version", a.Version,
	)
	t.notify(ctx, n)

	return Result[D]{Appointment: a, Notification: n}, nil
}

type OverrideRequest struct {
	ID      string
	From    Status
	Version int64
	To      Status
	Action  string
	Reason  string
	Actor   string
}

// Override moves an appointment into or out of a terminal state. These moves
// are outside the lifecycle graph and cannot be undone.
func (t *Tracker[D]) Override(ctx context.Context, facilityID string, req OverrideRequest) (Result[D], error) {
	ctx, span := t.start(ctx, "lifecycle.Override", facilityID,
		attribute.String("appointment.id", req.ID),
		attribute.String("action", req.Action),
	)
	defer span.End()

	if !t.vocab.Terminal || !(req.From.IsTerminal() || req.To.IsTerminal()) {
		return Result[D]{}, t.fail(span, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, req.From, req.To))
	}
	if req.Reason == "" {
		return Result[D]{}, t.fail(span, ErrReasonRequired)
	}

	now := t.clock.Now()
	a, err := t.repo.ChangeStatus(ctx, StatusChange{
		FacilityID: facilityID,
		Kind:       t.kind,
		ID:         req.ID,
		From:       req.From,
		Version:    req.Version,
		To:         req.To,
		Event:      EventAdminOverride,
		Summary:    "Admin override applied",
		Actor:      req.Actor,
		Reason:     req.Reason,
		Action:     req.Action,
		OccurredAt: now,
	})
	if err != nil {
		return Result[D]{}, t.fail(span, err)
	}

	n := Notification{
		ID:            t.newID(),
		Kind:          NotificationInfo,
		FacilityID:    facilityID,
		Appointment:   t.kind,
		AppointmentID: a.ID,
		Subject:       a.Subject(),
		Status:        a.Status,
		Message:       fmt.Sprintf("%s marked %s", a.Subject(), a.Status.Label()),
		OccurredAt:    now,
	}
	t.logger.Info("appointment override applied",
		"facility_id", facilityID,
		"appointment_id", a.ID,
		"action", req.Action,
		"to", string(a.Status),
	)
	t.notify(ctx, n)

	return Result[D]{Appointment: a, Notification: n}, nil
}

func (t *Tracker[D]) notify(ctx context.Context, n Notification) {
	if t.notifier == nil {
		return
	}
	if err := t.notifier.Notify(ctx, n); err != nil {
		t.logger.Warn("notification failed", "appointment_id", n.AppointmentID, "err", err)
	}
}

func (t *Tracker[D]) start(ctx context.Context, name, facilityID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs,
		attribute.String("facility.id", facilityID),
		attribute.String("appointment.kind", string(t.kind)),
	)
	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (t *Tracker[D]) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
