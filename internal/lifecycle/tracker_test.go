package lifecycle_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"petcare/internal/clock"
	"petcare/internal/grooming"
	"petcare/internal/lifecycle"
	"petcare/internal/storage/memory"
	"petcare/internal/training"
	"petcare/internal/undo"
)

const facilityID = "fac-1"

type fixture struct {
	clock    *clock.Manual
	repo     *memory.AppointmentRepository[grooming.Detail]
	ledger   *undo.MemoryLedger
	tracker  *grooming.Tracker
	notified []lifecycle.Notification
	mu       sync.Mutex
}

func newFixture(t *testing.T, appts ...grooming.Appointment) *fixture {
	t.Helper()
	f := &fixture{
		clock: clock.NewManual(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)),
		repo:  memory.NewAppointmentRepository[grooming.Detail](lifecycle.KindGrooming),
	}
	f.ledger = undo.NewMemoryLedger(f.clock)
	seq := 0
	f.tracker = grooming.NewTracker(f.repo, f.ledger, f.clock,
		lifecycle.WithNotifier(lifecycle.NotifierFunc(func(_ context.Context, n lifecycle.Notification) error {
			f.mu.Lock()
			f.notified = append(f.notified, n)
			f.mu.Unlock()
			return nil
		})),
		lifecycle.WithIDGenerator(func() string {
			f.mu.Lock()
			defer f.mu.Unlock()
			seq++
			return fmt.Sprintf("id-%d", seq)
		}),
	)
	for _, a := range appts {
		if err := f.repo.Insert(context.Background(), a); err != nil {
			t.Fatalf("insert %s: %v", a.ID, err)
		}
	}
	return f
}

func appt(id, resource, pet string, status lifecycle.Status) grooming.Appointment {
	return grooming.Appointment{
		ID:           id,
		FacilityID:   facilityID,
		Date:         "2025-03-10",
		ResourceID:   resource,
		ResourceName: "Stylist " + resource,
		Status:       status,
		Detail: grooming.Detail{
			Pet:          grooming.Pet{Name: pet, Breed: "Beagle"},
			Owner:        grooming.Owner{Name: "Owner of " + pet, Phone: "555-0100"},
			PackagePrice: decimal.RequireFromString("40.00"),
		},
	}
}

func (f *fixture) status(t *testing.T, id string) lifecycle.Status {
	t.Helper()
	a, err := f.repo.Get(context.Background(), facilityID, id)
	if err != nil {
		t.Fatalf("get %s: %v", id, err)
	}
	return a.Status
}

func (f *fixture) available(t *testing.T, resource string) bool {
	t.Helper()
	list, err := f.repo.List(context.Background(), facilityID, lifecycle.ListQuery{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	return lifecycle.IsResourceAvailable(list, resource)
}

func (f *fixture) advance(t *testing.T, id string) lifecycle.Result[grooming.Detail] {
	t.Helper()
	a, err := f.repo.Get(context.Background(), facilityID, id)
	if err != nil {
		t.Fatalf("get %s: %v", id, err)
	}
	res, err := f.tracker.Advance(context.Background(), facilityID, lifecycle.TransitionRequest{
		ID: id, From: a.Status, Version: a.Version, Confirmed: true, Actor: "sam",
	})
	if err != nil {
		t.Fatalf("advance %s from %s: %v", id, a.Status, err)
	}
	return res
}

func TestAdvance_VisitsChainInOrder(t *testing.T) {
	f := newFixture(t, appt("apt-1", "stylist-1", "Rex", lifecycle.StatusScheduled))

	want := []lifecycle.Status{lifecycle.StatusPending, lifecycle.StatusInProgress, lifecycle.StatusCompleted}
	for _, w := range want {
		res := f.advance(t, "apt-1")
		if res.Appointment.Status != w {
			t.Fatalf("expected %s, got %s", w, res.Appointment.Status)
		}
	}

	_, err := f.tracker.Advance(context.Background(), facilityID, lifecycle.TransitionRequest{
		ID: "apt-1", From: lifecycle.StatusCompleted, Confirmed: true,
	})
	if !errors.Is(err, lifecycle.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition past completed, got %v", err)
	}
}

func TestApply_RejectsSkipsAndRequiresConfirmation(t *testing.T) {
	f := newFixture(t, appt("apt-1", "stylist-1", "Rex", lifecycle.StatusScheduled))
	ctx := context.Background()

	_, err := f.tracker.Apply(ctx, facilityID, lifecycle.TransitionRequest{
		ID: "apt-1", From: lifecycle.StatusScheduled, To: lifecycle.StatusInProgress, Confirmed: true,
	})
	if !errors.Is(err, lifecycle.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for skip, got %v", err)
	}

	_, err = f.tracker.Apply(ctx, facilityID, lifecycle.TransitionRequest{
		ID: "apt-1", From: lifecycle.StatusScheduled, To: lifecycle.StatusPending,
	})
	if !errors.Is(err, lifecycle.ErrConfirmationRequired) {
		t.Fatalf("expected ErrConfirmationRequired, got %v", err)
	}
	if got := f.status(t, "apt-1"); got != lifecycle.StatusScheduled {
		t.Fatalf("rejected transitions must not mutate, got %s", got)
	}
}

func TestApply_RejectsStaleSnapshot(t *testing.T) {
	f := newFixture(t, appt("apt-1", "stylist-1", "Rex", lifecycle.StatusScheduled))
	ctx := context.Background()
	f.advance(t, "apt-1")

	_, err := f.tracker.Apply(ctx, facilityID, lifecycle.TransitionRequest{
		ID: "apt-1", From: lifecycle.StatusScheduled, To: lifecycle.StatusPending, Confirmed: true,
	})
	if !errors.Is(err, lifecycle.ErrStaleTransition) {
		t.Fatalf("expected ErrStaleTransition for old status, got %v", err)
	}

	_, err = f.tracker.Apply(ctx, facilityID, lifecycle.TransitionRequest{
		ID: "apt-1", From: lifecycle.StatusPending, Version: 1, To: lifecycle.StatusInProgress, Confirmed: true,
	})
	if !errors.Is(err, lifecycle.ErrStaleTransition) {
		t.Fatalf("expected ErrStaleTransition for old version, got %v", err)
	}
}

func TestApply_NotFoundAcrossFacilities(t *testing.T) {
	other := appt("apt-9", "stylist-1", "Rex", lifecycle.StatusScheduled)
	other.FacilityID = "fac-2"
	f := newFixture(t, other)

	_, err := f.tracker.Apply(context.Background(), facilityID, lifecycle.TransitionRequest{
		ID: "apt-9", From: lifecycle.StatusScheduled, To: lifecycle.StatusPending, Confirmed: true,
	})
	if !errors.Is(err, lifecycle.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStartThenUndo_RestoresAvailability(t *testing.T) {
	f := newFixture(t, appt("apt-1", "stylist-1", "Rex", lifecycle.StatusPending))

	res := f.advance(t, "apt-1")
	if res.Appointment.Status != lifecycle.StatusInProgress {
		t.Fatalf("expected in-progress, got %s", res.Appointment.Status)
	}
	if f.available(t, "stylist-1") {
		t.Fatalf("stylist-1 should be busy")
	}
	if res.Notification.Kind != lifecycle.NotificationSuccess || res.Notification.Message != "Rex is now In Progress" {
		t.Fatalf("unexpected notification: %+v", res.Notification)
	}
	if res.Notification.UndoToken == "" || res.Notification.ExpiresAt == nil {
		t.Fatalf("notification should carry undo: %+v", res.Notification)
	}

	undone, err := f.tracker.Undo(context.Background(), facilityID, res.Notification.UndoToken, "sam")
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	if undone.Appointment.Status != lifecycle.StatusPending || f.status(t, "apt-1") != lifecycle.StatusPending {
		t.Fatalf("expected pending after undo, got %s", undone.Appointment.Status)
	}
	if !f.available(t, "stylist-1") {
		t.Fatalf("stylist-1 should be available after undo")
	}
	if undone.Notification.Kind != lifecycle.NotificationInfo || undone.Notification.Message != "Rex reverted to Pending" {
		t.Fatalf("unexpected undo notification: %+v", undone.Notification)
	}
	if len(f.notified) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(f.notified))
	}
}

func TestStart_BlockedWhileResourceBusy(t *testing.T) {
	f := newFixture(t,
		appt("apt-1", "stylist-1", "Rex", lifecycle.StatusInProgress),
		appt("apt-2", "stylist-1", "Bella", lifecycle.StatusPending),
	)
	ctx := context.Background()

	actions, err := f.tracker.Actions(ctx, facilityID, "apt-2")
	if err != nil {
		t.Fatalf("actions: %v", err)
	}
	if actions.Next == nil || actions.Next.Enabled || actions.Next.BlockedBy != "Rex" || actions.Next.Label != "Start" {
		t.Fatalf("start should be disabled and blocked by Rex: %+v", actions.Next)
	}

	_, err = f.tracker.Apply(ctx, facilityID, lifecycle.TransitionRequest{
		ID: "apt-2", From: lifecycle.StatusPending, To: lifecycle.StatusInProgress, Confirmed: true,
	})
	var busy *lifecycle.BusyError
	if !errors.As(err, &busy) || !errors.Is(err, lifecycle.ErrResourceBusy) {
		t.Fatalf("expected BusyError, got %v", err)
	}
	if busy.Occupant != "Rex" || busy.AppointmentID != "apt-1" {
		t.Fatalf("unexpected busy error: %+v", busy)
	}
	if got := f.status(t, "apt-2"); got != lifecycle.StatusPending {
		t.Fatalf("apt-2 must stay pending, got %s", got)
	}
}

func TestStart_ConcurrentAttemptsYieldOneInProgress(t *testing.T) {
	const n = 8
	var appts []grooming.Appointment
	for i := 0; i < n; i++ {
		appts = append(appts, appt(fmt.Sprintf("apt-%d", i), "stylist-1", fmt.Sprintf("Pet%d", i), lifecycle.StatusPending))
	}
	f := newFixture(t, appts...)

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := f.tracker.Apply(context.Background(), facilityID, lifecycle.TransitionRequest{
				ID: id, From: lifecycle.StatusPending, To: lifecycle.StatusInProgress, Confirmed: true,
			})
			errs <- err
		}(fmt.Sprintf("apt-%d", i))
	}
	wg.Wait()
	close(errs)

	var ok int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, lifecycle.ErrResourceBusy):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("expected exactly one start to succeed, got %d", ok)
	}

	list, _ := f.repo.List(context.Background(), facilityID, lifecycle.ListQuery{ResourceID: "stylist-1"})
	var inProgress int
	for _, a := range list {
		if a.Status == lifecycle.StatusInProgress {
			inProgress++
		}
	}
	if inProgress != 1 {
		t.Fatalf("expected 1 in-progress appointment, got %d", inProgress)
	}
}

func TestUndo_RestoresExactPriorStatusOfOneAppointment(t *testing.T) {
	cases := []struct {
		from, to lifecycle.Status
	}{
		{lifecycle.StatusScheduled, lifecycle.StatusPending},
		{lifecycle.StatusPending, lifecycle.StatusInProgress},
		{lifecycle.StatusInProgress, lifecycle.StatusCompleted},
		{lifecycle.StatusCompleted, lifecycle.StatusScheduled},
		{lifecycle.StatusCompleted, lifecycle.StatusInProgress},
		{lifecycle.StatusInProgress, lifecycle.StatusPending},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s->%s", tc.from, tc.to), func(t *testing.T) {
			f := newFixture(t,
				appt("apt-1", "stylist-1", "Rex", tc.from),
				appt("apt-2", "stylist-2", "Bella", lifecycle.StatusPending),
			)
			ctx := context.Background()

			res, err := f.tracker.Apply(ctx, facilityID, lifecycle.TransitionRequest{
				ID: "apt-1", From: tc.from, To: tc.to, Confirmed: true,
			})
			if err != nil {
				t.Fatalf("apply: %v", err)
			}
			if _, err := f.tracker.Undo(ctx, facilityID, res.Notification.UndoToken, "sam"); err != nil {
				t.Fatalf("undo: %v", err)
			}
			if got := f.status(t, "apt-1"); got != tc.from {
				t.Fatalf("expected %s after undo, got %s", tc.from, got)
			}
			if got := f.status(t, "apt-2"); got != lifecycle.StatusPending {
				t.Fatalf("other appointment changed to %s", got)
			}
		})
	}
}

func TestRevert_FromCompletedReachesNamedTarget(t *testing.T) {
	for _, target := range []lifecycle.Status{lifecycle.StatusScheduled, lifecycle.StatusPending, lifecycle.StatusInProgress} {
		t.Run(string(target), func(t *testing.T) {
			f := newFixture(t, appt("apt-1", "stylist-1", "Rex", lifecycle.StatusCompleted))

			prompt, err := f.tracker.Prompt(context.Background(), facilityID, "apt-1", target)
			if err != nil {
				t.Fatalf("prompt: %v", err)
			}
			if prompt.Action != "Revert" {
				t.Fatalf("expected Revert action, got %q", prompt.Action)
			}

			// Reverts need no confirmation.
			res, err := f.tracker.Apply(context.Background(), facilityID, lifecycle.TransitionRequest{
				ID: "apt-1", From: lifecycle.StatusCompleted, To: target,
			})
			if err != nil {
				t.Fatalf("revert: %v", err)
			}
			if res.Appointment.Status != target {
				t.Fatalf("expected %s, got %s", target, res.Appointment.Status)
			}
		})
	}
}

func TestUndo_ExpiresAfterWindow(t *testing.T) {
	f := newFixture(t, appt("apt-1", "stylist-1", "Rex", lifecycle.StatusScheduled))
	res := f.advance(t, "apt-1")

	f.clock.Advance(lifecycle.DefaultUndoWindow + time.Millisecond)

	_, err := f.tracker.Undo(context.Background(), facilityID, res.Notification.UndoToken, "sam")
	if !errors.Is(err, lifecycle.ErrUndoExpired) {
		t.Fatalf("expected ErrUndoExpired, got %v", err)
	}
	if got := f.status(t, "apt-1"); got != lifecycle.StatusPending {
		t.Fatalf("expired undo must not mutate, got %s", got)
	}
}

func TestUndo_IsSingleUse(t *testing.T) {
	f := newFixture(t, appt("apt-1", "stylist-1", "Rex", lifecycle.StatusScheduled))
	res := f.advance(t, "apt-1")
	ctx := context.Background()

	if _, err := f.tracker.Undo(ctx, facilityID, res.Notification.UndoToken, "sam"); err != nil {
		t.Fatalf("first undo: %v", err)
	}
	if _, err := f.tracker.Undo(ctx, facilityID, res.Notification.UndoToken, "sam"); !errors.Is(err, lifecycle.ErrUndoExpired) {
		t.Fatalf("expected ErrUndoExpired on reuse, got %v", err)
	}
}

func TestUndo_SupersededByLaterTransition(t *testing.T) {
	f := newFixture(t, appt("apt-1", "stylist-1", "Rex", lifecycle.StatusScheduled))
	first := f.advance(t, "apt-1")
	second := f.advance(t, "apt-1")
	ctx := context.Background()

	if _, err := f.tracker.Undo(ctx, facilityID, first.Notification.UndoToken, "sam"); !errors.Is(err, lifecycle.ErrUndoExpired) {
		t.Fatalf("expected superseded token to be gone, got %v", err)
	}
	if got := f.status(t, "apt-1"); got != lifecycle.StatusInProgress {
		t.Fatalf("superseded undo must not resurrect old status, got %s", got)
	}

	if _, err := f.tracker.Undo(ctx, facilityID, second.Notification.UndoToken, "sam"); err != nil {
		t.Fatalf("latest undo: %v", err)
	}
	if got := f.status(t, "apt-1"); got != lifecycle.StatusPending {
		t.Fatalf("expected pending, got %s", got)
	}
}

func TestUndo_StaleAfterOutOfBandChange(t *testing.T) {
	f := newFixture(t, appt("apt-1", "stylist-1", "Rex", lifecycle.StatusScheduled))
	ctx := context.Background()
	res := f.advance(t, "apt-1")

	// A manager cancels the appointment before staff hit Undo.
	if _, err := f.tracker.Override(ctx, facilityID, lifecycle.OverrideRequest{
		ID: "apt-1", From: lifecycle.StatusPending, To: lifecycle.StatusCancelled,
		Action: "CANCEL", Reason: "owner called", Actor: "manager",
	}); err != nil {
		t.Fatalf("override: %v", err)
	}

	_, err := f.tracker.Undo(ctx, facilityID, res.Notification.UndoToken, "sam")
	if !errors.Is(err, lifecycle.ErrUndoStale) {
		t.Fatalf("expected ErrUndoStale, got %v", err)
	}
	if got := f.status(t, "apt-1"); got != lifecycle.StatusCancelled {
		t.Fatalf("stale undo must not mutate, got %s", got)
	}
}

func TestUndo_OtherScopeIsExpiredAndLeavesTokenUsable(t *testing.T) {
	f := newFixture(t, appt("apt-1", "stylist-1", "Rex", lifecycle.StatusScheduled))
	res := f.advance(t, "apt-1")
	ctx := context.Background()

	_, err := f.tracker.Undo(ctx, "fac-2", res.Notification.UndoToken, "sam")
	if !errors.Is(err, lifecycle.ErrUndoExpired) {
		t.Fatalf("expected ErrUndoExpired for another facility, got %v", err)
	}

	sessions := training.NewTracker(memory.NewAppointmentRepository[training.Detail](lifecycle.KindTraining), f.ledger, f.clock)
	_, err = sessions.Undo(ctx, facilityID, res.Notification.UndoToken, "sam")
	if !errors.Is(err, lifecycle.ErrUndoExpired) {
		t.Fatalf("expected ErrUndoExpired for another kind, got %v", err)
	}

	if _, err := f.tracker.Undo(ctx, facilityID, res.Notification.UndoToken, "sam"); err != nil {
		t.Fatalf("token must still work in its own scope: %v", err)
	}
	if got := f.status(t, "apt-1"); got != lifecycle.StatusScheduled {
		t.Fatalf("expected scheduled after undo, got %s", got)
	}
}

type closedLedger struct{}

func (closedLedger) Save(context.Context, lifecycle.UndoContext) error {
	return undo.ErrWindowClosed
}

func (closedLedger) Take(context.Context, string, lifecycle.Kind, string) (lifecycle.UndoContext, error) {
	return lifecycle.UndoContext{}, lifecycle.ErrUndoExpired
}

func TestApply_NoUndoTokenWhenLedgerRefuses(t *testing.T) {
	clk := clock.NewManual(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	repo := memory.NewAppointmentRepository[grooming.Detail](lifecycle.KindGrooming)
	if err := repo.Insert(context.Background(), appt("apt-1", "stylist-1", "Rex", lifecycle.StatusScheduled)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	tr := grooming.NewTracker(repo, closedLedger{}, clk)

	res, err := tr.Apply(context.Background(), facilityID, lifecycle.TransitionRequest{
		ID: "apt-1", From: lifecycle.StatusScheduled, To: lifecycle.StatusPending, Confirmed: true,
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if res.Appointment.Status != lifecycle.StatusPending {
		t.Fatalf("transition must stand, got %s", res.Appointment.Status)
	}
	if res.Notification.UndoToken != "" || res.Notification.ExpiresAt != nil {
		t.Fatalf("no undo may be advertised, got %+v", res.Notification)
	}
}

func TestOverride_RequiresReasonAndTerminalEdge(t *testing.T) {
	f := newFixture(t, appt("apt-1", "stylist-1", "Rex", lifecycle.StatusScheduled))
	ctx := context.Background()

	_, err := f.tracker.Override(ctx, facilityID, lifecycle.OverrideRequest{
		ID: "apt-1", From: lifecycle.StatusScheduled, To: lifecycle.StatusCancelled, Action: "CANCEL",
	})
	if !errors.Is(err, lifecycle.ErrReasonRequired) {
		t.Fatalf("expected ErrReasonRequired, got %v", err)
	}

	_, err = f.tracker.Override(ctx, facilityID, lifecycle.OverrideRequest{
		ID: "apt-1", From: lifecycle.StatusScheduled, To: lifecycle.StatusCompleted, Reason: "skip", Action: "CANCEL",
	})
	if !errors.Is(err, lifecycle.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for non-terminal override, got %v", err)
	}

	res, err := f.tracker.Override(ctx, facilityID, lifecycle.OverrideRequest{
		ID: "apt-1", From: lifecycle.StatusScheduled, To: lifecycle.StatusNoShow, Reason: "did not arrive", Action: "MARK_NO_SHOW",
	})
	if err != nil {
		t.Fatalf("override: %v", err)
	}
	if res.Notification.UndoToken != "" {
		t.Fatalf("overrides are not undoable")
	}

	evs, err := f.tracker.Timeline(ctx, facilityID, "apt-1")
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if len(evs) != 1 || evs[0].EventType != lifecycle.EventAdminOverride || evs[0].Data["reason"] != "did not arrive" {
		t.Fatalf("unexpected timeline: %+v", evs)
	}

	// Terminal states have no lifecycle edges.
	_, err = f.tracker.Apply(ctx, facilityID, lifecycle.TransitionRequest{
		ID: "apt-1", From: lifecycle.StatusNoShow, To: lifecycle.StatusScheduled,
	})
	if !errors.Is(err, lifecycle.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition out of no-show, got %v", err)
	}
}

func TestOverride_UnsupportedForTraining(t *testing.T) {
	clk := clock.NewManual(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	repo := memory.NewAppointmentRepository[training.Detail](lifecycle.KindTraining)
	tr := training.NewTracker(repo, undo.NewMemoryLedger(clk), clk)
	if err := repo.Insert(context.Background(), training.Session{
		ID: "s1", FacilityID: facilityID, Date: "2025-03-10", ResourceID: "trainer-1",
		Detail: training.Detail{ClassName: "Puppy Basics"},
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	_, err := tr.Override(context.Background(), facilityID, lifecycle.OverrideRequest{
		ID: "s1", From: lifecycle.StatusScheduled, To: lifecycle.StatusCancelled, Reason: "trainer sick", Action: "CANCEL",
	})
	if !errors.Is(err, lifecycle.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	res, err := tr.Apply(context.Background(), facilityID, lifecycle.TransitionRequest{
		ID: "s1", From: lifecycle.StatusScheduled, To: lifecycle.StatusPending, Confirmed: true,
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if res.Notification.Message != "Puppy Basics is now Pending" {
		t.Fatalf("unexpected message: %q", res.Notification.Message)
	}
}

func TestPrompt_UsesVocabulary(t *testing.T) {
	f := newFixture(t, appt("apt-1", "stylist-1", "Rex", lifecycle.StatusScheduled))

	p, err := f.tracker.Prompt(context.Background(), facilityID, "apt-1", lifecycle.StatusPending)
	if err != nil {
		t.Fatalf("prompt: %v", err)
	}
	if p.Action != "Arrived" || p.Message != "Arrived: mark Rex as Pending?" || p.Version != 1 {
		t.Fatalf("unexpected prompt: %+v", p)
	}
	if got := f.status(t, "apt-1"); got != lifecycle.StatusScheduled {
		t.Fatalf("prompt must not mutate, got %s", got)
	}
}

func TestBoard_FiltersItemsButSummarizesWholeDay(t *testing.T) {
	cancelled := appt("apt-3", "stylist-2", "Luna", lifecycle.StatusCancelled)
	done := appt("apt-4", "stylist-2", "Milo", lifecycle.StatusCompleted)
	done.Detail.PackagePrice = decimal.RequireFromString("35.505")
	f := newFixture(t,
		appt("apt-1", "stylist-1", "Rex", lifecycle.StatusInProgress),
		appt("apt-2", "stylist-1", "Bella", lifecycle.StatusPending),
		cancelled,
		done,
	)

	board, err := f.tracker.Board(context.Background(), facilityID, "2025-03-10", lifecycle.Filter{
		Statuses: lifecycle.NewStatusSet(lifecycle.StatusPending),
		Query:    "BELL",
	})
	if err != nil {
		t.Fatalf("board: %v", err)
	}
	if len(board.Items) != 1 || board.Items[0].ID != "apt-2" {
		t.Fatalf("unexpected items: %+v", board.Items)
	}
	if board.Summary.Total != 4 || board.Summary.Counts[lifecycle.StatusCancelled] != 1 {
		t.Fatalf("unexpected summary: %+v", board.Summary)
	}
	if !board.Summary.Booked.Equal(decimal.RequireFromString("115.51")) {
		t.Fatalf("booked = %s, want 115.51", board.Summary.Booked)
	}
	if !board.Summary.Completed.Equal(decimal.RequireFromString("35.51")) {
		t.Fatalf("completed = %s, want 35.51", board.Summary.Completed)
	}
	if len(board.Resources) != 2 || board.Resources[0].Available || board.Resources[0].Occupant != "Rex" || !board.Resources[1].Available {
		t.Fatalf("unexpected resources: %+v", board.Resources)
	}
}

func TestBoard_ResourceBusyOnAnotherDayMatchesStartGuard(t *testing.T) {
	yesterday := appt("apt-0", "stylist-1", "Max", lifecycle.StatusInProgress)
	yesterday.Date = "2025-03-09"
	f := newFixture(t, yesterday, appt("apt-1", "stylist-1", "Rex", lifecycle.StatusPending))
	ctx := context.Background()

	board, err := f.tracker.Board(ctx, facilityID, "2025-03-10", lifecycle.Filter{Statuses: lifecycle.AllStatuses()})
	if err != nil {
		t.Fatalf("board: %v", err)
	}
	if len(board.Items) != 1 || board.Items[0].ID != "apt-1" {
		t.Fatalf("unexpected items: %+v", board.Items)
	}
	if len(board.Resources) != 1 {
		t.Fatalf("expected only the day's resource, got %+v", board.Resources)
	}
	rs := board.Resources[0]
	if rs.Available || rs.Occupant != "Max" || rs.AppointmentID != "apt-0" {
		t.Fatalf("board must show stylist-1 busy with Max, got %+v", rs)
	}

	actions, err := f.tracker.Actions(ctx, facilityID, "apt-1")
	if err != nil {
		t.Fatalf("actions: %v", err)
	}
	if actions.Next == nil || actions.Next.Enabled || actions.Next.BlockedBy != "Max" {
		t.Fatalf("start must be blocked by Max, got %+v", actions.Next)
	}
	if board.Summary.Total != 1 {
		t.Fatalf("summary must cover the day only, got %+v", board.Summary)
	}
}

func TestAvailability_ScansWholeCollection(t *testing.T) {
	tomorrow := appt("apt-2", "stylist-1", "Bella", lifecycle.StatusInProgress)
	tomorrow.Date = "2025-03-11"
	f := newFixture(t, appt("apt-1", "stylist-1", "Rex", lifecycle.StatusScheduled), tomorrow)

	rs, err := f.tracker.Availability(context.Background(), facilityID, "stylist-1")
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if rs.Available || rs.Occupant != "Bella" {
		t.Fatalf("unexpected state: %+v", rs)
	}

	rs, err = f.tracker.Availability(context.Background(), facilityID, "stylist-9")
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if !rs.Available {
		t.Fatalf("unknown resource should be available")
	}
}

func TestApply_NotifierFailureDoesNotFailTransition(t *testing.T) {
	clk := clock.NewManual(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	repo := memory.NewAppointmentRepository[grooming.Detail](lifecycle.KindGrooming)
	if err := repo.Insert(context.Background(), appt("apt-1", "stylist-1", "Rex", lifecycle.StatusScheduled)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	tr := grooming.NewTracker(repo, undo.NewMemoryLedger(clk), clk,
		lifecycle.WithNotifier(lifecycle.NotifierFunc(func(context.Context, lifecycle.Notification) error {
			return errors.New("broker down")
		})),
	)

	res, err := tr.Apply(context.Background(), facilityID, lifecycle.TransitionRequest{
		ID: "apt-1", From: lifecycle.StatusScheduled, To: lifecycle.StatusPending, Confirmed: true,
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if res.Appointment.Status != lifecycle.StatusPending {
		t.Fatalf("expected pending, got %s", res.Appointment.Status)
	}
}
