// Package appointments exposes a lifecycle tracker over HTTP. One Handlers
// value serves one appointment kind and is mounted under /v1/{kind}.
package appointments

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"petcare/internal/adminaction"
	"petcare/internal/api"
	"petcare/internal/clock"
	"petcare/internal/lifecycle"
)

type Handlers[D lifecycle.Detail] struct {
	Tracker *lifecycle.Tracker[D]
	Clock   clock.Clock
	Logger  *slog.Logger
}

func NewHandlers[D lifecycle.Detail](t *lifecycle.Tracker[D], clk clock.Clock, logger *slog.Logger) Handlers[D] {
	if logger == nil {
		logger = slog.Default()
	}
	return Handlers[D]{Tracker: t, Clock: clk, Logger: logger.With("kind", string(t.Kind()))}
}

func (h Handlers[D]) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/board", h.Board)
	r.Get("/appointments/{id}", h.Get)
	r.Get("/appointments/{id}/events", h.Events)
	r.Post("/appointments/{id}/prompt", h.Prompt)
	r.Post("/appointments/{id}/transitions", h.Transition)
	r.Post("/appointments/{id}/admin/override", h.AdminOverride)
	r.Get("/resources/{resourceId}/availability", h.Availability)
	r.Post("/undo/{token}", h.Undo)
	return r
}

// Board serves one day. `status` is a comma-separated set; when the
// parameter is present but empty nothing is shown.
func (h Handlers[D]) Board(w http.ResponseWriter, r *http.Request) {
	f := api.FacilityFromContext(r.Context())
	if f == nil {
		api.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing facility identity")
		return
	}

	q := r.URL.Query()
	date := strings.TrimSpace(q.Get("date"))
	if date == "" {
		date = h.Clock.Now().Format("2006-01-02")
	}

	statuses := lifecycle.AllStatuses()
	if raw, ok := q["status"]; ok {
		set, err := parseStatusSet(raw)
		if err != nil {
			api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
			return
		}
		statuses = set
	}

	board, err := h.Tracker.Board(r.Context(), f.ID, date, lifecycle.Filter{Statuses: statuses, Query: q.Get("q")})
	if err != nil {
		h.writeLifecycleError(w, err)
		return
	}
	if board.Items == nil {
		board.Items = []lifecycle.Appointment[D]{}
	}
	writeJSON(w, http.StatusOK, board)
}

func (h Handlers[D]) Get(w http.ResponseWriter, r *http.Request) {
	f := api.FacilityFromContext(r.Context())
	if f == nil {
		api.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing facility identity")
		return
	}
	id := chi.URLParam(r, "id")

	a, err := h.Tracker.Get(r.Context(), f.ID, id)
	if err != nil {
		h.writeLifecycleError(w, err)
		return
	}
	actions, err := h.Tracker.Actions(r.Context(), f.ID, id)
	if err != nil {
		h.writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"appointment": a,
		"actions":     actions,
	})
}

func (h Handlers[D]) Events(w http.ResponseWriter, r *http.Request) {
	f := api.FacilityFromContext(r.Context())
	if f == nil {
		api.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing facility identity")
		return
	}

	evs, err := h.Tracker.Timeline(r.Context(), f.ID, chi.URLParam(r, "id"))
	if err != nil {
		h.writeLifecycleError(w, err)
		return
	}
	if evs == nil {
		evs = []lifecycle.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": evs})
}

type PromptRequest struct {
	To string `json:"to"`
}

func (h Handlers[D]) Prompt(w http.ResponseWriter, r *http.Request) {
	f := api.FacilityFromContext(r.Context())
	if f == nil {
		api.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing facility identity")
		return
	}

	var req PromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid json")
		return
	}
	to, err := lifecycle.ParseStatus(req.To)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid status")
		return
	}

	p, err := h.Tracker.Prompt(r.Context(), f.ID, chi.URLParam(r, "id"), to)
	if err != nil {
		h.writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// TransitionRequest carries the status the caller saw. An empty `to`
// advances one step.
type TransitionRequest struct {
	From      string `json:"from"`
	Version   int64  `json:"version,omitempty"`
	To        string `json:"to,omitempty"`
	Confirmed bool   `json:"confirmed"`
}

func (h Handlers[D]) Transition(w http.ResponseWriter, r *http.Request) {
	f := api.FacilityFromContext(r.Context())
	if f == nil {
		api.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing facility identity")
		return
	}

	var req TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid json")
		return
	}
	from, err := lifecycle.ParseStatus(req.From)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid from status")
		return
	}

	tr := lifecycle.TransitionRequest{
		ID:        chi.URLParam(r, "id"),
		From:      from,
		Version:   req.Version,
		Confirmed: req.Confirmed,
		Actor:     actor(r),
	}

	var res lifecycle.Result[D]
	if req.To == "" {
		res, err = h.Tracker.Advance(r.Context(), f.ID, tr)
	} else {
		tr.To, err = lifecycle.ParseStatus(req.To)
		if err != nil {
			api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid to status")
			return
		}
		res, err = h.Tracker.Apply(r.Context(), f.ID, tr)
	}
	if err != nil {
		h.writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type AdminOverrideRequest struct {
	ActionType string `json:"actionType"`
	Reason     string `json:"reason"`
	Version    int64  `json:"version,omitempty"`
}

func (h Handlers[D]) AdminOverride(w http.ResponseWriter, r *http.Request) {
	f := api.FacilityFromContext(r.Context())
	if f == nil {
		api.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing facility identity")
		return
	}
	if s := api.StaffFromContext(r.Context()); s == nil || !s.CanOverride() {
		api.WriteError(w, http.StatusForbidden, "FORBIDDEN", "manager role required")
		return
	}

	var req AdminOverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid json")
		return
	}
	if strings.TrimSpace(req.Reason) == "" {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "reason is required")
		return
	}
	action, err := adminaction.ParseActionType(req.ActionType)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid actionType")
		return
	}

	id := chi.URLParam(r, "id")
	cur, err := h.Tracker.Get(r.Context(), f.ID, id)
	if err != nil {
		h.writeLifecycleError(w, err)
		return
	}
	to, err := adminaction.Target(action, cur.Status)
	if err != nil {
		h.writeLifecycleError(w, err)
		return
	}

	version := req.Version
	if version == 0 {
		version = cur.Version
	}
	res, err := h.Tracker.Override(r.Context(), f.ID, lifecycle.OverrideRequest{
		ID:      id,
		From:    cur.Status,
		Version: version,
		To:      to,
		Action:  string(action),
		Reason:  strings.TrimSpace(req.Reason),
		Actor:   actor(r),
	})
	if err != nil {
		h.writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h Handlers[D]) Availability(w http.ResponseWriter, r *http.Request) {
	f := api.FacilityFromContext(r.Context())
	if f == nil {
		api.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing facility identity")
		return
	}

	rs, err := h.Tracker.Availability(r.Context(), f.ID, chi.URLParam(r, "resourceId"))
	if err != nil {
		h.writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rs)
}

func (h Handlers[D]) Undo(w http.ResponseWriter, r *http.Request) {
	f := api.FacilityFromContext(r.Context())
	if f == nil {
		api.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing facility identity")
		return
	}

	res, err := h.Tracker.Undo(r.Context(), f.ID, chi.URLParam(r, "token"), actor(r))
	if err != nil {
		h.writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// writeLifecycleError is the single mapping from tracker errors to the API envelope.
func (h Handlers[D]) writeLifecycleError(w http.ResponseWriter, err error) {
	var busy *lifecycle.BusyError
	switch {
	case errors.As(err, &busy):
		msg := "resource is busy"
		if busy.Occupant != "" {
			msg = fmt.Sprintf("resource is busy with %s", busy.Occupant)
		}
		api.WriteError(w, http.StatusConflict, "RESOURCE_BUSY", msg)
	case errors.Is(err, lifecycle.ErrNotFound):
		api.WriteError(w, http.StatusNotFound, "NOT_FOUND", "appointment not found")
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		api.WriteError(w, http.StatusConflict, "INVALID_STATE_TRANSITION", err.Error())
	case errors.Is(err, lifecycle.ErrStaleTransition):
		api.WriteError(w, http.StatusConflict, "STALE_TRANSITION", "appointment changed since it was loaded")
	case errors.Is(err, lifecycle.ErrConfirmationRequired):
		api.WriteError(w, http.StatusPreconditionRequired, "CONFIRMATION_REQUIRED", "forward transitions must be confirmed")
	case errors.Is(err, lifecycle.ErrUndoExpired):
		api.WriteError(w, http.StatusGone, "UNDO_EXPIRED", "undo is no longer available")
	case errors.Is(err, lifecycle.ErrUndoStale):
		api.WriteError(w, http.StatusConflict, "UNDO_STALE", "appointment changed since the action being undone")
	case errors.Is(err, lifecycle.ErrReasonRequired):
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "reason is required")
	default:
		h.Logger.Error("lifecycle operation failed", "err", err)
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}

func parseStatusSet(raw []string) (lifecycle.StatusSet, error) {
	var statuses []lifecycle.Status
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			s, err := lifecycle.ParseStatus(part)
			if err != nil {
				return nil, err
			}
			statuses = append(statuses, s)
		}
	}
	return lifecycle.NewStatusSet(statuses...), nil
}

func actor(r *http.Request) string {
	if s := api.StaffFromContext(r.Context()); s != nil {
		return s.Name
	}
	return "staff"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
