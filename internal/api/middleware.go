package api

import (
	"errors"
	"net/http"
	"strings"

	"petcare/internal/facility"
	"petcare/pkg/session"
)

// FacilityHeaderAuth is the development identity: the caller names the
// facility via `X-Facility` (or `?facility=`) and optionally the staff
// member via `X-Staff`. It must not be mounted in prod.
func FacilityHeaderAuth(store facility.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			slug := strings.TrimSpace(r.Header.Get("X-Facility"))
			if slug == "" {
				slug = strings.TrimSpace(r.URL.Query().Get("facility"))
			}
			if slug == "" {
				WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing facility identity")
				return
			}

			f, err := store.FindBySlug(r.Context(), slug)
			if err != nil {
				if errors.Is(err, facility.ErrNotFound) {
					WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "unknown facility")
					return
				}
				WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to load facility")
				return
			}

			name := strings.TrimSpace(r.Header.Get("X-Staff"))
			if name == "" {
				name = "dev"
			}
			staff := &session.Staff{Facility: f.Slug, Name: name, Role: session.RoleManager}

			ctx := WithStaff(WithFacility(r.Context(), f), staff)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
