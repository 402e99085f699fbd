package api

import (
	"net/http"
	"strings"
	"time"

	"petcare/internal/facility"
	"petcare/pkg/config"
	"petcare/pkg/session"
)

// StaffSessionAuth validates staff session tokens.
//
// Expected header:
// - Authorization: Bearer <JWT>
//
// Outside prod, a missing or invalid token falls back to X-Facility so local
// dashboards keep working without a signing secret.
func StaffSessionAuth(cfg config.Config, store facility.Store, now func() time.Time) func(http.Handler) http.Handler {
	if now == nil {
		now = time.Now
	}
	return func(next http.Handler) http.Handler {
		devFallback := FacilityHeaderAuth(store)(next)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := strings.TrimSpace(r.Header.Get("Authorization"))
			if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
				token := strings.TrimSpace(authz[7:])
				staff, err := session.Verify(token, cfg.Session.Audience, cfg.Session.Secret, now())
				if err != nil {
					if !cfg.IsProd() && r.Header.Get("X-Facility") != "" {
						devFallback.ServeHTTP(w, r)
						return
					}
					WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid session token")
					return
				}

				f, err := store.FindBySlug(r.Context(), staff.Facility)
				if err != nil {
					WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "unknown facility")
					return
				}

				ctx := WithStaff(WithFacility(r.Context(), f), staff)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			// Dev fallback
			if !cfg.IsProd() {
				devFallback.ServeHTTP(w, r)
				return
			}

			WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing session token")
		})
	}
}
