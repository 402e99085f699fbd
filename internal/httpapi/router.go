package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"petcare/internal/api"
	"petcare/internal/appointments"
	"petcare/internal/clock"
	"petcare/internal/facility"
	"petcare/internal/grooming"
	"petcare/internal/training"
	"petcare/pkg/config"
)

// ReadyCheck is a named dependency check for /readyz.
type ReadyCheck struct {
	Name  string
	Check func(context.Context) error
}

type Dependencies struct {
	Cfg        config.Config
	Logger     *slog.Logger
	Clock      clock.Clock
	Facilities facility.Store
	Grooming   *grooming.Tracker
	Training   *training.Tracker
	Ready      []ReadyCheck
}

func NewRouter(deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.NewSystem()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(api.AccessLog(logger))
	r.Use(middleware.Recoverer)
	r.Use(api.CORSMiddleware(api.CORSOptions{
		AllowedOrigins: deps.Cfg.AllowedOrigins,
		MaxAgeSeconds:  600,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", readyHandler(deps.Ready))

	// v1
	r.Route("/v1", func(r chi.Router) {
		// Facility-scoped staff APIs.
		// Production: staff session token auth.
		// Dev: falls back to X-Facility if Authorization is missing.
		r.Group(func(r chi.Router) {
			r.Use(api.StaffSessionAuth(deps.Cfg, deps.Facilities, clk.Now))

			if deps.Grooming != nil {
				r.Mount("/grooming", appointments.NewHandlers(deps.Grooming, clk, logger).Routes())
			}
			if deps.Training != nil {
				r.Mount("/training", appointments.NewHandlers(deps.Training, clk, logger).Routes())
			}
		})
	})

	return r
}

func readyHandler(checks []ReadyCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var failures []string
		for _, check := range checks {
			if check.Check == nil {
				continue
			}
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			err := check.Check(ctx)
			cancel()
			if err != nil {
				name := check.Name
				if name == "" {
					name = "dependency"
				}
				failures = append(failures, name+": "+err.Error())
			}
		}
		if len(failures) > 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(strings.Join(failures, "; ")))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
