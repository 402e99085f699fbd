package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"petcare/internal/clock"
	"petcare/internal/facility"
	"petcare/internal/fixtures"
	"petcare/internal/grooming"
	"petcare/internal/httpapi"
	"petcare/internal/lifecycle"
	"petcare/internal/notify"
	"petcare/internal/storage/memory"
	"petcare/internal/storage/postgres"
	"petcare/internal/training"
	"petcare/internal/undo"
	"petcare/pkg/config"
	"petcare/pkg/db"
	"petcare/pkg/logging"
	"petcare/pkg/telemetry"
)

const serviceName = "petcare-api"

func main() {
	cfg := config.Load()
	logger := logging.New(serviceName, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, cfg.OTel)
	if err != nil {
		fatal(logger, "otel setup", err)
	}

	clk := clock.NewSystem()
	var ready []httpapi.ReadyCheck

	var (
		facilities   facility.Store
		groomingRepo lifecycle.Repository[grooming.Detail]
		trainingRepo lifecycle.Repository[training.Detail]
	)
	switch cfg.Storage {
	case "memory":
		store := facility.NewMemoryStore()
		gr := memory.NewAppointmentRepository[grooming.Detail](lifecycle.KindGrooming)
		tr := memory.NewAppointmentRepository[training.Detail](lifecycle.KindTraining)
		if cfg.FixturesPath != "" {
			set, err := fixtures.LoadFile(cfg.FixturesPath)
			if err != nil {
				fatal(logger, "load fixtures", err)
			}
			counts, err := fixtures.Seed(ctx, set, fixtures.Sinks{Facilities: store, Grooming: gr, Training: tr})
			if err != nil {
				fatal(logger, "seed fixtures", err)
			}
			logger.Info("fixtures loaded", "path", cfg.FixturesPath,
				"facilities", counts.Facilities, "grooming", counts.Grooming, "training", counts.Training)
		}
		facilities, groomingRepo, trainingRepo = store, gr, tr

	case "postgres":
		if cfg.MigrationsPath != "" {
			if err := db.MigrateConfig(cfg.MigrationsPath, cfg); err != nil {
				fatal(logger, "migrate", err)
			}
		}
		pool, err := db.Open(ctx, cfg)
		if err != nil {
			fatal(logger, "db open", err)
		}
		defer pool.Close()
		ready = append(ready, httpapi.ReadyCheck{Name: "postgres", Check: db.ReadyCheck(pool)})

		facilities = facility.NewRepository(pool)
		groomingRepo = postgres.NewAppointmentRepository[grooming.Detail](pool, lifecycle.KindGrooming)
		trainingRepo = postgres.NewAppointmentRepository[training.Detail](pool, lifecycle.KindTraining)

	default:
		fatal(logger, "config", errors.New("STORAGE must be postgres or memory"))
	}

	var ledger lifecycle.UndoLedger = undo.NewMemoryLedger(clk)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer func() { _ = rdb.Close() }()
		rl := undo.NewRedisLedger(rdb, clk, "petcare:undo")
		ready = append(ready, httpapi.ReadyCheck{Name: "redis", Check: rl.ReadyCheck})
		ledger = rl
	}

	notifiers := notify.Fanout{notify.Log{Logger: logger}}
	if brokers := notify.SplitBrokers(cfg.KafkaBrokers); len(brokers) > 0 {
		k := notify.NewKafka(brokers, cfg.KafkaTopic, logger)
		defer func() { _ = k.Close() }()
		notifiers = append(notifiers, k)
	}

	opts := []lifecycle.Option{
		lifecycle.WithNotifier(notifiers),
		lifecycle.WithLogger(logger),
		lifecycle.WithUndoWindow(cfg.UndoWindow),
	}
	router := httpapi.NewRouter(httpapi.Dependencies{
		Cfg:        cfg,
		Logger:     logger,
		Clock:      clk,
		Facilities: facilities,
		Grooming:   grooming.NewTracker(groomingRepo, ledger, clk, opts...),
		Training:   training.NewTracker(trainingRepo, ledger, clk, opts...),
		Ready:      ready,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           otelhttp.NewHandler(router, "http.server"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr, "storage", cfg.Storage)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fatal(logger, "http serve", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(shutdownCtx)
	_ = shutdownTracing(shutdownCtx)
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "err", err)
	os.Exit(1)
}
