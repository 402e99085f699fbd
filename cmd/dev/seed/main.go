package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"petcare/internal/facility"
	"petcare/internal/fixtures"
	"petcare/internal/grooming"
	"petcare/internal/lifecycle"
	"petcare/internal/storage/postgres"
	"petcare/internal/training"
	"petcare/pkg/config"
	"petcare/pkg/db"
)

func main() {
	cfg := config.Load()

	path := flag.String("fixtures", cfg.FixturesPath, "YAML fixtures file (defaults to FIXTURES_PATH)")
	migrate := flag.Bool("migrate", true, "apply migrations before seeding")
	flag.Parse()

	if *path == "" {
		*path = "fixtures/dev.yaml"
	}

	set, err := fixtures.LoadFile(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixtures: %v\n", err)
		os.Exit(1)
	}

	if *migrate {
		if err := db.MigrateConfig(cfg.MigrationsPath, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "migrate failed: %v\n", err)
			os.Exit(1)
		}
	}

	ctx := context.Background()
	pool, err := db.Open(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "db open failed: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	counts, err := fixtures.Seed(ctx, set, fixtures.Sinks{
		Facilities: facility.NewRepository(pool),
		Grooming:   postgres.NewAppointmentRepository[grooming.Detail](pool, lifecycle.KindGrooming),
		Training:   postgres.NewAppointmentRepository[training.Detail](pool, lifecycle.KindTraining),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("seeded %d facilities, %d grooming appointments, %d training sessions from %s\n",
		counts.Facilities, counts.Grooming, counts.Training, *path)
}
