package main

import (
	"context"
	"fmt"
	"os"

	"petcare/pkg/config"
	"petcare/pkg/db"
)

func main() {
	cfg := config.Load()

	// Empty MIGRATIONS_PATH applies the schema embedded in the binary.
	// This uses DIRECT_URL if set (recommended for pooled deployments).
	if err := db.MigrateConfig(cfg.MigrationsPath, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "migrate failed: %v\n", err)
		os.Exit(1)
	}

	// Optional sanity check: ensure runtime connection can open (uses DATABASE_URL if set).
	// We don't print DSNs here to avoid leaking secrets into logs.
	pool, err := db.Open(context.Background(), cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "runtime db open failed: %v\n", err)
		os.Exit(1)
	}
	pool.Close()

	fmt.Println("migrations applied")
}
