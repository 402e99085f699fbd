package db

import (
	"errors"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"petcare/migrations"
	"petcare/pkg/config"
)

// MigrateConfig applies migrations from migrationsPath, or the embedded
// schema when the path is empty.
func MigrateConfig(migrationsPath string, cfg config.Config) error {
	m, err := newMigrate(migrationsPath, migrationConnString(cfg))
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return err
	}
	return nil
}

// MigrateURL applies the embedded schema to databaseURL.
func MigrateURL(databaseURL string) error {
	return MigrateConfig("", config.Config{DatabaseURL: databaseURL})
}

func newMigrate(migrationsPath, dsn string) (*migrate.Migrate, error) {
	if migrationsPath != "" {
		return migrate.New(migrationsPath, dsn)
	}
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, err
	}
	return migrate.NewWithSourceInstance("iofs", src, dsn)
}
