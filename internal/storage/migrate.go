package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// schemaTable records the applied version of the expenses schema. The primary
// database and the mirror each keep their own.
const schemaTable = "expenses_schema_migrations"

// migrations holds the expenses table and its category and date indexes.
//
//go:embed migrations/*.sql
var migrations embed.FS

// RunMigrations creates or upgrades the expenses table in the SQLite file at
// dbPath.
func RunMigrations(dbPath string) error {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("load embedded expense migrations: %w", err)
	}

	// migrate closes the handle with its driver, so it must not be the
	// repository's pool.
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open %s for migration: %w", dbPath, err)
	}
	defer db.Close()

	driver, err := sqlite.WithInstance(db, &sqlite.Config{MigrationsTable: schemaTable})
	if err != nil {
		return fmt.Errorf("prepare sqlite migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate expenses schema in %s: %w", dbPath, err)
	}
	return nil
}
