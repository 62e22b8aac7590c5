// Package migrations applies the embedded schema migrations for each
// supported SQL dialect.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Dialects with their own migration folder under files/.
const (
	SQLite   = "sqlite"
	Postgres = "postgres"
)

// ErrNotMigrated is returned for a database that never had migrations applied.
var ErrNotMigrated = errors.New("cache database has no schema yet")

//go:embed files/sqlite/*.sql files/postgres/*.sql
var migrationFiles embed.FS

func sourceFor(dialect string) (source.Driver, error) {
	src, err := iofs.New(migrationFiles, "files/"+dialect)
	if err != nil {
		return nil, fmt.Errorf("reading %s migrations: %w", dialect, err)
	}
	return src, nil
}

// CheckDBMigrationStatus returns nil when db is at the newest embedded
// version, ErrNotMigrated when it has no version, and a descriptive error
// for dirty, outdated or newer-than-binary schemas.
func CheckDBMigrationStatus(db *sql.DB, dialect string) error {
	m, err := newMigrate(db, dialect)
	if err != nil {
		return err
	}
	// m is not closed: that would close db, which the caller owns

	current, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return ErrNotMigrated
	case err != nil:
		return fmt.Errorf("reading schema version: %w", err)
	case dirty:
		return fmt.Errorf("cache schema version %d is dirty: a migration failed halfway", current)
	}

	src, err := sourceFor(dialect)
	if err != nil {
		return err
	}
	defer src.Close()
	newest, err := lastVersion(src)
	if err != nil {
		return fmt.Errorf("finding newest migration: %w", err)
	}

	if current < newest {
		return fmt.Errorf("cache schema is at version %d, this binary expects %d", current, newest)
	}
	if current > newest {
		return fmt.Errorf("cache schema version %d is newer than this binary (%d): upgrade portalsync", current, newest)
	}
	return nil
}

// MigrateUp applies every pending migration. An up-to-date database is not
// an error.
func MigrateUp(db *sql.DB, dialect string) error {
	m, err := newMigrate(db, dialect)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying %s migrations: %w", dialect, err)
	}
	return nil
}

func newMigrate(db *sql.DB, dialect string) (*migrate.Migrate, error) {
	var (
		driver database.Driver
		err    error
	)
	switch dialect {
	case SQLite:
		driver, err = sqlite3.WithInstance(db, &sqlite3.Config{})
	case Postgres:
		driver, err = postgres.WithInstance(db, &postgres.Config{})
	default:
		return nil, fmt.Errorf("unknown migration dialect: %q", dialect)
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s migration driver: %w", dialect, err)
	}

	src, err := sourceFor(dialect)
	if err != nil {
		return nil, err
	}
	m, err := migrate.NewWithInstance("iofs", src, dialect, driver)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("preparing %s migrations: %w", dialect, err)
	}
	return m, nil
}

// lastVersion walks the source to its final migration. Next fails once
// there is nothing after v.
func lastVersion(src source.Driver) (uint, error) {
	v, err := src.First()
	if err != nil {
		return 0, err
	}
	for {
		next, err := src.Next(v)
		if err != nil {
			return v, nil
		}
		v = next
	}
}
