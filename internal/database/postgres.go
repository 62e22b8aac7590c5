package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"portalsync/internal/database/migrations"
	"portalsync/internal/portal"

	_ "github.com/lib/pq"
)

const postgresConnectTimeout = 5 * time.Second

// NewPostgresDatabase connects to a shared cache database, for teams that
// keep originals and history on a server instead of next to the workspace.
func NewPostgresDatabase(dsn string, clock portal.Clock) (*SQLDatabase, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("dsn required for postgres database")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), postgresConnectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	if err := migrations.MigrateUp(db, migrations.Postgres); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating postgres database: %w", err)
	}

	return newSQLDatabase(db, migrations.Postgres, "", clock), nil
}
