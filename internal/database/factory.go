package database

import (
	"fmt"
	"os"
	"path/filepath"

	"portalsync/internal/config"
	"portalsync/internal/portal"
)

// FileName is the SQLite file created under data_dir.
const FileName = "portalsync.db"

// NewDatabaseFromConfig creates a Database implementation based on the database config type.
func NewDatabaseFromConfig(cfg config.DatabaseConfig, clock portal.Clock) (*SQLDatabase, error) {
	switch cfg.Type {
	case "sqlite", "":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data dir: %w", err)
		}
		return NewSQLiteDatabase(filepath.Join(cfg.DataDir, FileName), clock)
	case "postgres":
		return NewPostgresDatabase(cfg.DSN, clock)
	case "memory":
		return NewSQLiteDatabase(":memory:", clock)
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
