package testutil

import (
	"testing"

	"portalsync/internal/database"
)

// NewTestDatabase creates a new in-memory SQLite database with migrations
// applied, stamped by FixedClock. It is closed when the test completes.
func NewTestDatabase(t *testing.T) *database.SQLDatabase {
	t.Helper()

	db, err := database.NewSQLiteDatabase(":memory:", FixedClock())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}
