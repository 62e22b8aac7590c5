package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"portalsync/internal/database/migrations"
	"portalsync/internal/model"
	"portalsync/internal/portal"
)

const operationTimeout = 5 * time.Second

// SQLDatabase implements portal.Database over SQLite or Postgres. Queries are
// written with ? placeholders and rebound for Postgres.
type SQLDatabase struct {
	db      *sql.DB
	dialect string
	path    string
	clock   portal.Clock
}

func newSQLDatabase(db *sql.DB, dialect, path string, clock portal.Clock) *SQLDatabase {
	if clock == nil {
		clock = portal.RealClock{}
	}
	return &SQLDatabase{db: db, dialect: dialect, path: path, clock: clock}
}

// rebind rewrites ? placeholders as $1, $2, ... for Postgres.
func (s *SQLDatabase) rebind(query string) string {
	if s.dialect != migrations.Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLDatabase) now() time.Time {
	return s.clock.Now().UTC()
}

// Originals

func (s *SQLDatabase) FindOriginal(path string) (*model.Original, error) {
	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	var o model.Original
	err := s.db.QueryRowContext(ctx,
		s.rebind("SELECT path, checksum, content, synced_at FROM originals WHERE path = ?"), path,
	).Scan(&o.Path, &o.Checksum, &o.Content, &o.SyncedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding original %s: %w", path, err)
	}
	return &o, nil
}

func (s *SQLDatabase) PutOriginal(original *model.Original) error {
	if original == nil || original.Path == "" {
		return fmt.Errorf("putting original: path is required")
	}
	syncedAt := original.SyncedAt
	if syncedAt.IsZero() {
		syncedAt = s.now()
	}
	content := original.Content
	if content == nil {
		content = []byte{}
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO originals (path, checksum, content, synced_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (path)
		DO UPDATE SET checksum = excluded.checksum, content = excluded.content, synced_at = excluded.synced_at`),
		original.Path, original.Checksum, content, syncedAt.UTC())
	if err != nil {
		return fmt.Errorf("putting original %s: %w", original.Path, err)
	}
	return nil
}

func (s *SQLDatabase) DeleteOriginal(path string) error {
	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM originals WHERE path = ?"), path); err != nil {
		return fmt.Errorf("deleting original %s: %w", path, err)
	}
	return nil
}

func (s *SQLDatabase) ListOriginals() ([]*model.Original, error) {
	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, "SELECT path, checksum, content, synced_at FROM originals ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("listing originals: %w", err)
	}
	defer rows.Close()

	var result []*model.Original
	for rows.Next() {
		var o model.Original
		if err := rows.Scan(&o.Path, &o.Checksum, &o.Content, &o.SyncedAt); err != nil {
			return nil, fmt.Errorf("listing originals: %w", err)
		}
		result = append(result, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing originals: %w", err)
	}
	return result, nil
}

// Snapshots

func (s *SQLDatabase) SaveSnapshot(snapshot *model.Snapshot) error {
	if snapshot == nil || snapshot.PortalID == "" {
		return fmt.Errorf("saving snapshot: portal id is required")
	}
	savedAt := snapshot.SavedAt
	if savedAt.IsZero() {
		savedAt = s.now()
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO snapshots (portal_id, data, saved_at)
		VALUES (?, ?, ?)
		ON CONFLICT (portal_id)
		DO UPDATE SET data = excluded.data, saved_at = excluded.saved_at`),
		snapshot.PortalID, snapshot.Data, savedAt.UTC())
	if err != nil {
		return fmt.Errorf("saving snapshot for portal %s: %w", snapshot.PortalID, err)
	}
	return nil
}

func (s *SQLDatabase) LoadSnapshot(portalID string) (*model.Snapshot, error) {
	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	var snap model.Snapshot
	err := s.db.QueryRowContext(ctx,
		s.rebind("SELECT portal_id, data, saved_at FROM snapshots WHERE portal_id = ?"), portalID,
	).Scan(&snap.PortalID, &snap.Data, &snap.SavedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading snapshot for portal %s: %w", portalID, err)
	}
	return &snap, nil
}

// Operation history

func (s *SQLDatabase) CreateSyncOperation(operation, parameters string) (*model.SyncOperation, error) {
	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	op := &model.SyncOperation{
		Operation:  operation,
		Parameters: parameters,
		StartedAt:  s.now(),
		Status:     "running",
	}
	err := s.db.QueryRowContext(ctx, s.rebind(`
		INSERT INTO sync_operations (operation, parameters, started_at, status)
		VALUES (?, ?, ?, ?)
		RETURNING id`),
		op.Operation, op.Parameters, op.StartedAt, op.Status,
	).Scan(&op.ID)
	if err != nil {
		return nil, fmt.Errorf("creating sync operation: %w", err)
	}
	return op, nil
}

func (s *SQLDatabase) FinishSyncOperation(id int64, status string) error {
	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx,
		s.rebind("UPDATE sync_operations SET finished_at = ?, status = ? WHERE id = ?"),
		s.now(), status, id)
	if err != nil {
		return fmt.Errorf("finishing sync operation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finishing sync operation: no operation with id %d", id)
	}
	return nil
}

// ListSyncOperations returns the most recent operations first.
func (s *SQLDatabase) ListSyncOperations(limit int) ([]*model.SyncOperation, error) {
	if limit <= 0 {
		limit = 20
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, operation, parameters, started_at, finished_at, status
		FROM sync_operations
		ORDER BY id DESC
		LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("listing sync operations: %w", err)
	}
	defer rows.Close()

	var result []*model.SyncOperation
	for rows.Next() {
		var op model.SyncOperation
		if err := rows.Scan(&op.ID, &op.Operation, &op.Parameters, &op.StartedAt, &op.FinishedAt, &op.Status); err != nil {
			return nil, fmt.Errorf("listing sync operations: %w", err)
		}
		result = append(result, &op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing sync operations: %w", err)
	}
	return result, nil
}

// Path returns the database file path, empty for Postgres.
func (s *SQLDatabase) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db, s.dialect)
}

// Close closes the database connection.
func (s *SQLDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

var _ portal.Database = (*SQLDatabase)(nil)
