package portal

import "portalsync/internal/model"

// Database is the local cache kept next to the workspace: last-synced
// originals, the persisted entity store, and the history of mutating commands.
// Lookups return nil with no error when nothing is stored.
type Database interface {
	// Originals

	FindOriginal(path string) (*model.Original, error)
	PutOriginal(original *model.Original) error
	DeleteOriginal(path string) error
	ListOriginals() ([]*model.Original, error)

	// Snapshots

	SaveSnapshot(snapshot *model.Snapshot) error
	LoadSnapshot(portalID string) (*model.Snapshot, error)

	// Operation history

	CreateSyncOperation(operation, parameters string) (*model.SyncOperation, error)
	FinishSyncOperation(id int64, status string) error
	ListSyncOperations(limit int) ([]*model.SyncOperation, error)

	// CheckMigrations verifies the schema is at the latest version.
	CheckMigrations() error

	Close() error
}
