package model

import (
	"database/sql"
	"time"
)

// Original is the content of a workspace file as of its last sync with the CMS.
type Original struct {
	Path     string // workspace-relative, slash separated
	Checksum string // SHA-256 of Content
	Content  []byte
	SyncedAt time.Time
}

// Snapshot is the serialized entity store of one portal.
type Snapshot struct {
	PortalID string
	Data     []byte
	SavedAt  time.Time
}

// SyncOperation records one mutating CLI command.
type SyncOperation struct {
	ID         int64
	Operation  string
	Parameters string
	StartedAt  time.Time
	FinishedAt sql.NullTime
	Status     string // "success" or "error"
}
