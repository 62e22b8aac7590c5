package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"portalsync/internal/cms"
	"portalsync/internal/config"
	"portalsync/internal/database"
	"portalsync/internal/fs"
	"portalsync/internal/model"
	"portalsync/internal/pending"
	"portalsync/internal/portal"
)

// Workspace is the local folder the app reads and writes.
type Workspace interface {
	portal.FolderCreator
	portal.WorkspaceLister
	Root() string
	Ignored(path string) bool
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte) error
	Remove(path string) error
}

// Deps are the collaborators a SyncApp runs against. NewSyncApp builds them
// from config; tests pass fakes.
type Deps struct {
	Remote    portal.RemoteClient
	Database  portal.Database
	Queue     *pending.Queue
	Workspace Workspace
	Chooser   portal.Chooser
	Logger    portal.Logger
	Clock     portal.Clock
	// Closers are closed, in order, after the database.
	Closers []io.Closer
}

// SyncApp is the application layer between the CLI and the Repository.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw string paths, and manages the DB lifecycle on Close.
type SyncApp struct {
	cfg        *config.Config
	configPath string

	remote    portal.RemoteClient
	db        portal.Database
	queue     *pending.Queue
	workspace Workspace
	repo      *portal.Repository
	logger    portal.Logger
	clock     portal.Clock

	op      *Operation
	closers []io.Closer
}

// NewSyncApp creates a fully wired SyncApp from the given config.
// configPath is where a portal picked during download is remembered; it may
// be empty. operation identifies the CLI command being run (e.g. "Download").
// The caller must call Close when done.
func NewSyncApp(ctx context.Context, cfg *config.Config, configPath, operation string, chooser portal.Chooser) (*SyncApp, error) {
	opID := time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, cfg.Log, opID, slog.LevelInfo)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	log := &slogAdapter{l: logger}
	clock := portal.RealClock{}

	ws, err := fs.NewOSWorkspace(cfg.Workspace.Root, cfg.Workspace.Ignore)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("opening workspace: %w", err)
	}

	queue, err := pending.NewQueueFromConfig(cfg.Pending, clock)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating pending queue: %w", err)
	}

	db, err := database.NewDatabaseFromConfig(cfg.Database, clock)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating database: %w", err)
	}
	if err := db.CheckMigrations(); err != nil {
		db.Close()
		logFile.Close()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}

	var token string
	if cfg.Remote.Type == "http" || cfg.Remote.Type == "" {
		token, err = loadToken(ctx, cfg.Secret, chooser)
		if err != nil {
			db.Close()
			logFile.Close()
			return nil, err
		}
	}
	remote, err := cms.NewClientFromConfig(cfg.Remote, token, portal.UUIDGenerator{}, log)
	if err != nil {
		db.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating CMS client: %w", err)
	}

	a, err := newSyncApp(cfg, configPath, operation, Deps{
		Remote:    remote,
		Database:  db,
		Queue:     queue,
		Workspace: ws,
		Chooser:   chooser,
		Logger:    log,
		Clock:     clock,
		Closers:   []io.Closer{logFile},
	})
	if err != nil {
		db.Close()
		logFile.Close()
		return nil, err
	}
	return a, nil
}

// newSyncApp wires the Repository over d and restores the persisted snapshot
// of the configured portal.
func newSyncApp(cfg *config.Config, configPath, operation string, d Deps) (*SyncApp, error) {
	if d.Logger == nil {
		d.Logger = portal.NewNopLogger()
	}
	if d.Clock == nil {
		d.Clock = portal.RealClock{}
	}

	repo := portal.NewRepository(d.Remote, d.Chooser, d.Workspace, d.Workspace, d.Logger, portal.Options{
		PortalID:              cfg.Portal.ID,
		PortalName:            cfg.Portal.Name,
		DefaultPageTemplateID: cfg.Portal.DefaultPageTemplateID,
		Layout: portal.Layout{
			Root:         d.Workspace.Root(),
			TemplatesDir: cfg.Workspace.TemplatesDir,
			SnippetsDir:  cfg.Workspace.SnippetsDir,
			FilesDir:     cfg.Workspace.FilesDir,
			GroupFiles:   cfg.Workspace.GroupFiles,
		},
	})

	a := &SyncApp{
		cfg:        cfg,
		configPath: configPath,
		remote:     d.Remote,
		db:         d.Database,
		queue:      d.Queue,
		workspace:  d.Workspace,
		repo:       repo,
		logger:     d.Logger,
		clock:      d.Clock,
		op:         NewOperation(operation, ""),
		closers:    d.Closers,
	}

	if err := a.restoreSnapshot(); err != nil {
		return nil, err
	}
	return a, nil
}

// Repository exposes the wired repository.
func (a *SyncApp) Repository() *portal.Repository {
	return a.repo
}

// Operation returns the operation this app instance runs.
func (a *SyncApp) Operation() *Operation {
	return a.op
}

// persistOperation saves the operation to the database, giving it an auto-increment ID.
// This should only be called for mutating commands.
func (a *SyncApp) persistOperation(parameters string) error {
	if a.op.Persisted() {
		return nil
	}
	a.op.Parameters = parameters
	dbOp, err := a.db.CreateSyncOperation(a.op.Name, a.op.Parameters)
	if err != nil {
		return fmt.Errorf("persisting sync operation: %w", err)
	}
	a.op.ID = dbOp.ID
	return nil
}

// restoreSnapshot installs the last saved snapshot of the configured portal.
func (a *SyncApp) restoreSnapshot() error {
	if a.cfg.Portal.ID == "" {
		return nil
	}
	snap, err := a.db.LoadSnapshot(a.cfg.Portal.ID)
	if err != nil {
		return fmt.Errorf("loading snapshot: %w", err)
	}
	if snap == nil {
		return nil
	}

	data := portal.NewPortalData()
	if err := json.Unmarshal(snap.Data, data); err != nil {
		return fmt.Errorf("decoding snapshot for portal %s: %w", snap.PortalID, err)
	}
	if err := a.repo.Restore(data); err != nil {
		return fmt.Errorf("restoring snapshot: %w", err)
	}
	a.logger.Debug("snapshot restored", "portal", data.PortalID, "saved_at", snap.SavedAt)
	return nil
}

// saveSnapshot persists the live snapshot so the next invocation starts from it.
func (a *SyncApp) saveSnapshot() error {
	data := a.repo.GetPortalData()
	if data.IsEmpty() {
		return nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := a.db.SaveSnapshot(&model.Snapshot{PortalID: data.PortalID, Data: b, SavedAt: a.clock.Now()}); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

// resolvePath turns a command line argument into an absolute workspace path.
func (a *SyncApp) resolvePath(rawPath string) (string, portal.EntityType, error) {
	p, err := filepath.Abs(rawPath)
	if err != nil {
		return "", 0, fmt.Errorf("resolving path: %w", err)
	}
	t, ok := a.repo.Mapper().TypeOf(p)
	if !ok {
		return "", 0, fmt.Errorf("%s is not inside a web template, content snippet or web file folder", p)
	}
	return p, t, nil
}

// Close finalizes the operation and closes all resources.
func (a *SyncApp) Close() error {
	var firstErr error

	if a.op.Persisted() {
		if err := a.db.FinishSyncOperation(a.op.ID, a.op.Status); err != nil {
			firstErr = fmt.Errorf("finishing sync operation: %w", err)
		}
	}

	if err := a.db.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}

	for _, c := range a.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
