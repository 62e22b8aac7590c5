package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"portalsync/internal/config"
	"portalsync/internal/model"
	"portalsync/internal/pending"
	"portalsync/internal/portal"
)

// DownloadResult summarizes a download.
type DownloadResult struct {
	PortalID   string
	PortalName string
	// Written is the number of entity files written to the workspace.
	Written int
	// Cancelled is set when ctx ended before the download finished; the
	// workspace and cache were left untouched.
	Cancelled bool
	// Empty is set when no portal or page template was selected.
	Empty bool
}

// Download fetches the portal, writes every entity to its workspace path and
// records the written content as the originals for later diffs.
func (a *SyncApp) Download(ctx context.Context, silent bool) (*DownloadResult, error) {
	if err := a.persistOperation(a.cfg.Portal.ID); err != nil {
		return nil, err
	}

	data, err := a.repo.Download(ctx, silent)
	if err != nil {
		return nil, a.op.Record(fmt.Errorf("downloading portal: %w", err))
	}
	result := &DownloadResult{PortalID: data.PortalID, PortalName: data.PortalName}
	if data.IsEmpty() {
		result.Empty = true
		return result, nil
	}
	if data != a.repo.GetPortalData() {
		result.Cancelled = true
		return result, nil
	}

	if err := a.rememberPortal(data); err != nil {
		return nil, a.op.Record(err)
	}

	written, err := a.materialize(data)
	result.Written = written
	if err != nil {
		return result, a.op.Record(err)
	}
	return result, a.op.Record(a.saveSnapshot())
}

// rememberPortal stores a portal or page template picked during download in
// the config file.
func (a *SyncApp) rememberPortal(data *portal.PortalData) error {
	p := config.PortalConfig{
		ID:                    data.PortalID,
		Name:                  data.PortalName,
		DefaultPageTemplateID: data.DefaultPageTemplateID,
	}
	if p == a.cfg.Portal {
		return nil
	}
	a.cfg.Portal = p
	if a.configPath == "" {
		return nil
	}
	if err := config.Save(a.configPath, a.cfg); err != nil {
		return fmt.Errorf("remembering portal %s: %w", data.PortalID, err)
	}
	a.logger.Info("portal saved to config", "portal", data.PortalID, "config", a.configPath)
	return nil
}

// materialize writes every document to the workspace and replaces the cached
// originals with what was written.
func (a *SyncApp) materialize(data *portal.PortalData) (int, error) {
	docs, err := data.Documents()
	if err != nil {
		return 0, err
	}

	written := make(map[string]bool, len(docs))
	for _, doc := range docs {
		path, err := a.repo.LocalPath(doc.Name, doc.Type)
		if err != nil {
			return len(written), err
		}
		if err := a.workspace.WriteFile(path, doc.Content); err != nil {
			return len(written), err
		}
		rel, err := a.recordOriginal(path, doc.Content)
		if err != nil {
			return len(written), err
		}
		written[rel] = true
	}

	originals, err := a.db.ListOriginals()
	if err != nil {
		return len(written), fmt.Errorf("listing originals: %w", err)
	}
	for _, o := range originals {
		if written[o.Path] {
			continue
		}
		if err := a.db.DeleteOriginal(o.Path); err != nil {
			return len(written), fmt.Errorf("dropping stale original: %w", err)
		}
	}

	a.logger.Info("workspace updated", "files", len(written), "root", a.workspace.Root())
	return len(written), nil
}

// recordOriginal caches content as the last-synced version of path.
func (a *SyncApp) recordOriginal(path string, content []byte) (string, error) {
	rel, err := a.originalKey(path)
	if err != nil {
		return "", err
	}
	if err := a.db.PutOriginal(&model.Original{
		Path:     rel,
		Checksum: checksum(content),
		Content:  content,
		SyncedAt: a.clock.Now(),
	}); err != nil {
		return "", err
	}
	return rel, nil
}

// originalKey returns the cache key of path, taken from its original
// resource identifier.
func (a *SyncApp) originalKey(path string) (string, error) {
	rel, ok := portal.ParseOriginalResource(a.repo.ProvideOriginalResource(path))
	if !ok {
		return "", fmt.Errorf("%s has no original resource", path)
	}
	return rel, nil
}

func checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Add creates the entity for a new workspace file.
func (a *SyncApp) Add(ctx context.Context, rawPath string) error {
	if err := a.persistOperation(rawPath); err != nil {
		return err
	}
	path, t, err := a.resolvePath(rawPath)
	if err != nil {
		return a.op.Record(err)
	}
	return a.op.Record(a.add(ctx, path, t))
}

func (a *SyncApp) add(ctx context.Context, path string, t portal.EntityType) error {
	content, err := a.readExisting(path)
	if err != nil {
		return err
	}
	if err := a.repo.AddDocument(ctx, t, path, content); err != nil {
		return fmt.Errorf("adding %s: %w", path, err)
	}
	return a.afterChange(path, content)
}

// Update sends a workspace file's content to its entity.
func (a *SyncApp) Update(ctx context.Context, rawPath string) error {
	if err := a.persistOperation(rawPath); err != nil {
		return err
	}
	path, t, err := a.resolvePath(rawPath)
	if err != nil {
		return a.op.Record(err)
	}
	return a.op.Record(a.update(ctx, path, t))
}

func (a *SyncApp) update(ctx context.Context, path string, t portal.EntityType) error {
	content, err := a.readExisting(path)
	if err != nil {
		return err
	}
	if err := a.repo.UpdateDocument(ctx, t, path, content); err != nil {
		return fmt.Errorf("updating %s: %w", path, err)
	}
	return a.afterChange(path, content)
}

// Delete removes the entity mapped to a workspace path, and the file itself.
func (a *SyncApp) Delete(ctx context.Context, rawPath string) error {
	if err := a.persistOperation(rawPath); err != nil {
		return err
	}
	path, t, err := a.resolvePath(rawPath)
	if err != nil {
		return a.op.Record(err)
	}
	return a.op.Record(a.delete(ctx, path, t))
}

func (a *SyncApp) delete(ctx context.Context, path string, t portal.EntityType) error {
	if err := a.repo.DeleteDocument(ctx, t, path); err != nil {
		return fmt.Errorf("deleting %s: %w", path, err)
	}
	if err := a.workspace.Remove(path); err != nil {
		return err
	}
	rel, err := a.originalKey(path)
	if err != nil {
		return err
	}
	if err := a.db.DeleteOriginal(rel); err != nil {
		return err
	}
	return a.saveSnapshot()
}

func (a *SyncApp) readExisting(path string) ([]byte, error) {
	content, err := a.workspace.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if content == nil {
		return nil, fmt.Errorf("%s does not exist", path)
	}
	return content, nil
}

func (a *SyncApp) afterChange(path string, content []byte) error {
	if _, err := a.recordOriginal(path, content); err != nil {
		return err
	}
	return a.saveSnapshot()
}

// isKnown reports whether path maps to an entity of the live snapshot.
func (a *SyncApp) isKnown(path string, t portal.EntityType) bool {
	return a.repo.Tracks(t, path)
}

// applyChange pushes one queued change. The queued operation is a hint: a
// create for an entity that already exists becomes an update and vice
// versa. Changes to files that vanished meanwhile are dropped.
func (a *SyncApp) applyChange(ctx context.Context, c pending.Change) error {
	t, ok := a.repo.Mapper().TypeOf(c.Path)
	if !ok {
		a.logger.Warn("dropping change outside the entity folders", "path", c.Path)
		return nil
	}
	known := a.isKnown(c.Path, t)

	if c.Op == pending.OpDelete {
		if !known {
			a.logger.Debug("nothing to delete", "path", c.Path)
			return nil
		}
		return a.delete(ctx, c.Path, t)
	}

	content, err := a.workspace.ReadFile(c.Path)
	if err != nil {
		return err
	}
	if content == nil {
		a.logger.Debug("file vanished before push", "path", c.Path)
		return nil
	}
	if known {
		if rel, err := a.originalKey(c.Path); err == nil {
			if o, err := a.db.FindOriginal(rel); err == nil && o != nil && o.Checksum == checksum(content) {
				a.logger.Debug("unchanged since last sync", "path", c.Path)
				return nil
			}
		}
		return a.update(ctx, c.Path, t)
	}
	return a.add(ctx, c.Path, t)
}

// Push sends queued changes oldest first. It stops at the first failure,
// which stays queued. Returns the number of changes pushed.
func (a *SyncApp) Push(ctx context.Context) (int, error) {
	if err := a.persistOperation(""); err != nil {
		return 0, err
	}
	n, err := a.push(ctx)
	return n, a.op.Record(err)
}

func (a *SyncApp) push(ctx context.Context) (int, error) {
	count, err := a.queue.Count()
	if err != nil {
		return 0, err
	}

	pushed := 0
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return pushed, nil
		}
		err := a.queue.ProcessNext(func(c pending.Change) error {
			return a.applyChange(ctx, c)
		})
		if err != nil {
			return pushed, fmt.Errorf("pushing changes: %w", err)
		}
		pushed++
	}
	if pushed > 0 {
		a.logger.Info("pending changes pushed", "count", pushed)
	}
	return pushed, nil
}

// IsNotFound reports whether err means a path maps to no entity.
func IsNotFound(err error) bool {
	return errors.Is(err, portal.ErrNotFound)
}
