package app

import (
	"fmt"
	"path/filepath"

	"portalsync/internal/diff"
	"portalsync/internal/model"
	"portalsync/internal/pending"
	"portalsync/internal/portal"
)

// maxDiffBytes caps the content rendered by Diff.
const maxDiffBytes = 1 << 20

// FileStatus describes one source-controlled resource.
type FileStatus struct {
	Path    string // absolute
	RelPath string // workspace-relative, slash separated
	Type    portal.EntityType
	// Tracked is set when the path maps to an entity of the live snapshot.
	Tracked bool
	// Exists is set when the file is present in the workspace.
	Exists bool
	// Modified is set when the file differs from its cached original, or
	// has no original at all.
	Modified bool
	// Pending is the queued operation for the path, or "".
	Pending pending.Op
}

// Status flags every source-controlled resource. Workspace files outside
// the entity folders are left out.
func (a *SyncApp) Status() ([]*FileStatus, error) {
	resources, err := a.repo.ProvideSourceControlledResources()
	if err != nil {
		return nil, err
	}

	queued, err := a.queue.List()
	if err != nil {
		return nil, fmt.Errorf("listing pending changes: %w", err)
	}
	pendingOps := make(map[string]pending.Op, len(queued))
	for _, c := range queued {
		pendingOps[c.Path] = c.Op
	}

	var out []*FileStatus
	for _, path := range resources {
		t, ok := a.repo.Mapper().TypeOf(path)
		if !ok {
			continue
		}
		rel, err := a.originalKey(path)
		if err != nil {
			return nil, err
		}
		content, err := a.workspace.ReadFile(path)
		if err != nil {
			return nil, err
		}
		original, err := a.db.FindOriginal(rel)
		if err != nil {
			return nil, fmt.Errorf("checking original of %s: %w", rel, err)
		}

		st := &FileStatus{
			Path:    path,
			RelPath: rel,
			Type:    t,
			Tracked: a.isKnown(path, t),
			Exists:  content != nil,
			Pending: pendingOps[path],
		}
		switch {
		case original == nil:
			st.Modified = st.Exists
		case !st.Exists:
			st.Modified = true
		default:
			st.Modified = original.Checksum != checksum(content)
		}
		out = append(out, st)
	}
	return out, nil
}

// Diff renders a unified diff from the cached original of a workspace file
// to its current content. The result is empty when nothing changed.
func (a *SyncApp) Diff(rawPath string) (string, error) {
	path, err := filepath.Abs(rawPath)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	rel, err := a.originalKey(path)
	if err != nil {
		return "", err
	}
	original, err := a.db.FindOriginal(rel)
	if err != nil {
		return "", fmt.Errorf("finding original of %s: %w", rel, err)
	}
	content, err := a.workspace.ReadFile(path)
	if err != nil {
		return "", err
	}

	opt := diff.Options{MaxBytes: maxDiffBytes}
	switch {
	case original == nil && content == nil:
		return "", &portal.NotFoundError{Path: path, Type: typeOrFile(a, path)}
	case original == nil:
		patch, _ := diff.Added("b/"+rel, content, opt)
		return patch, nil
	case content == nil:
		patch, _ := diff.Deleted("a/"+rel, original.Content, opt)
		return patch, nil
	default:
		patch, _ := diff.Unified("a/"+rel, "b/"+rel, original.Content, content, opt)
		return patch, nil
	}
}

func typeOrFile(a *SyncApp, path string) portal.EntityType {
	if t, ok := a.repo.Mapper().TypeOf(path); ok {
		return t
	}
	return portal.WebFileType
}

// Original returns the cached last-synced content of a workspace file.
func (a *SyncApp) Original(rawPath string) (*model.Original, error) {
	path, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	rel, err := a.originalKey(path)
	if err != nil {
		return nil, err
	}
	o, err := a.db.FindOriginal(rel)
	if err != nil {
		return nil, fmt.Errorf("finding original of %s: %w", rel, err)
	}
	if o == nil {
		return nil, &portal.NotFoundError{Path: path, Type: typeOrFile(a, path)}
	}
	return o, nil
}

// Pending lists the queued changes in push order.
func (a *SyncApp) Pending() ([]pending.Change, error) {
	return a.queue.List()
}

// History returns the most recent sync operations, newest first.
func (a *SyncApp) History(limit int) ([]*model.SyncOperation, error) {
	ops, err := a.db.ListSyncOperations(limit)
	if err != nil {
		return nil, fmt.Errorf("listing sync operations: %w", err)
	}
	return ops, nil
}
