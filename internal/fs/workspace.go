package fs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"portalsync/internal/portal"
)

// OSWorkspace is the real workspace folder on disk.
type OSWorkspace struct {
	root   string
	ignore *IgnoreMatcher
}

// NewOSWorkspace opens the workspace at root. Patterns from config are
// combined with the root's ignore file.
func NewOSWorkspace(root string, ignorePatterns []string) (*OSWorkspace, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace root: %w", err)
	}

	filePatterns, err := ParseIgnoreFile(filepath.Join(absRoot, IgnoreFileName))
	if err != nil {
		return nil, err
	}
	patterns := append(append([]string{}, ignorePatterns...), filePatterns...)

	return &OSWorkspace{
		root:   absRoot,
		ignore: NewIgnoreMatcher(patterns),
	}, nil
}

// Root returns the absolute workspace root.
func (w *OSWorkspace) Root() string {
	return w.root
}

// EnsureDir creates path and its parents.
func (w *OSWorkspace) EnsureDir(path string) error {
	info, err := os.Stat(path)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("%s exists and is not a directory", path)
		}
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	return os.MkdirAll(path, 0755)
}

// ListFiles returns the absolute paths of every regular, non-ignored file
// under the root, sorted. A missing root yields no files.
func (w *OSWorkspace) ListFiles() ([]string, error) {
	var paths []string

	err := filepath.WalkDir(w.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == w.root && errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipAll
			}
			return err
		}
		if p == w.root {
			return nil
		}
		if w.Ignored(p) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		paths = append(paths, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking workspace: %w", err)
	}

	sort.Strings(paths)
	return paths, nil
}

// Ignored reports whether an absolute path under the root matches an
// ignore pattern. Paths outside the root are never ignored.
func (w *OSWorkspace) Ignored(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	return w.ignore.Match(rel)
}

// ReadFile reads a workspace file. Returns nil and no error if it does not exist.
func (w *OSWorkspace) ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// WriteFile replaces path through a temp file in the same directory, so a
// watcher never sees a half-written file.
func (w *OSWorkspace) WriteFile(path string, data []byte) error {
	if err := w.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	tmpName := tmpFile.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmpFile.Chmod(0644); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	committed = true
	return nil
}

// Remove deletes a workspace file. Removing a missing file is not an error.
func (w *OSWorkspace) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}

var (
	_ portal.FolderCreator   = (*OSWorkspace)(nil)
	_ portal.WorkspaceLister = (*OSWorkspace)(nil)
)
