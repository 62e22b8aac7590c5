package testutil

import (
	"errors"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"portalsync/internal/portal"
)

// MockWorkspace is an in-memory workspace. Paths are used as given.
type MockWorkspace struct {
	mu    sync.Mutex
	root  string
	files map[string][]byte
	dirs  map[string]bool
	// EnsureDirErr, when set, fails every EnsureDir call.
	EnsureDirErr error
}

var (
	_ portal.FolderCreator   = (*MockWorkspace)(nil)
	_ portal.WorkspaceLister = (*MockWorkspace)(nil)
)

func NewMockWorkspace(root string) *MockWorkspace {
	return &MockWorkspace{
		root:  root,
		files: make(map[string][]byte),
		dirs:  make(map[string]bool),
	}
}

func (w *MockWorkspace) Root() string { return w.root }

func (w *MockWorkspace) EnsureDir(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.EnsureDirErr != nil {
		return w.EnsureDirErr
	}
	for p := path; p != w.root && p != "." && p != string(filepath.Separator); p = filepath.Dir(p) {
		w.dirs[p] = true
	}
	return nil
}

// HasDir reports whether EnsureDir created path or one of its children.
func (w *MockWorkspace) HasDir(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dirs[path]
}

func (w *MockWorkspace) ListFiles() ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.files))
	for p := range w.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

func (w *MockWorkspace) Ignored(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

// ReadFile returns nil with no error for missing files.
func (w *MockWorkspace) ReadFile(path string) ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	data, ok := w.files[path]
	if !ok {
		return nil, nil
	}
	return append([]byte{}, data...), nil
}

func (w *MockWorkspace) WriteFile(path string, data []byte) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := w.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.files[path] = append([]byte{}, data...)
	return nil
}

func (w *MockWorkspace) Remove(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.files, path)
	return nil
}

// AddFile seeds a file, creating its folders.
func (w *MockWorkspace) AddFile(path string, content string) {
	_ = w.WriteFile(path, []byte(content))
}
