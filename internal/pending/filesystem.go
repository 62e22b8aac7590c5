package pending

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"portalsync/internal/portal"
)

// fileStore keeps the queue as a JSON array, so changes seen by `watch`
// survive until a later `push`.
type fileStore struct {
	path string
}

// NewFileQueue creates a queue persisted at path.
func NewFileQueue(path string, clock portal.Clock) (*Queue, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create queue directory: %w", err)
	}
	return newQueue(&fileStore{path: path}, clock), nil
}

func (s *fileStore) Load() ([]Change, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading queue: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var changes []Change
	if err := json.Unmarshal(data, &changes); err != nil {
		return nil, fmt.Errorf("decoding queue %s: %w", s.path, err)
	}
	return changes, nil
}

func (s *fileStore) Save(changes []Change) error {
	if changes == nil {
		changes = []Change{}
	}
	data, err := json.MarshalIndent(changes, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding queue: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("writing queue: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing queue: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing queue: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replacing queue: %w", err)
	}
	return nil
}
