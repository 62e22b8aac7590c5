package pending

import "portalsync/internal/portal"

// memoryStore keeps the queue in memory, for tests and one-shot runs.
type memoryStore struct {
	changes []Change
}

func (s *memoryStore) Load() ([]Change, error) {
	return append([]Change(nil), s.changes...), nil
}

func (s *memoryStore) Save(changes []Change) error {
	s.changes = append([]Change(nil), changes...)
	return nil
}

// NewMemoryQueue creates a queue that is lost when the process exits.
func NewMemoryQueue(clock portal.Clock) *Queue {
	return newQueue(&memoryStore{}, clock)
}
