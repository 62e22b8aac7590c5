package pending

import (
	"fmt"
	"sync"

	"portalsync/internal/portal"
)

// ChangeFunc pushes one change to the CMS.
type ChangeFunc func(change Change) error

// Queue holds workspace changes that have not reached the CMS yet, at most
// one per path. It is safe for concurrent use.
type Queue struct {
	store queueStore
	clock portal.Clock
	mu    sync.Mutex

	// the change ProcessNext is pushing, if any
	inFlight *Change
}

func newQueue(store queueStore, clock portal.Clock) *Queue {
	if clock == nil {
		clock = portal.RealClock{}
	}
	return &Queue{store: store, clock: clock}
}

// Stage records a change, merging it with a change already queued for the
// same path. A create followed by a delete removes the entry unless the
// create is being pushed right now, in which case the delete stays queued.
func (q *Queue) Stage(path string, op Op) error {
	if path == "" {
		return fmt.Errorf("staging change: path is required")
	}
	if _, err := ParseOp(string(op)); err != nil {
		return fmt.Errorf("staging change for %s: %w", path, err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	changes, err := q.store.Load()
	if err != nil {
		return err
	}

	next := Change{Path: path, Op: op, QueuedAt: q.clock.Now()}
	for i, prev := range changes {
		if prev.Path != path {
			continue
		}
		merged, keep := coalesce(prev, next, q.pushing(prev))
		if keep {
			changes[i] = merged
		} else {
			changes = append(changes[:i], changes[i+1:]...)
		}
		return q.store.Save(changes)
	}

	return q.store.Save(append(changes, next))
}

// ProcessNext calls fn with the oldest change. If fn returns nil the change
// is removed (committed); otherwise it stays queued for retry.
// Returns nil with no error if the queue is empty.
func (q *Queue) ProcessNext(fn ChangeFunc) error {
	q.mu.Lock()
	changes, err := q.store.Load()
	if err != nil {
		q.mu.Unlock()
		return err
	}
	if len(changes) == 0 {
		q.mu.Unlock()
		return nil
	}
	head := changes[0]
	q.inFlight = &head
	q.mu.Unlock()

	// fn runs outside the lock; the watcher may stage more changes meanwhile
	fnErr := fn(head)

	q.mu.Lock()
	defer q.mu.Unlock()
	q.inFlight = nil
	if fnErr != nil {
		return fnErr
	}

	changes, err = q.store.Load()
	if err != nil {
		return err
	}
	for i, c := range changes {
		if c.Path != head.Path {
			continue
		}
		if c.Revision == head.Revision {
			changes = append(changes[:i], changes[i+1:]...)
		} else if c.Op == OpCreate {
			// restaged while pushing: the entity exists now
			changes[i].Op = OpModify
		}
		break
	}
	return q.store.Save(changes)
}

// pushing reports whether c's path is being handed to fn by ProcessNext.
// Changes merged in since then still descend from the pushed one.
// Callers hold q.mu.
func (q *Queue) pushing(c Change) bool {
	return q.inFlight != nil && q.inFlight.Path == c.Path
}

// Count returns the number of queued changes.
func (q *Queue) Count() (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	changes, err := q.store.Load()
	if err != nil {
		return 0, err
	}
	return len(changes), nil
}

// Contains reports whether a change is queued for path.
func (q *Queue) Contains(path string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	changes, err := q.store.Load()
	if err != nil {
		return false, err
	}
	for _, c := range changes {
		if c.Path == path {
			return true, nil
		}
	}
	return false, nil
}

// List returns the queued changes in push order.
func (q *Queue) List() ([]Change, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.store.Load()
}
