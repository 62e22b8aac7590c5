package pending

// queueStore abstracts where the queue lives. Concurrency is managed by
// the caller (Queue.mu), so stores do not need to be safe for concurrent use.
type queueStore interface {
	// Load returns the queued changes in order.
	Load() ([]Change, error)

	// Save replaces the queue.
	Save(changes []Change) error
}
