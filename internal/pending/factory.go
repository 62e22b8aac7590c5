package pending

import (
	"fmt"

	"portalsync/internal/config"
	"portalsync/internal/portal"
)

// NewQueueFromConfig creates a Queue based on the pending config type.
func NewQueueFromConfig(cfg config.PendingConfig, clock portal.Clock) (*Queue, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryQueue(clock), nil
	case "filesystem", "":
		if cfg.QueueFile == "" {
			return nil, fmt.Errorf("filesystem pending queue requires queue_file to be set")
		}
		return NewFileQueue(cfg.QueueFile, clock)
	default:
		return nil, fmt.Errorf("unknown pending queue type: %s", cfg.Type)
	}
}
