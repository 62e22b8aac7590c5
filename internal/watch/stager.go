package watch

import (
	"context"

	"portalsync/internal/pending"
	"portalsync/internal/portal"
)

// Stage forwards watcher events into q until ctx is done or the watcher
// stops. Errors are logged and do not end the loop.
func Stage(ctx context.Context, fw *FileWatcher, q *pending.Queue, logger portal.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fw.Events():
			if !ok {
				return
			}
			if err := q.Stage(ev.Path, ev.Op); err != nil {
				logger.Error("staging change failed", "path", ev.Path, "op", ev.Op, "error", err)
				continue
			}
			logger.Debug("change staged", "path", ev.Path, "type", ev.Type.String(), "op", ev.Op)
		case err, ok := <-fw.Errors():
			if !ok {
				return
			}
			logger.Warn("watcher error", "error", err)
		}
	}
}
