package app

import (
	"context"
	"fmt"
	"time"

	"portalsync/internal/portal"
	"portalsync/internal/watch"
)

// DefaultPushInterval is how often Watch drains the pending queue.
const DefaultPushInterval = 2 * time.Second

// Watch stages every change under the entity folders and pushes the queue
// every interval until ctx is done. Pushes run on this goroutine only.
// A failed push is logged and retried on the next tick.
func (a *SyncApp) Watch(ctx context.Context, interval time.Duration) error {
	if err := a.persistOperation(a.workspace.Root()); err != nil {
		return err
	}
	if interval <= 0 {
		interval = DefaultPushInterval
	}

	mapper := a.repo.Mapper()
	fw, err := watch.NewFileWatcher(watch.Filter{
		Classify: mapper.TypeOf,
		Ignore:   a.workspace.Ignored,
	})
	if err != nil {
		return a.op.Record(err)
	}
	dirs := []string{
		mapper.Dir(portal.WebTemplateType),
		mapper.Dir(portal.ContentSnippetType),
		mapper.Dir(portal.WebFileType),
	}
	if err := fw.Start(dirs...); err != nil {
		return a.op.Record(fmt.Errorf("starting watcher: %w", err))
	}
	defer fw.Stop()

	stageCtx, stopStaging := context.WithCancel(ctx)
	defer stopStaging()
	go watch.Stage(stageCtx, fw, a.queue, a.logger)

	a.logger.Info("watching workspace", "root", a.workspace.Root(), "interval", interval.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("watch stopped")
			return nil
		case <-ticker.C:
			if _, err := a.push(ctx); err != nil {
				a.logger.Error("push failed, will retry", "error", err)
			}
		}
	}
}
