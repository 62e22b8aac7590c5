// Package watch turns file system notifications under the workspace entity
// folders into pending changes.
package watch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"portalsync/internal/pending"
	"portalsync/internal/portal"
)

// FileEvent is a change to a file inside one of the watched folders.
type FileEvent struct {
	// Path is the absolute path to the file that changed.
	Path string
	Type portal.EntityType
	Op   pending.Op
}

// Filter decides which paths produce events.
type Filter struct {
	// Classify maps a path to its entity type; false drops the event.
	Classify func(path string) (portal.EntityType, bool)
	// Ignore drops editor swap files, temp files and the like. May be nil.
	Ignore func(path string) bool
}

// FileWatcher watches the entity folders, and every folder below them, for
// changes. Folders created while running are picked up automatically.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	filter  Filter
	events  chan FileEvent
	errors  chan error
	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
	stopped bool
}

// NewFileWatcher creates a new FileWatcher instance.
// The watcher must be started with Start() before it will emit events.
func NewFileWatcher(filter Filter) (*FileWatcher, error) {
	if filter.Classify == nil {
		return nil, fmt.Errorf("watch filter requires a classifier")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &FileWatcher{
		watcher: watcher,
		filter:  filter,
		events:  make(chan FileEvent, 100),
		errors:  make(chan error, 10),
		done:    make(chan struct{}),
	}, nil
}

// Start begins watching dirs recursively. Missing folders are created so a
// fresh workspace can be watched before its first download.
func (fw *FileWatcher) Start(dirs ...string) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.running {
		return fmt.Errorf("watcher already running")
	}
	if fw.stopped {
		return fmt.Errorf("watcher already stopped")
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating watched folder %s: %w", dir, err)
		}
		if err := fw.addTree(dir); err != nil {
			return err
		}
	}

	fw.running = true
	fw.wg.Add(1)
	go fw.processEvents()

	return nil
}

// addTree watches dir and every folder below it.
func (fw *FileWatcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if fw.filter.Ignore != nil && p != dir && fw.filter.Ignore(p) {
			return filepath.SkipDir
		}
		if err := fw.watcher.Add(p); err != nil {
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
		return nil
	})
}

// Stop stops watching for file system events and cleans up resources.
// It blocks until the event processing goroutine has exited.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	if fw.stopped {
		fw.mu.Unlock()
		return nil
	}
	wasRunning := fw.running
	fw.running = false
	fw.stopped = true
	fw.mu.Unlock()

	close(fw.done)

	if err := fw.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}

	if wasRunning {
		fw.wg.Wait()
	}

	close(fw.events)
	close(fw.errors)

	return nil
}

// Events returns the channel that emits FileEvent notifications.
// This channel is closed when the watcher is stopped.
func (fw *FileWatcher) Events() <-chan FileEvent {
	return fw.events
}

// Errors returns the channel that emits error notifications.
// This channel is closed when the watcher is stopped.
func (fw *FileWatcher) Errors() <-chan error {
	return fw.errors
}

// IsRunning returns true if the watcher is currently running.
func (fw *FileWatcher) IsRunning() bool {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.running
}

func (fw *FileWatcher) processEvents() {
	defer fw.wg.Done()

	for {
		select {
		case <-fw.done:
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			for _, fileEvent := range fw.convertEvent(event) {
				select {
				case fw.events <- fileEvent:
				case <-fw.done:
					return
				}
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}

			select {
			case fw.errors <- err:
			case <-fw.done:
				return
			}
		}
	}
}

// convertEvent maps one fsnotify event to zero or more FileEvents. A new
// folder is watched and any files already inside it are reported as
// created, since their own events fired before the watch existed.
func (fw *FileWatcher) convertEvent(event fsnotify.Event) []FileEvent {
	if fw.filter.Ignore != nil && fw.filter.Ignore(event.Name) {
		return nil
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			return fw.watchNewDir(event.Name)
		}
	}

	var op pending.Op
	switch {
	case event.Has(fsnotify.Create):
		op = pending.OpCreate
	case event.Has(fsnotify.Write):
		op = pending.OpModify
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		// a rename's new name arrives as a separate create
		op = pending.OpDelete
	default:
		return nil
	}

	if ev, ok := fw.fileEvent(event.Name, op); ok {
		return []FileEvent{ev}
	}
	return nil
}

func (fw *FileWatcher) watchNewDir(dir string) []FileEvent {
	if err := fw.addTree(dir); err != nil {
		select {
		case fw.errors <- err:
		default:
		}
		return nil
	}

	var events []FileEvent
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if fw.filter.Ignore != nil && fw.filter.Ignore(p) {
			return nil
		}
		if ev, ok := fw.fileEvent(p, pending.OpCreate); ok {
			events = append(events, ev)
		}
		return nil
	})
	return events
}

func (fw *FileWatcher) fileEvent(path string, op pending.Op) (FileEvent, bool) {
	t, ok := fw.filter.Classify(path)
	if !ok {
		return FileEvent{}, false
	}
	return FileEvent{Path: path, Type: t, Op: op}, true
}
