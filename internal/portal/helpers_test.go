package portal_test

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"portalsync/internal/portal"
	"portalsync/internal/testutil"
)

const wsRoot = "/ws"

func wsPath(parts ...string) string {
	return filepath.Join(append([]string{wsRoot}, parts...)...)
}

type logEntry struct {
	level string
	msg   string
	args  []any
}

// recordingLogger keeps every entry for assertions.
type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) add(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, args: args})
}

func (l *recordingLogger) Debug(msg string, args ...any) { l.add("debug", msg, args) }
func (l *recordingLogger) Info(msg string, args ...any)  { l.add("info", msg, args) }
func (l *recordingLogger) Warn(msg string, args ...any)  { l.add("warn", msg, args) }
func (l *recordingLogger) Error(msg string, args ...any) { l.add("error", msg, args) }

func (l *recordingLogger) has(level, msgPrefix string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.level == level && strings.HasPrefix(e.msg, msgPrefix) {
			return true
		}
	}
	return false
}

func (l *recordingLogger) dump() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var b strings.Builder
	for _, e := range l.entries {
		fmt.Fprintf(&b, "%s %s %v\n", e.level, e.msg, e.args)
	}
	return b.String()
}

type repoFixture struct {
	repo    *portal.Repository
	chooser *testutil.ScriptedChooser
	ws      *testutil.MockWorkspace
	logger  *recordingLogger
}

func newRepo(remote portal.RemoteClient, opts portal.Options, answers ...testutil.Answer) *repoFixture {
	if opts.Layout.Root == "" {
		opts.Layout.Root = wsRoot
	}
	f := &repoFixture{
		chooser: testutil.NewScriptedChooser(answers...),
		ws:      testutil.NewMockWorkspace(wsRoot),
		logger:  &recordingLogger{},
	}
	f.repo = portal.NewRepository(remote, f.chooser, f.ws, f.ws, f.logger, opts)
	return f
}

// downloaded returns a repository for the seeded customer portal with a
// completed download.
func downloaded(t *testing.T, remote portal.RemoteClient, opts portal.Options, answers ...testutil.Answer) *repoFixture {
	t.Helper()
	if opts.PortalID == "" {
		opts.PortalID = testutil.PortalID
		opts.PortalName = testutil.PortalName
	}
	f := newRepo(remote, opts, answers...)
	data, err := f.repo.Download(context.Background(), true)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if data.IsEmpty() {
		t.Fatalf("Download() returned an empty snapshot")
	}
	return f
}

func groupedOptions() portal.Options {
	return portal.Options{
		DefaultPageTemplateID: testutil.DefaultTemplateID,
		Layout:                portal.Layout{GroupFiles: true},
	}
}
