package app

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"portalsync/internal/config"
)

func TestSyncHandler_Handle(t *testing.T) {
	ts := time.Date(2024, 6, 15, 14, 30, 45, 0, time.UTC)

	tests := []struct {
		name    string
		opID    string
		level   slog.Level
		message string
		attrs   []slog.Attr
		want    string
	}{
		{
			name:    "basic info message",
			opID:    "op-123",
			level:   slog.LevelInfo,
			message: "download finished",
			want:    "2024-06-15T14:30:45Z\tINFO\top-123\tdownload finished\n",
		},
		{
			name:    "warn level",
			opID:    "op-456",
			level:   slog.LevelWarn,
			message: "portal has no languages",
			want:    "2024-06-15T14:30:45Z\tWARN\top-456\tportal has no languages\n",
		},
		{
			name:    "with record attrs",
			opID:    "op-789",
			level:   slog.LevelInfo,
			message: "web file uploaded",
			attrs:   []slog.Attr{slog.String("name", "logo.png"), slog.Int("count", 2)},
			want:    "2024-06-15T14:30:45Z\tINFO\top-789\tweb file uploaded\tname=logo.png\tcount=2\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := &syncHandler{w: &buf, opID: tt.opID, level: slog.LevelDebug}

			r := slog.NewRecord(ts, tt.level, tt.message, 0)
			for _, a := range tt.attrs {
				r.AddAttrs(a)
			}

			if err := h.Handle(context.Background(), r); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}
			if got := buf.String(); got != tt.want {
				t.Errorf("Handle() output =\n%q\nwant:\n%q", got, tt.want)
			}
		})
	}
}

func TestSyncHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := &syncHandler{w: &buf, opID: "op-1", attrs: []slog.Attr{slog.String("a", "1")}}

	h2 := h.WithAttrs([]slog.Attr{slog.String("component", "cms")}).(*syncHandler)
	if len(h.attrs) != 1 {
		t.Errorf("original handler attrs modified: got %d, want 1", len(h.attrs))
	}

	r := slog.NewRecord(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), slog.LevelInfo, "request", 0)
	r.AddAttrs(slog.String("path", "/portals"))
	if err := h2.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	got := buf.String()
	for _, want := range []string{"a=1", "component=cms", "path=/portals"} {
		if !strings.Contains(got, want) {
			t.Errorf("output %q missing %s", got, want)
		}
	}
}

func TestSyncHandler_Enabled(t *testing.T) {
	h := &syncHandler{level: slog.LevelWarn}

	tests := []struct {
		level slog.Level
		want  bool
	}{
		{slog.LevelDebug, false},
		{slog.LevelInfo, false},
		{slog.LevelWarn, true},
		{slog.LevelError, true},
	}
	for _, tt := range tests {
		if got := h.Enabled(context.Background(), tt.level); got != tt.want {
			t.Errorf("Enabled(%v) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestFanoutHandler(t *testing.T) {
	var all, warnings bytes.Buffer
	logger := slog.New(&fanoutHandler{handlers: []slog.Handler{
		&syncHandler{w: &all, opID: "op", level: slog.LevelDebug},
		&syncHandler{w: &warnings, opID: "op", level: slog.LevelWarn},
	}})

	logger.Debug("detail")
	logger.With("portal", "p1").Warn("careful")

	if !strings.Contains(all.String(), "detail") || !strings.Contains(all.String(), "careful") {
		t.Errorf("debug handler output = %q, want both records", all.String())
	}
	if strings.Contains(warnings.String(), "detail") {
		t.Errorf("warn handler got debug record: %q", warnings.String())
	}
	if !strings.Contains(warnings.String(), "careful\tportal=p1") {
		t.Errorf("warn handler output = %q, want careful with portal attr", warnings.String())
	}
}

func TestNewLogger(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "log")

	logger, closer, err := newLogger(dir, config.LogConfig{MaxSizeMB: 1, MaxBackups: 1, MaxAgeDays: 1}, "test-op", slog.LevelError)
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	logger.Info("hello", "k", "v")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "\tINFO\ttest-op\thello\tk=v") {
		t.Errorf("log file = %q, want the info record", data)
	}
}
