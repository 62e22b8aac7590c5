package prompt

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"portalsync/internal/portal"
)

var portals = []portal.Option{
	{Label: "Customer Portal", Value: "p-1"},
	{Label: "Partner Portal", Value: "p-2"},
}

func TestLineChooser_Choose(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantOK    bool
		wantValue string
	}{
		{name: "by number", input: "2\n", wantOK: true, wantValue: "p-2"},
		{name: "by label", input: "customer portal\n", wantOK: true, wantValue: "p-1"},
		{name: "retry after invalid answer", input: "9\n1\n", wantOK: true, wantValue: "p-1"},
		{name: "empty line dismisses", input: "\n", wantOK: false},
		{name: "end of input dismisses", input: "", wantOK: false},
		{name: "gives up after repeated invalid answers", input: "x\ny\nz\n1\n", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			c := NewLineChooser(strings.NewReader(tt.input), &out)

			got, ok, err := c.Choose(context.Background(), "Select a portal", portals)
			if err != nil {
				t.Fatalf("Choose() error = %v", err)
			}
			if ok != tt.wantOK {
				t.Fatalf("Choose() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got.Value != tt.wantValue {
				t.Errorf("Choose() value = %q, want %q", got.Value, tt.wantValue)
			}
			if !strings.Contains(out.String(), "1) Customer Portal") {
				t.Errorf("menu not printed:\n%s", out.String())
			}
		})
	}
}

func TestLineChooser_ChooseNoOptions(t *testing.T) {
	c := NewLineChooser(strings.NewReader("1\n"), &bytes.Buffer{})
	_, ok, err := c.Choose(context.Background(), "Select", nil)
	if err != nil || ok {
		t.Errorf("Choose() = ok %v, err %v; want dismissed", ok, err)
	}
}

func TestLineChooser_ChooseCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewLineChooser(strings.NewReader("1\n"), &bytes.Buffer{})
	_, _, err := c.Choose(ctx, "Select", portals)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Choose() error = %v, want context.Canceled", err)
	}
}

func TestLineChooser_Prompt(t *testing.T) {
	notBlank := func(s string) error {
		if strings.HasPrefix(s, "http") {
			return nil
		}
		return errors.New("must be a URL")
	}

	t.Run("returns valid answer", func(t *testing.T) {
		c := NewLineChooser(strings.NewReader("https://cms.example.com\n"), &bytes.Buffer{})
		got, ok, err := c.Prompt(context.Background(), "Base URL", false, notBlank)
		if err != nil || !ok {
			t.Fatalf("Prompt() = ok %v, err %v", ok, err)
		}
		if got != "https://cms.example.com" {
			t.Errorf("Prompt() = %q", got)
		}
	})

	t.Run("re-asks after validation error", func(t *testing.T) {
		var out bytes.Buffer
		c := NewLineChooser(strings.NewReader("nope\nhttps://x\n"), &out)
		got, ok, err := c.Prompt(context.Background(), "Base URL", false, notBlank)
		if err != nil || !ok || got != "https://x" {
			t.Fatalf("Prompt() = %q, %v, %v", got, ok, err)
		}
		if !strings.Contains(out.String(), "must be a URL") {
			t.Errorf("validation message not shown:\n%s", out.String())
		}
	})

	t.Run("secret input from a pipe reads plain line", func(t *testing.T) {
		c := NewLineChooser(strings.NewReader("s3cret\n"), &bytes.Buffer{})
		got, ok, err := c.Prompt(context.Background(), "Token", true, nil)
		if err != nil || !ok || got != "s3cret" {
			t.Fatalf("Prompt() = %q, %v, %v", got, ok, err)
		}
	})

	t.Run("empty answer dismisses", func(t *testing.T) {
		c := NewLineChooser(strings.NewReader("\n"), &bytes.Buffer{})
		_, ok, err := c.Prompt(context.Background(), "Token", false, nil)
		if err != nil || ok {
			t.Fatalf("Prompt() = ok %v, err %v; want dismissed", ok, err)
		}
	})
}
