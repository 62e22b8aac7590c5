package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"portalsync/internal/portal"
)

// Answer is one scripted reply to a Choose or Prompt call.
type Answer struct {
	// Label picks the option with this label (case-insensitive). For
	// Prompt it is the typed text.
	Label   string
	Dismiss bool
	Err     error
}

// Pick answers with the option labelled label, or types label at a prompt.
func Pick(label string) Answer { return Answer{Label: label} }

// Type is Pick for prompts.
func Type(text string) Answer { return Answer{Label: text} }

func Dismiss() Answer { return Answer{Dismiss: true} }

func Fail(err error) Answer { return Answer{Err: err} }

// ScriptedChooser replays answers in order. Once the script runs out
// every call is dismissed.
type ScriptedChooser struct {
	mu      sync.Mutex
	answers []Answer
	// Titles records every title shown, in order.
	Titles []string
	// Offered records the labels offered by each Choose call.
	Offered [][]string
}

var _ portal.Chooser = (*ScriptedChooser)(nil)

func NewScriptedChooser(answers ...Answer) *ScriptedChooser {
	return &ScriptedChooser{answers: answers}
}

// Calls returns how many times the chooser was asked anything.
func (c *ScriptedChooser) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Titles)
}

func (c *ScriptedChooser) next(title string) (Answer, bool) {
	c.Titles = append(c.Titles, title)
	if len(c.answers) == 0 {
		return Answer{}, false
	}
	a := c.answers[0]
	c.answers = c.answers[1:]
	return a, true
}

func (c *ScriptedChooser) Choose(ctx context.Context, title string, options []portal.Option) (portal.Option, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	labels := make([]string, len(options))
	for i, o := range options {
		labels[i] = o.Label
	}
	c.Offered = append(c.Offered, labels)

	a, ok := c.next(title)
	if !ok || a.Dismiss {
		return portal.Option{}, false, nil
	}
	if a.Err != nil {
		return portal.Option{}, false, a.Err
	}
	for _, o := range options {
		if strings.EqualFold(o.Label, a.Label) {
			return o, true, nil
		}
	}
	return portal.Option{}, false, fmt.Errorf("scripted answer %q is not among %v", a.Label, labels)
}

func (c *ScriptedChooser) Prompt(ctx context.Context, title string, secret bool, validate func(string) error) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	a, ok := c.next(title)
	if !ok || a.Dismiss {
		return "", false, nil
	}
	if a.Err != nil {
		return "", false, a.Err
	}
	if validate != nil {
		if err := validate(a.Label); err != nil {
			return "", false, fmt.Errorf("scripted answer %q rejected: %w", a.Label, err)
		}
	}
	return a.Label, true, nil
}
