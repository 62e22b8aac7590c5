// Package prompt implements portal.Chooser for terminals and for piped input.
package prompt

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"

	"portalsync/internal/portal"
)

// HuhChooser shows interactive menus and inputs. Esc or ctrl-c dismisses.
type HuhChooser struct {
	accessible bool
}

var _ portal.Chooser = (*HuhChooser)(nil)

func NewHuhChooser() *HuhChooser {
	return &HuhChooser{}
}

// WithAccessible switches huh to its screen-reader friendly mode.
func (c *HuhChooser) WithAccessible(on bool) *HuhChooser {
	c.accessible = on
	return c
}

func (c *HuhChooser) Choose(ctx context.Context, title string, options []portal.Option) (portal.Option, bool, error) {
	if len(options) == 0 {
		return portal.Option{}, false, nil
	}

	opts := make([]huh.Option[int], len(options))
	for i, o := range options {
		opts[i] = huh.NewOption(o.Label, i)
	}

	var picked int
	field := huh.NewSelect[int]().
		Title(title).
		Options(opts...).
		Height(min(len(options)+2, 15)).
		Value(&picked)

	if err := c.run(ctx, field); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return portal.Option{}, false, nil
		}
		return portal.Option{}, false, fmt.Errorf("showing %q: %w", title, err)
	}
	return options[picked], true, nil
}

func (c *HuhChooser) Prompt(ctx context.Context, title string, secret bool, validate func(string) error) (string, bool, error) {
	var value string
	field := huh.NewInput().
		Title(title).
		Value(&value)
	if validate != nil {
		field = field.Validate(validate)
	}
	if secret {
		field = field.EchoMode(huh.EchoModePassword)
	}

	if err := c.run(ctx, field); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("asking %q: %w", title, err)
	}
	return value, true, nil
}

func (c *HuhChooser) run(ctx context.Context, field huh.Field) error {
	form := huh.NewForm(huh.NewGroup(field)).WithAccessible(c.accessible)
	return form.RunWithContext(ctx)
}
