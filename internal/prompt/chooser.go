package prompt

import (
	"os"

	"golang.org/x/term"

	"portalsync/internal/portal"
)

// NewChooser picks the interactive chooser when both ends are terminals,
// and the line-based one otherwise.
func NewChooser(in, out *os.File) portal.Chooser {
	if term.IsTerminal(int(in.Fd())) && term.IsTerminal(int(out.Fd())) {
		return NewHuhChooser().WithAccessible(os.Getenv("ACCESSIBLE") != "")
	}
	return NewLineChooser(in, out)
}

// IsInteractive reports whether f is a terminal.
func IsInteractive(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
