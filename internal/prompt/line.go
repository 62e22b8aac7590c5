package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"portalsync/internal/portal"
)

// LineChooser prints numbered menus and reads answers line by line. It
// serves piped input and dumb terminals. An empty answer or end of input
// dismisses.
type LineChooser struct {
	in  *bufio.Reader
	out io.Writer
	// fd is the input's descriptor when it is a terminal, for hidden input.
	fd int
}

var _ portal.Chooser = (*LineChooser)(nil)

func NewLineChooser(in io.Reader, out io.Writer) *LineChooser {
	c := &LineChooser{in: bufio.NewReader(in), out: out, fd: -1}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		c.fd = int(f.Fd())
	}
	return c
}

// maxAttempts bounds re-asking after invalid answers.
const maxAttempts = 3

func (c *LineChooser) Choose(ctx context.Context, title string, options []portal.Option) (portal.Option, bool, error) {
	if len(options) == 0 {
		return portal.Option{}, false, nil
	}

	fmt.Fprintln(c.out, title)
	for i, o := range options {
		fmt.Fprintf(c.out, "  %d) %s\n", i+1, o.Label)
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return portal.Option{}, false, err
		}
		fmt.Fprintf(c.out, "Choice [1-%d]: ", len(options))

		line, ok, err := c.readLine()
		if err != nil || !ok {
			return portal.Option{}, false, err
		}

		n, err := strconv.Atoi(line)
		if err == nil && n >= 1 && n <= len(options) {
			return options[n-1], true, nil
		}
		// accept the label itself too
		for _, o := range options {
			if strings.EqualFold(o.Label, line) {
				return o, true, nil
			}
		}
		fmt.Fprintf(c.out, "%q is not one of the choices\n", line)
	}
	return portal.Option{}, false, nil
}

func (c *LineChooser) Prompt(ctx context.Context, title string, secret bool, validate func(string) error) (string, bool, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", false, err
		}
		fmt.Fprintf(c.out, "%s: ", title)

		var (
			line string
			ok   bool
			err  error
		)
		if secret && c.fd >= 0 {
			line, ok, err = c.readHidden()
		} else {
			line, ok, err = c.readLine()
		}
		if err != nil || !ok {
			return "", false, err
		}

		if validate != nil {
			if verr := validate(line); verr != nil {
				fmt.Fprintf(c.out, "%v\n", verr)
				continue
			}
		}
		return line, true, nil
	}
	return "", false, nil
}

// readLine returns the trimmed next line; ok is false on an empty line or
// end of input.
func (c *LineChooser) readLine() (string, bool, error) {
	line, err := c.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", false, fmt.Errorf("reading answer: %w", err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", false, nil
	}
	return line, true, nil
}

func (c *LineChooser) readHidden() (string, bool, error) {
	b, err := term.ReadPassword(c.fd)
	fmt.Fprintln(c.out)
	if err != nil {
		return "", false, fmt.Errorf("reading answer: %w", err)
	}
	line := strings.TrimSpace(string(b))
	return line, line != "", nil
}
