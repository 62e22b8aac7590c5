// Package diff renders unified diffs between a file's last-synced original
// and its current workspace content.
package diff

import (
	"fmt"
	"strings"

	difflib "github.com/pmezard/go-difflib/difflib"
)

// DefaultContext is the number of unchanged lines around each hunk.
const DefaultContext = 3

// Options controls patch generation.
type Options struct {
	// MaxBytes is a guardrail on input size (old+new). When exceeded, a
	// placeholder patch is returned. 0 means no limit.
	MaxBytes int

	// Context lines in unified hunks. 0 means DefaultContext.
	Context int
}

func (o Options) context() int {
	if o.Context <= 0 {
		return DefaultContext
	}
	return o.Context
}

// Unified produces a unified patch for a to b. The patch is empty when the
// contents are equal. oversize reports a placeholder was returned.
func Unified(aName, bName string, a, b []byte, opt Options) (patch string, oversize bool) {
	if opt.MaxBytes > 0 && len(a)+len(b) > opt.MaxBytes {
		return omitted(aName, bName), true
	}
	if string(a) == string(b) {
		return "", false
	}

	u := difflib.UnifiedDiff{
		A:        splitLinesKeepNL(string(a)),
		B:        splitLinesKeepNL(string(b)),
		FromFile: aName,
		ToFile:   bName,
		Context:  opt.context(),
	}
	s, err := difflib.GetUnifiedDiffString(u)
	if err != nil {
		return omitted(aName, bName), false
	}
	return s, false
}

// Added produces a patch creating b from nothing.
func Added(bName string, b []byte, opt Options) (string, bool) {
	return Unified("/dev/null", bName, nil, b, opt)
}

// Deleted produces a patch removing all of a.
func Deleted(aName string, a []byte, opt Options) (string, bool) {
	return Unified(aName, "/dev/null", a, nil, opt)
}

// Stats counts added and removed lines in a unified patch.
func Stats(patch string) (added, removed int) {
	for _, line := range strings.Split(patch, "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		case strings.HasPrefix(line, "+"):
			added++
		case strings.HasPrefix(line, "-"):
			removed++
		}
	}
	return added, removed
}

// splitLinesKeepNL splits into lines and keeps newline characters, which
// produces better unified hunks. A final line without newline is kept as is.
func splitLinesKeepNL(s string) []string {
	if s == "" {
		return []string{}
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func omitted(aName, bName string) string {
	return fmt.Sprintf("--- %s\n+++ %s\n@@\n# diff omitted (oversize)\n", aName, bName)
}
