package fs

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// IgnoreFileName is read from the workspace root when present.
const IgnoreFileName = ".portalsyncignore"

// defaultIgnorePatterns are always applied. The .tmp-* entry hides files
// that are mid atomic write.
var defaultIgnorePatterns = []string{IgnoreFileName, ".git", ".*.tmp-*", ".DS_Store"}

// ignorePattern is a parsed ignore pattern with its matching strategy.
type ignorePattern struct {
	pattern   string
	matchPath bool // true = match against relative path; false = match against any single segment
}

// IgnoreMatcher checks workspace paths against a set of ignore patterns.
// Patterns without '/' match any single path segment, so "node_modules"
// hides everything below a folder of that name. Patterns with '/' match the
// full relative path from the workspace root.
type IgnoreMatcher struct {
	patterns []ignorePattern
}

// NewIgnoreMatcher creates an IgnoreMatcher from raw pattern strings plus
// the built-in defaults. Blank lines and lines starting with '#' are skipped.
func NewIgnoreMatcher(rawPatterns []string) *IgnoreMatcher {
	var patterns []ignorePattern
	for _, raw := range append(append([]string{}, defaultIgnorePatterns...), rawPatterns...) {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		raw = strings.TrimPrefix(raw, "/")
		patterns = append(patterns, ignorePattern{
			pattern:   raw,
			matchPath: strings.Contains(raw, "/"),
		})
	}
	return &IgnoreMatcher{patterns: patterns}
}

// Match reports whether the given workspace-relative path should be ignored.
func (m *IgnoreMatcher) Match(relativePath string) bool {
	normalized := strings.Trim(filepath.ToSlash(relativePath), "/")
	if normalized == "" {
		return false
	}
	segments := strings.Split(normalized, "/")

	for _, p := range m.patterns {
		if p.matchPath {
			if ok, err := filepath.Match(p.pattern, normalized); err == nil && ok {
				return true
			}
			continue
		}
		for _, seg := range segments {
			// bad patterns never match
			if ok, err := filepath.Match(p.pattern, seg); err == nil && ok {
				return true
			}
		}
	}
	return false
}

// ParseIgnoreFile reads an ignore file and returns the raw pattern strings.
// Returns nil and no error if the file does not exist.
func ParseIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		patterns = append(patterns, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return patterns, nil
}
