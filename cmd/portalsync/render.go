package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"portalsync/internal/app"
	"portalsync/internal/diff"
)

var (
	trackedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	untrackedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	modifiedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	deletedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	headerStyle    = lipgloss.NewStyle().Bold(true)
	addedLine      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	removedLine    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	hunkLine       = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
)

// statusIndicator is three columns: T(racked) or ?, M(odified) or D(eleted),
// and the first letter of a queued change.
func statusIndicator(s *app.FileStatus) string {
	tracked := untrackedStyle.Render("?")
	if s.Tracked {
		tracked = trackedStyle.Render("T")
	}

	change := " "
	switch {
	case !s.Exists:
		change = deletedStyle.Render("D")
	case s.Modified:
		change = modifiedStyle.Render("M")
	}

	queued := " "
	if s.Pending != "" {
		queued = pendingStyle.Render(strings.ToUpper(string(s.Pending)[:1]))
	}
	return tracked + change + queued
}

func renderStatus(statuses []*app.FileStatus) string {
	var b strings.Builder
	var modified, pendingCount int
	for _, s := range statuses {
		if s.Modified {
			modified++
		}
		if s.Pending != "" {
			pendingCount++
		}
		fmt.Fprintf(&b, "%s %s\n", statusIndicator(s), s.RelPath)
	}
	b.WriteString(headerStyle.Render(fmt.Sprintf("%d file(s), %d changed, %d queued", len(statuses), modified, pendingCount)))
	b.WriteString("\n")
	return b.String()
}

// renderPatch colors a unified patch line by line and appends its stats.
func renderPatch(patch string) string {
	var b strings.Builder
	for _, line := range strings.SplitAfter(patch, "\n") {
		if line == "" {
			continue
		}
		text := strings.TrimSuffix(line, "\n")
		switch {
		case strings.HasPrefix(text, "+++"), strings.HasPrefix(text, "---"):
			text = headerStyle.Render(text)
		case strings.HasPrefix(text, "@@"):
			text = hunkLine.Render(text)
		case strings.HasPrefix(text, "+"):
			text = addedLine.Render(text)
		case strings.HasPrefix(text, "-"):
			text = removedLine.Render(text)
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	added, removed := diff.Stats(patch)
	fmt.Fprintf(&b, "%d insertion(s), %d deletion(s)\n", added, removed)
	return b.String()
}
