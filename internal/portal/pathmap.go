package portal

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Default folder names under the workspace root.
const (
	DefaultTemplatesDir = "web-templates"
	DefaultSnippetsDir  = "content-snippets"
	DefaultFilesDir     = "web-files"
)

// documentExt is the extension given to templates and snippets on disk.
const documentExt = ".html"

// Layout describes where each entity type lives in the workspace.
// The *Dir fields are relative to Root.
type Layout struct {
	Root         string
	TemplatesDir string
	SnippetsDir  string
	FilesDir     string
	// GroupFiles mirrors the page hierarchy as folders under FilesDir.
	GroupFiles bool
}

func (l Layout) withDefaults() Layout {
	if l.TemplatesDir == "" {
		l.TemplatesDir = DefaultTemplatesDir
	}
	if l.SnippetsDir == "" {
		l.SnippetsDir = DefaultSnippetsDir
	}
	if l.FilesDir == "" {
		l.FilesDir = DefaultFilesDir
	}
	return l
}

// PathMapper converts between logical entity names and workspace paths.
type PathMapper struct {
	layout  Layout
	folders FolderCreator
}

func NewPathMapper(layout Layout, folders FolderCreator) *PathMapper {
	return &PathMapper{layout: layout.withDefaults(), folders: folders}
}

func (m *PathMapper) Layout() Layout {
	return m.layout
}

// Dir returns the absolute folder holding entities of type t.
func (m *PathMapper) Dir(t EntityType) string {
	switch t {
	case WebTemplateType:
		return filepath.Join(m.layout.Root, m.layout.TemplatesDir)
	case ContentSnippetType:
		return filepath.Join(m.layout.Root, m.layout.SnippetsDir)
	default:
		return filepath.Join(m.layout.Root, m.layout.FilesDir)
	}
}

// LocalPath returns the workspace path for a logical name, creating the
// containing folder first. data is consulted for web file folders and may
// be nil.
func (m *PathMapper) LocalPath(name string, t EntityType, data *PortalData) (string, error) {
	p := m.pathFor(name, t, data)
	dir := filepath.Dir(p)
	if err := m.folders.EnsureDir(dir); err != nil {
		return "", fmt.Errorf("creating folder %s for %s %s: %w", dir, t, name, err)
	}
	return p, nil
}

// pathFor computes the path without touching the file system.
func (m *PathMapper) pathFor(name string, t EntityType, data *PortalData) string {
	dir := m.Dir(t)
	switch t {
	case WebTemplateType:
		return filepath.Join(dir, name+documentExt)
	case ContentSnippetType:
		segs := strings.Split(strings.Trim(name, "/"), "/")
		return filepath.Join(dir, filepath.Join(segs...)+documentExt)
	default:
		if !m.layout.GroupFiles || data == nil {
			return filepath.Join(dir, name)
		}
		f, ok := data.WebFiles[Key(name)]
		if !ok || f.Folder == "" {
			return filepath.Join(dir, name)
		}
		return filepath.Join(dir, filepath.FromSlash(f.Folder), f.Name)
	}
}

// LogicalName is the inverse of LocalPath. The result keeps the on-disk case;
// use Key to look it up.
func (m *PathMapper) LogicalName(path string, t EntityType) (string, error) {
	rel, err := relWithin(m.Dir(t), path)
	if err != nil {
		return "", fmt.Errorf("%s path: %w", t, err)
	}
	switch t {
	case WebTemplateType, ContentSnippetType:
		return strings.TrimSuffix(rel, documentExt), nil
	default:
		return filepath.Base(path), nil
	}
}

// TypeOf classifies a workspace path by the entity folder containing it.
func (m *PathMapper) TypeOf(path string) (EntityType, bool) {
	for _, t := range []EntityType{WebTemplateType, ContentSnippetType, WebFileType} {
		if _, err := relWithin(m.Dir(t), path); err == nil {
			return t, true
		}
	}
	return 0, false
}

// WorkspaceRelative returns path relative to the workspace root, slash separated.
func (m *PathMapper) WorkspaceRelative(path string) (string, error) {
	return relWithin(m.layout.Root, path)
}

// relWithin returns the slash-separated path of target below base, failing
// when target is base itself or lies outside it.
func relWithin(base, target string) (string, error) {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return "", err
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is not below %s", target, base)
	}
	return filepath.ToSlash(rel), nil
}
