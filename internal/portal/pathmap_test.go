package portal_test

import (
	"errors"
	"testing"

	"portalsync/internal/portal"
	"portalsync/internal/testutil"
)

func TestPathMapper_LocalPath(t *testing.T) {
	data := portal.NewPortalData()
	data.WebFiles["logo.png"] = &portal.WebFile{Name: "Logo.png", Folder: "products/shoes"}
	data.WebFiles["site.css"] = &portal.WebFile{Name: "site.css"}

	tests := []struct {
		name    string
		grouped bool
		logical string
		typ     portal.EntityType
		want    string
		wantDir string
	}{
		{"template", false, "Header", portal.WebTemplateType, wsPath("web-templates", "Header.html"), wsPath("web-templates")},
		{"snippet", false, "Account/SignIn/en-us/PageCopy", portal.ContentSnippetType, wsPath("content-snippets", "Account", "SignIn", "en-us", "PageCopy.html"), wsPath("content-snippets", "Account", "SignIn", "en-us")},
		{"flat file", false, "logo.png", portal.WebFileType, wsPath("web-files", "logo.png"), wsPath("web-files")},
		{"grouped file", true, "logo.png", portal.WebFileType, wsPath("web-files", "products", "shoes", "Logo.png"), wsPath("web-files", "products", "shoes")},
		{"grouped file on root page", true, "site.css", portal.WebFileType, wsPath("web-files", "site.css"), wsPath("web-files")},
		{"grouped unknown file", true, "new.js", portal.WebFileType, wsPath("web-files", "new.js"), wsPath("web-files")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws := testutil.NewMockWorkspace(wsRoot)
			m := portal.NewPathMapper(portal.Layout{Root: wsRoot, GroupFiles: tt.grouped}, ws)

			got, err := m.LocalPath(tt.logical, tt.typ, data)
			if err != nil {
				t.Fatalf("LocalPath() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("LocalPath() = %q, want %q", got, tt.want)
			}
			if !ws.HasDir(tt.wantDir) {
				t.Errorf("folder %q not created", tt.wantDir)
			}
		})
	}
}

func TestPathMapper_LocalPathFolderError(t *testing.T) {
	ws := testutil.NewMockWorkspace(wsRoot)
	ws.EnsureDirErr = errors.New("read-only file system")
	m := portal.NewPathMapper(portal.Layout{Root: wsRoot}, ws)

	got, err := m.LocalPath("Header", portal.WebTemplateType, nil)
	if err == nil {
		t.Fatal("LocalPath() succeeded although the folder could not be created")
	}
	if got != "" {
		t.Errorf("LocalPath() = %q, want no path", got)
	}
}

func TestPathMapper_CustomFolders(t *testing.T) {
	ws := testutil.NewMockWorkspace(wsRoot)
	m := portal.NewPathMapper(portal.Layout{Root: wsRoot, TemplatesDir: "tpl", SnippetsDir: "txt", FilesDir: "assets"}, ws)

	if got := m.Dir(portal.WebTemplateType); got != wsPath("tpl") {
		t.Errorf("Dir(template) = %q", got)
	}
	if got := m.Dir(portal.ContentSnippetType); got != wsPath("txt") {
		t.Errorf("Dir(snippet) = %q", got)
	}
	if got := m.Dir(portal.WebFileType); got != wsPath("assets") {
		t.Errorf("Dir(file) = %q", got)
	}
}

func TestPathMapper_LogicalName(t *testing.T) {
	m := portal.NewPathMapper(portal.Layout{Root: wsRoot, GroupFiles: true}, testutil.NewMockWorkspace(wsRoot))

	tests := []struct {
		name    string
		path    string
		typ     portal.EntityType
		want    string
		wantErr bool
	}{
		{"template", wsPath("web-templates", "Header.html"), portal.WebTemplateType, "Header", false},
		{"snippet", wsPath("content-snippets", "Account", "SignIn", "en-us", "PageCopy.html"), portal.ContentSnippetType, "Account/SignIn/en-us/PageCopy", false},
		{"grouped file keeps only the base name", wsPath("web-files", "products", "Logo.png"), portal.WebFileType, "Logo.png", false},
		{"wrong folder", wsPath("web-files", "Header.html"), portal.WebTemplateType, "", true},
		{"folder itself", wsPath("web-templates"), portal.WebTemplateType, "", true},
		{"outside workspace", "/elsewhere/Header.html", portal.WebTemplateType, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.LogicalName(tt.path, tt.typ)
			if (err != nil) != tt.wantErr {
				t.Fatalf("LogicalName() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("LogicalName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPathMapper_TypeOf(t *testing.T) {
	m := portal.NewPathMapper(portal.Layout{Root: wsRoot}, testutil.NewMockWorkspace(wsRoot))

	tests := []struct {
		path   string
		want   portal.EntityType
		wantOK bool
	}{
		{wsPath("web-templates", "Header.html"), portal.WebTemplateType, true},
		{wsPath("content-snippets", "A", "en-us", "B.html"), portal.ContentSnippetType, true},
		{wsPath("web-files", "x", "y.css"), portal.WebFileType, true},
		{wsPath("README.md"), 0, false},
		{wsPath("web-templates-old", "x.html"), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := m.TypeOf(tt.path)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("TypeOf() = %v, %v, want %v, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestPathMapper_WorkspaceRelative(t *testing.T) {
	m := portal.NewPathMapper(portal.Layout{Root: wsRoot}, testutil.NewMockWorkspace(wsRoot))

	got, err := m.WorkspaceRelative(wsPath("content-snippets", "A", "en-us", "B.html"))
	if err != nil {
		t.Fatalf("WorkspaceRelative() error = %v", err)
	}
	if got != "content-snippets/A/en-us/B.html" {
		t.Errorf("WorkspaceRelative() = %q", got)
	}
	if _, err := m.WorkspaceRelative("/other/file"); err == nil {
		t.Error("WorkspaceRelative() accepted a path outside the root")
	}
}

func TestParseEntityType(t *testing.T) {
	tests := []struct {
		in      string
		want    portal.EntityType
		wantErr bool
	}{
		{"template", portal.WebTemplateType, false},
		{"Web-Template", portal.WebTemplateType, false},
		{"snippet", portal.ContentSnippetType, false},
		{" file ", portal.WebFileType, false},
		{"page", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := portal.ParseEntityType(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseEntityType() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseEntityType() = %v, want %v", got, tt.want)
			}
		})
	}
}
