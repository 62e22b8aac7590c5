package portal_test

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"portalsync/internal/portal"
	"portalsync/internal/testutil"
)

func TestDocumentOperations_RequireSnapshot(t *testing.T) {
	f := newRepo(testutil.NewTestRemote(), portal.Options{PortalID: testutil.PortalID})
	ctx := context.Background()
	path := wsPath("web-templates", "Header.html")

	if err := f.repo.AddDocument(ctx, portal.WebTemplateType, path, []byte("x")); !errors.Is(err, portal.ErrConfiguration) {
		t.Errorf("AddDocument() error = %v, want ErrConfiguration", err)
	}
	if err := f.repo.UpdateDocument(ctx, portal.WebTemplateType, path, []byte("x")); !errors.Is(err, portal.ErrConfiguration) {
		t.Errorf("UpdateDocument() error = %v, want ErrConfiguration", err)
	}
	if err := f.repo.DeleteDocument(ctx, portal.WebTemplateType, path); !errors.Is(err, portal.ErrConfiguration) {
		t.Errorf("DeleteDocument() error = %v, want ErrConfiguration", err)
	}
}

func TestAddDocument_WebTemplate(t *testing.T) {
	remote := testutil.NewTestRemote()
	f := downloaded(t, remote, portal.Options{})

	err := f.repo.AddDocument(context.Background(), portal.WebTemplateType, wsPath("web-templates", "Nav.html"), []byte("<nav/>"))
	if err != nil {
		t.Fatalf("AddDocument() error = %v", err)
	}

	got, ok := f.repo.GetPortalData().WebTemplates["nav"]
	if !ok {
		t.Fatal("created template not stored under key nav")
	}
	if got.ID == "" || got.Name != "Nav" || got.Source != "<nav/>" {
		t.Errorf("stored template = %+v", got)
	}
	if n := remote.CallCount("CreateWebTemplate"); n != 1 {
		t.Errorf("CreateWebTemplate called %d times, want 1", n)
	}
}

func TestAddDocument_SnippetKeyMatchesDownload(t *testing.T) {
	remote := testutil.NewTestRemote()
	f := downloaded(t, remote, portal.Options{})
	path := wsPath("content-snippets", "Account", "SignIn", "en-us", "PageCopy.html")

	if err := f.repo.AddDocument(context.Background(), portal.ContentSnippetType, path, []byte("Welcome")); err != nil {
		t.Fatalf("AddDocument() error = %v", err)
	}

	const key = "account/signin/en-us/pagecopy"
	data := f.repo.GetPortalData()
	s, ok := data.ContentSnippets[key]
	if !ok {
		t.Fatalf("snippet not stored under %q, have %v", key, data.ContentSnippets)
	}
	if s.Name != "Account/SignIn/PageCopy" {
		t.Errorf("record name = %q, want language segment removed", s.Name)
	}
	if s.LanguageID != testutil.EnglishID {
		t.Errorf("LanguageID = %q, want %q", s.LanguageID, testutil.EnglishID)
	}
	local, err := f.repo.LocalPath(data.SnippetName(s), portal.ContentSnippetType)
	if err != nil {
		t.Fatalf("LocalPath() error = %v", err)
	}
	if local != path {
		t.Errorf("LocalPath() = %q, want %q", local, path)
	}

	// a fresh download derives the same key from server data
	again := downloaded(t, remote, portal.Options{})
	if _, ok := again.repo.GetPortalData().ContentSnippets[key]; !ok {
		t.Errorf("download did not produce key %q", key)
	}

	if err := again.repo.UpdateDocument(context.Background(), portal.ContentSnippetType, path, []byte("Hello")); err != nil {
		t.Errorf("UpdateDocument() after download error = %v", err)
	}
}

func TestAddDocument_SnippetLanguageErrors(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"no language folder", wsPath("content-snippets", "Lonely.html")},
		{"unknown language", wsPath("content-snippets", "Promo", "fr-fr", "Banner.html")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remote := testutil.NewTestRemote()
			f := downloaded(t, remote, portal.Options{})

			err := f.repo.AddDocument(context.Background(), portal.ContentSnippetType, tt.path, []byte("x"))
			if !errors.Is(err, portal.ErrConfiguration) {
				t.Errorf("AddDocument() error = %v, want ErrConfiguration", err)
			}
			if remote.CallCount("CreateContentSnippet") != 0 {
				t.Error("snippet sent to the CMS")
			}
		})
	}
}

func TestAddDocument_RemoteErrorReturnedUnchanged(t *testing.T) {
	remote := testutil.NewTestRemote()
	f := downloaded(t, remote, portal.Options{})
	boom := errors.New("boom")
	remote.FailOn("CreateWebTemplate", boom)

	err := f.repo.AddDocument(context.Background(), portal.WebTemplateType, wsPath("web-templates", "Nav.html"), []byte("x"))
	if err != boom {
		t.Errorf("AddDocument() error = %v, want %v", err, boom)
	}
	if _, ok := f.repo.GetPortalData().WebTemplates["nav"]; ok {
		t.Error("failed create stored the template")
	}
}

func TestUpdateDocument(t *testing.T) {
	tests := []struct {
		name  string
		typ   portal.EntityType
		path  string
		check func(t *testing.T, data *portal.PortalData)
	}{
		{
			name: "web template",
			typ:  portal.WebTemplateType,
			path: wsPath("web-templates", "Header.html"),
			check: func(t *testing.T, data *portal.PortalData) {
				if got := data.WebTemplates["header"].Source; got != "new" {
					t.Errorf("Source = %q", got)
				}
			},
		},
		{
			name: "content snippet",
			typ:  portal.ContentSnippetType,
			path: wsPath("content-snippets", "Footer", "de-de", "Text.html"),
			check: func(t *testing.T, data *portal.PortalData) {
				s := data.ContentSnippets["footer/de-de/text"]
				if s.Value != "new" || s.LanguageID != testutil.GermanID {
					t.Errorf("snippet = %+v", s)
				}
			},
		},
		{
			name: "web file",
			typ:  portal.WebFileType,
			path: wsPath("web-files", "logo.png"),
			check: func(t *testing.T, data *portal.PortalData) {
				f := data.WebFiles["logo.png"]
				if f.Content != base64.StdEncoding.EncodeToString([]byte("new")) {
					t.Errorf("Content = %q", f.Content)
				}
				if f.Folder != "products" {
					t.Errorf("Folder = %q, want products", f.Folder)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := downloaded(t, testutil.NewTestRemote(), portal.Options{})

			if err := f.repo.UpdateDocument(context.Background(), tt.typ, tt.path, []byte("new")); err != nil {
				t.Fatalf("UpdateDocument() error = %v", err)
			}
			tt.check(t, f.repo.GetPortalData())
		})
	}
}

func TestUpdateDocument_UnknownPath(t *testing.T) {
	f := downloaded(t, testutil.NewTestRemote(), portal.Options{})
	path := wsPath("web-templates", "Missing.html")

	err := f.repo.UpdateDocument(context.Background(), portal.WebTemplateType, path, []byte("x"))
	if !errors.Is(err, portal.ErrNotFound) {
		t.Fatalf("UpdateDocument() error = %v, want ErrNotFound", err)
	}
	var nf *portal.NotFoundError
	if !errors.As(err, &nf) || nf.Path != path {
		t.Errorf("error does not name the path: %v", err)
	}
}

func TestUpdateDocument_FailureKeepsStore(t *testing.T) {
	remote := testutil.NewTestRemote()
	f := downloaded(t, remote, portal.Options{})
	boom := errors.New("boom")
	remote.FailOn("UpdateWebTemplate", boom)

	err := f.repo.UpdateDocument(context.Background(), portal.WebTemplateType, wsPath("web-templates", "Header.html"), []byte("new"))
	if err != boom {
		t.Fatalf("UpdateDocument() error = %v, want %v", err, boom)
	}
	if got := f.repo.GetPortalData().WebTemplates["header"].Source; got != testutil.HeaderSource {
		t.Errorf("store changed on failure: %q", got)
	}
}

func TestDeleteDocument(t *testing.T) {
	tests := []struct {
		name    string
		typ     portal.EntityType
		path    string
		present func(data *portal.PortalData) bool
	}{
		{
			name:    "web template",
			typ:     portal.WebTemplateType,
			path:    wsPath("web-templates", "Header.html"),
			present: func(d *portal.PortalData) bool { _, ok := d.WebTemplates["header"]; return ok },
		},
		{
			name:    "content snippet",
			typ:     portal.ContentSnippetType,
			path:    wsPath("content-snippets", "Footer", "en-us", "Text.html"),
			present: func(d *portal.PortalData) bool { _, ok := d.ContentSnippets["footer/en-us/text"]; return ok },
		},
		{
			name:    "web file",
			typ:     portal.WebFileType,
			path:    wsPath("web-files", "site.css"),
			present: func(d *portal.PortalData) bool { _, ok := d.WebFiles["site.css"]; return ok },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := downloaded(t, testutil.NewTestRemote(), portal.Options{})

			if err := f.repo.DeleteDocument(context.Background(), tt.typ, tt.path); err != nil {
				t.Fatalf("DeleteDocument() error = %v", err)
			}
			if tt.present(f.repo.GetPortalData()) {
				t.Error("entity still in the store")
			}
			if !errors.Is(f.repo.DeleteDocument(context.Background(), tt.typ, tt.path), portal.ErrNotFound) {
				t.Error("second delete did not report ErrNotFound")
			}
		})
	}
}

func TestDeleteDocument_FailureAsymmetry(t *testing.T) {
	boom := errors.New("boom")

	t.Run("template failure propagates and keeps the entry", func(t *testing.T) {
		remote := testutil.NewTestRemote()
		f := downloaded(t, remote, portal.Options{})
		remote.FailOn("DeleteWebTemplate", boom)

		err := f.repo.DeleteDocument(context.Background(), portal.WebTemplateType, wsPath("web-templates", "Header.html"))
		if !errors.Is(err, boom) {
			t.Fatalf("DeleteDocument() error = %v, want %v", err, boom)
		}
		if _, ok := f.repo.GetPortalData().WebTemplates["header"]; !ok {
			t.Error("template removed although the remote delete failed")
		}
	})

	t.Run("snippet failure propagates and keeps the entry", func(t *testing.T) {
		remote := testutil.NewTestRemote()
		f := downloaded(t, remote, portal.Options{})
		remote.FailOn("DeleteContentSnippet", boom)

		err := f.repo.DeleteDocument(context.Background(), portal.ContentSnippetType, wsPath("content-snippets", "Footer", "en-us", "Text.html"))
		if !errors.Is(err, boom) {
			t.Fatalf("DeleteDocument() error = %v, want %v", err, boom)
		}
		if _, ok := f.repo.GetPortalData().ContentSnippets["footer/en-us/text"]; !ok {
			t.Error("snippet removed although the remote delete failed")
		}
	})

	t.Run("web file failure is logged and the entry removed", func(t *testing.T) {
		remote := testutil.NewTestRemote()
		f := downloaded(t, remote, portal.Options{})
		remote.FailOn("DeleteWebFile", boom)

		err := f.repo.DeleteDocument(context.Background(), portal.WebFileType, wsPath("web-files", "site.css"))
		if err != nil {
			t.Fatalf("DeleteDocument() error = %v, want nil", err)
		}
		if _, ok := f.repo.GetPortalData().WebFiles["site.css"]; ok {
			t.Error("web file kept in the store")
		}
		if remote.WebFileCount(testutil.PortalID) != 2 {
			t.Error("remote web file removed despite the injected failure")
		}
		if !f.logger.has("error", "remote web file delete failed") {
			t.Errorf("failure not logged:\n%s", f.logger.dump())
		}
	})
}

func TestDeleteDocument_WebFileNeedsIdentifiers(t *testing.T) {
	remote := testutil.NewTestRemote()
	f := downloaded(t, remote, portal.Options{})
	f.repo.GetPortalData().WebFiles["site.css"].AnnotationID = ""

	err := f.repo.DeleteDocument(context.Background(), portal.WebFileType, wsPath("web-files", "site.css"))
	if !errors.Is(err, portal.ErrConfiguration) {
		t.Fatalf("DeleteDocument() error = %v, want ErrConfiguration", err)
	}
	if remote.CallCount("DeleteWebFile") != 0 {
		t.Error("remote delete attempted without identifiers")
	}
	if _, ok := f.repo.GetPortalData().WebFiles["site.css"]; !ok {
		t.Error("web file removed from the store")
	}
}

func TestGroupedWebFile_SameNameInAnotherFolder(t *testing.T) {
	ctx := context.Background()
	elsewhere := wsPath("web-files", "products", "shoes", "logo.png")

	t.Run("add is refused", func(t *testing.T) {
		remote := testutil.NewTestRemote()
		f := downloaded(t, remote, groupedOptions())

		err := f.repo.AddDocument(ctx, portal.WebFileType, elsewhere, []byte("shoe logo"))
		if !errors.Is(err, portal.ErrConfiguration) {
			t.Fatalf("AddDocument() error = %v, want ErrConfiguration", err)
		}
		if remote.CallCount("UploadWebFile") != 0 || remote.CallCount("CreateWebPage") != 0 {
			t.Errorf("remote calls made for a colliding file: %v", remote.Calls())
		}
		logo := f.repo.GetPortalData().WebFiles["logo.png"]
		if logo.ID != testutil.LogoID || logo.Folder != "products" {
			t.Errorf("stored logo = %+v, want the products logo", logo)
		}
	})

	t.Run("update and delete do not match", func(t *testing.T) {
		remote := testutil.NewTestRemote()
		f := downloaded(t, remote, groupedOptions())

		err := f.repo.UpdateDocument(ctx, portal.WebFileType, elsewhere, []byte("x"))
		var nf *portal.NotFoundError
		if !errors.As(err, &nf) || nf.Path != elsewhere {
			t.Errorf("UpdateDocument() error = %v, want NotFoundError for %s", err, elsewhere)
		}
		if err := f.repo.DeleteDocument(ctx, portal.WebFileType, elsewhere); !errors.Is(err, portal.ErrNotFound) {
			t.Errorf("DeleteDocument() error = %v, want ErrNotFound", err)
		}
		if remote.CallCount("UpdateWebFile") != 0 || remote.CallCount("DeleteWebFile") != 0 {
			t.Errorf("remote record touched: %v", remote.Calls())
		}
		if _, ok := f.repo.GetPortalData().WebFiles["logo.png"]; !ok {
			t.Error("products logo removed from the store")
		}
	})

	t.Run("tracking follows the folder", func(t *testing.T) {
		f := downloaded(t, testutil.NewTestRemote(), groupedOptions())

		if f.repo.Tracks(portal.WebFileType, elsewhere) {
			t.Errorf("Tracks(%s) = true", elsewhere)
		}
		if !f.repo.Tracks(portal.WebFileType, wsPath("web-files", "products", "logo.png")) {
			t.Error("Tracks() = false for the products logo")
		}
	})

	t.Run("own folder still matches", func(t *testing.T) {
		f := downloaded(t, testutil.NewTestRemote(), groupedOptions())

		path := wsPath("web-files", "Products", "logo.png")
		if err := f.repo.UpdateDocument(ctx, portal.WebFileType, path, []byte("new")); err != nil {
			t.Fatalf("UpdateDocument() error = %v", err)
		}
		if got := f.repo.GetPortalData().WebFiles["logo.png"].Content; got != testutil.Base64("new") {
			t.Errorf("Content = %q", got)
		}
	})
}
