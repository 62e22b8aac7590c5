package portal_test

import (
	"errors"
	"testing"

	"portalsync/internal/portal"
	"portalsync/internal/testutil"
)

func TestProvideOriginalResource(t *testing.T) {
	f := newRepo(testutil.NewTestRemote(), portal.Options{})

	id := f.repo.ProvideOriginalResource(wsPath("web-templates", "Header.html"))
	if id != "portalsync-original:/web-templates/Header.html" {
		t.Errorf("ProvideOriginalResource() = %q", id)
	}
	if again := f.repo.ProvideOriginalResource(wsPath("web-templates", "Header.html")); again != id {
		t.Errorf("ProvideOriginalResource() is not stable: %q", again)
	}

	rel, ok := portal.ParseOriginalResource(id)
	if !ok || rel != "web-templates/Header.html" {
		t.Errorf("ParseOriginalResource() = %q, %v", rel, ok)
	}
	for _, bad := range []string{"", "file:/web-templates/Header.html", "portalsync-original:/"} {
		if _, ok := portal.ParseOriginalResource(bad); ok {
			t.Errorf("ParseOriginalResource(%q) accepted", bad)
		}
	}
}

func TestProvideSourceControlledResources(t *testing.T) {
	f := downloaded(t, testutil.NewTestRemote(), portal.Options{})
	f.ws.AddFile(wsPath("web-files", "new.txt"), "draft")
	f.ws.AddFile(wsPath("web-templates", "Header.html"), testutil.HeaderSource)

	got, err := f.repo.ProvideSourceControlledResources()
	if err != nil {
		t.Fatalf("ProvideSourceControlledResources() error = %v", err)
	}

	want := []string{
		wsPath("content-snippets", "Footer", "de-de", "Text.html"),
		wsPath("content-snippets", "Footer", "en-us", "Text.html"),
		wsPath("web-files", "logo.png"),
		wsPath("web-files", "new.txt"),
		wsPath("web-files", "site.css"),
		wsPath("web-templates", "Header.html"),
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRestore(t *testing.T) {
	source := downloaded(t, testutil.NewTestRemote(), groupedOptions())
	data := source.repo.GetPortalData()

	t.Run("installs snapshot", func(t *testing.T) {
		f := newRepo(testutil.NewTestRemote(), portal.Options{})
		if err := f.repo.Restore(data); err != nil {
			t.Fatalf("Restore() error = %v", err)
		}
		if f.repo.GetPortalData() != data || f.repo.PortalID() != testutil.PortalID {
			t.Error("snapshot not installed")
		}
	})

	t.Run("rejects empty snapshot", func(t *testing.T) {
		f := newRepo(testutil.NewTestRemote(), portal.Options{})
		if err := f.repo.Restore(portal.NewPortalData()); !errors.Is(err, portal.ErrConfiguration) {
			t.Errorf("Restore() error = %v, want ErrConfiguration", err)
		}
	})

	t.Run("rejects other portal", func(t *testing.T) {
		f := newRepo(testutil.NewTestRemote(), portal.Options{PortalID: testutil.OtherPortalID})
		if err := f.repo.Restore(data); !errors.Is(err, portal.ErrConfiguration) {
			t.Errorf("Restore() error = %v, want ErrConfiguration", err)
		}
	})
}

func TestSetPortal_SwitchDiscardsSnapshot(t *testing.T) {
	f := downloaded(t, testutil.NewTestRemote(), portal.Options{})

	f.repo.SetPortal(testutil.PortalID, "Renamed")
	if f.repo.GetPortalData().IsEmpty() {
		t.Fatal("same portal discarded the snapshot")
	}

	f.repo.SetPortal(testutil.OtherPortalID, testutil.OtherPortalName)
	if !f.repo.GetPortalData().IsEmpty() {
		t.Error("switching portals kept the snapshot")
	}
}
