package cms_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"portalsync/internal/cms"
	"portalsync/internal/portal"
	"portalsync/internal/testutil"
)

func newTestClient(url string, opts cms.HTTPOptions) *cms.HTTPClient {
	if opts.BaseDelay == 0 {
		opts.BaseDelay = time.Millisecond
	}
	return cms.NewHTTPClient(url, "secret-token", opts, testutil.NewStubIDGenerator(), portal.NewNopLogger())
}

func TestHTTPClient_ListWebTemplates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/portals/portal-1/web-templates" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret-token" {
			t.Errorf("Authorization = %q", got)
		}
		if r.Header.Get("X-Correlation-Id") == "" {
			t.Error("missing correlation id")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"value":[{"id":"t1","name":"Header","source":"<header/>"}]}`))
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL+"/", cms.HTTPOptions{}).ListWebTemplates(context.Background(), "portal-1")
	if err != nil {
		t.Fatalf("ListWebTemplates() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != "t1" || got[0].Source != "<header/>" {
		t.Errorf("ListWebTemplates() = %+v", got)
	}
}

func TestHTTPClient_RetriesThrottling(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"id":"state-published"}`))
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL, cms.HTTPOptions{MaxRetries: 2}).PublishedStateID(context.Background(), "portal-1")
	if err != nil {
		t.Fatalf("PublishedStateID() error = %v", err)
	}
	if got != "state-published" {
		t.Errorf("PublishedStateID() = %q", got)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("server called %d times, want 2", n)
	}
}

func TestHTTPClient_RetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, cms.HTTPOptions{MaxRetries: 2}).ListPortals(context.Background())
	var httpErr *cms.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("ListPortals() error = %v, want HTTP 503", err)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("server called %d times, want 3", n)
	}
}

func TestHTTPClient_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":"not_found","message":"web template t9"}`))
	}))
	defer srv.Close()

	err := newTestClient(srv.URL, cms.HTTPOptions{MaxRetries: 3}).DeleteWebTemplate(context.Background(), "portal-1", "t9")
	if !cms.IsNotFound(err) {
		t.Fatalf("DeleteWebTemplate() error = %v, want not found", err)
	}
	var httpErr *cms.HTTPError
	if errors.As(err, &httpErr) && (httpErr.Code != "not_found" || httpErr.Message != "web template t9") {
		t.Errorf("HTTPError = %+v", httpErr)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("server called %d times, want 1", n)
	}
}

func TestHTTPClient_CancelDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := newTestClient(srv.URL, cms.HTTPOptions{MaxRetries: 5, BaseDelay: time.Hour, MaxDelay: time.Hour})
	_, err := c.ListWebPages(ctx, "portal-1")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("ListWebPages() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestHTTPClient_ValidatesBeforeSending(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()
	c := newTestClient(srv.URL, cms.HTTPOptions{})

	if _, err := c.CreateWebTemplate(context.Background(), "portal-1", &portal.WebTemplate{Source: "x"}); !errors.Is(err, cms.ErrInvalidRecord) {
		t.Errorf("CreateWebTemplate() error = %v, want ErrInvalidRecord", err)
	}
	if _, err := c.CreateWebPage(context.Background(), "portal-1", &portal.WebPage{Name: "Docs", PartialURL: "docs"}); !errors.Is(err, cms.ErrInvalidRecord) {
		t.Errorf("CreateWebPage() error = %v, want ErrInvalidRecord", err)
	}
	if n := calls.Load(); n != 0 {
		t.Errorf("server called %d times, want 0", n)
	}
}

func TestHTTPClient_UploadWebFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/portals/portal-1/web-files" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		if _, ok := body["folder"]; ok {
			t.Error("local folder sent to the CMS")
		}
		if body["mimeType"] != "text/css" {
			t.Errorf("mimeType = %v", body["mimeType"])
		}
		_, _ = w.Write([]byte(`{"id":"f1","annotationId":"n1","name":"site.css","parentPageId":"page-home","content":"eA=="}`))
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL, cms.HTTPOptions{}).UploadWebFile(context.Background(), "portal-1", &portal.WebFile{
		Name: "site.css", ParentPageID: "page-home", Content: "eA==", MimeType: "text/css", Folder: "products",
	})
	if err != nil {
		t.Fatalf("UploadWebFile() error = %v", err)
	}
	if got.ID != "f1" || got.AnnotationID != "n1" {
		t.Errorf("UploadWebFile() = %+v", got)
	}
}

func TestHTTPClient_DeleteWebFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/api/portals/portal-1/web-files/f1" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if got := r.URL.Query().Get("annotationId"); got != "n1" {
			t.Errorf("annotationId = %q", got)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	if err := newTestClient(srv.URL, cms.HTTPOptions{}).DeleteWebFile(context.Background(), "portal-1", "f1", "n1"); err != nil {
		t.Errorf("DeleteWebFile() error = %v", err)
	}
}

func TestHTTPClient_CreateRetriesOnlyThrottling(t *testing.T) {
	page := &portal.WebPage{
		Name: "Docs", PartialURL: "docs", ParentID: "p-1",
		PageTemplateID: "tpl", PublishingStateID: "state",
	}
	tests := []struct {
		name      string
		first     int
		wantPosts int32
		wantErr   bool
	}{
		{"server error is not replayed", http.StatusBadGateway, 1, true},
		{"throttled create is replayed", http.StatusTooManyRequests, 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var posts atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("method = %s", r.Method)
				}
				if posts.Add(1) == 1 {
					w.Header().Set("Retry-After", "0")
					w.WriteHeader(tt.first)
					return
				}
				_, _ = w.Write([]byte(`{"id":"p-2","name":"Docs","partialUrl":"docs","parentId":"p-1"}`))
			}))
			defer srv.Close()

			got, err := newTestClient(srv.URL, cms.HTTPOptions{MaxRetries: 3}).CreateWebPage(context.Background(), "portal-1", page)
			if tt.wantErr {
				var httpErr *cms.HTTPError
				if !errors.As(err, &httpErr) || httpErr.StatusCode != tt.first {
					t.Errorf("CreateWebPage() error = %v, want HTTP %d", err, tt.first)
				}
			} else if err != nil || got.ID != "p-2" {
				t.Errorf("CreateWebPage() = %+v, %v", got, err)
			}
			if n := posts.Load(); n != tt.wantPosts {
				t.Errorf("POSTs sent = %d, want %d", n, tt.wantPosts)
			}
		})
	}
}

func TestHTTPClient_UpdateRetriesServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"id":"t1","name":"Header","source":"new"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, cms.HTTPOptions{MaxRetries: 2})
	got, err := c.UpdateWebTemplate(context.Background(), "portal-1", &portal.WebTemplate{ID: "t1", Name: "Header", Source: "new"})
	if err != nil || got.Source != "new" {
		t.Fatalf("UpdateWebTemplate() = %+v, %v", got, err)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("server called %d times, want 2", n)
	}
}
