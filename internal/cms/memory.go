package cms

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"portalsync/internal/portal"
)

// MemoryClient is an in-memory CMS. It validates records like the HTTP API,
// records every call, and can be told to fail specific methods. It is used
// by tests and by the "memory" remote type for dry runs.
type MemoryClient struct {
	mu       sync.Mutex
	ids      portal.IDGenerator
	portals  []portal.Portal
	sites    map[string]*memorySite
	calls    []string
	failures map[string]error
	onCall   func(method string)
}

type memorySite struct {
	languages        []portal.Language
	publishedStateID string
	pageTemplates    []portal.PageTemplate
	templates        map[string]*portal.WebTemplate
	snippets         map[string]*portal.ContentSnippet
	pages            map[string]*portal.WebPage
	files            map[string]*portal.WebFile
}

func NewMemoryClient(ids portal.IDGenerator) *MemoryClient {
	return &MemoryClient{
		ids:      ids,
		sites:    make(map[string]*memorySite),
		failures: make(map[string]error),
	}
}

var _ portal.RemoteClient = (*MemoryClient)(nil)

// Seeding

// AddPortal registers a portal with the given published-state token.
func (c *MemoryClient) AddPortal(p portal.Portal, publishedStateID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.portals = append(c.portals, p)
	c.sites[p.ID] = &memorySite{
		publishedStateID: publishedStateID,
		templates:        make(map[string]*portal.WebTemplate),
		snippets:         make(map[string]*portal.ContentSnippet),
		pages:            make(map[string]*portal.WebPage),
		files:            make(map[string]*portal.WebFile),
	}
}

func (c *MemoryClient) AddLanguage(portalID string, l portal.Language) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sites[portalID].languages = append(c.sites[portalID].languages, l)
}

func (c *MemoryClient) AddPageTemplate(portalID string, t portal.PageTemplate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sites[portalID].pageTemplates = append(c.sites[portalID].pageTemplates, t)
}

func (c *MemoryClient) AddWebTemplate(portalID string, t portal.WebTemplate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.ID == "" {
		t.ID = c.ids.New()
	}
	c.sites[portalID].templates[t.ID] = &t
}

func (c *MemoryClient) AddContentSnippet(portalID string, s portal.ContentSnippet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s.ID == "" {
		s.ID = c.ids.New()
	}
	c.sites[portalID].snippets[s.ID] = &s
}

func (c *MemoryClient) AddWebPage(portalID string, p portal.WebPage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p.ID == "" {
		p.ID = c.ids.New()
	}
	c.sites[portalID].pages[p.ID] = &p
}

func (c *MemoryClient) AddWebFile(portalID string, f portal.WebFile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f.ID == "" {
		f.ID = c.ids.New()
	}
	if f.AnnotationID == "" {
		f.AnnotationID = c.ids.New()
	}
	f.Folder = ""
	c.sites[portalID].files[f.ID] = &f
}

// Inspection and failure injection

// FailOn makes every later call to method return err.
func (c *MemoryClient) FailOn(method string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[method] = err
}

func (c *MemoryClient) ClearFailures() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = make(map[string]error)
}

// OnCall registers a hook run at the start of every call, before failures
// are injected.
func (c *MemoryClient) OnCall(fn func(method string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onCall = fn
}

// Calls returns the method names called so far, in order.
func (c *MemoryClient) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func (c *MemoryClient) CallCount(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, m := range c.calls {
		if m == method {
			n++
		}
	}
	return n
}

// WebPages returns the portal's pages, for assertions.
func (c *MemoryClient) WebPages(portalID string) []portal.WebPage {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []portal.WebPage
	for _, p := range c.sites[portalID].pages {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// WebFileCount returns how many web files the portal holds.
func (c *MemoryClient) WebFileCount(portalID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sites[portalID].files)
}

// enter records the call and returns the site or an injected failure.
// The hook runs without the lock held.
func (c *MemoryClient) enter(method, portalID string) (*memorySite, error) {
	c.mu.Lock()
	c.calls = append(c.calls, method)
	hook := c.onCall
	c.mu.Unlock()

	if hook != nil {
		hook(method)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.failures[method]; err != nil {
		return nil, err
	}
	if portalID == "" {
		return nil, nil
	}
	site, ok := c.sites[portalID]
	if !ok {
		return nil, &HTTPError{StatusCode: http.StatusNotFound, Code: "portal_not_found", Message: fmt.Sprintf("portal %s", portalID)}
	}
	return site, nil
}

func notFound(kind, id string) error {
	return &HTTPError{StatusCode: http.StatusNotFound, Code: "not_found", Message: fmt.Sprintf("%s %s", kind, id)}
}

// Queries

func (c *MemoryClient) ListPortals(ctx context.Context) ([]portal.Portal, error) {
	if _, err := c.enter("ListPortals", ""); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]portal.Portal(nil), c.portals...), nil
}

func (c *MemoryClient) ListLanguages(ctx context.Context, portalID string) ([]portal.Language, error) {
	site, err := c.enter("ListLanguages", portalID)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]portal.Language(nil), site.languages...), nil
}

func (c *MemoryClient) PublishedStateID(ctx context.Context, portalID string) (string, error) {
	site, err := c.enter("PublishedStateID", portalID)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return site.publishedStateID, nil
}

func (c *MemoryClient) ListPageTemplates(ctx context.Context, portalID string) ([]portal.PageTemplate, error) {
	site, err := c.enter("ListPageTemplates", portalID)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]portal.PageTemplate(nil), site.pageTemplates...), nil
}

func (c *MemoryClient) ListWebTemplates(ctx context.Context, portalID string) ([]*portal.WebTemplate, error) {
	site, err := c.enter("ListWebTemplates", portalID)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyValues(site.templates), nil
}

func (c *MemoryClient) ListContentSnippets(ctx context.Context, portalID string) ([]*portal.ContentSnippet, error) {
	site, err := c.enter("ListContentSnippets", portalID)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyValues(site.snippets), nil
}

func (c *MemoryClient) ListWebPages(ctx context.Context, portalID string) ([]*portal.WebPage, error) {
	site, err := c.enter("ListWebPages", portalID)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyValues(site.pages), nil
}

func (c *MemoryClient) ListWebFiles(ctx context.Context, portalID string) ([]*portal.WebFile, error) {
	site, err := c.enter("ListWebFiles", portalID)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyValues(site.files), nil
}

// copyValues returns copies of the map's values ordered by id.
func copyValues[T any](m map[string]*T) []*T {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*T, len(ids))
	for i, id := range ids {
		v := *m[id]
		out[i] = &v
	}
	return out
}

// Mutations

func (c *MemoryClient) CreateWebTemplate(ctx context.Context, portalID string, t *portal.WebTemplate) (*portal.WebTemplate, error) {
	site, err := c.enter("CreateWebTemplate", portalID)
	if err != nil {
		return nil, err
	}
	if err := ValidateRecord(KindWebTemplate, t); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	stored := *t
	stored.ID = c.ids.New()
	site.templates[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (c *MemoryClient) UpdateWebTemplate(ctx context.Context, portalID string, t *portal.WebTemplate) (*portal.WebTemplate, error) {
	site, err := c.enter("UpdateWebTemplate", portalID)
	if err != nil {
		return nil, err
	}
	if err := ValidateRecord(KindWebTemplate, t); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := site.templates[t.ID]; !ok {
		return nil, notFound("web template", t.ID)
	}
	stored := *t
	site.templates[t.ID] = &stored
	out := stored
	return &out, nil
}

func (c *MemoryClient) DeleteWebTemplate(ctx context.Context, portalID, id string) error {
	site, err := c.enter("DeleteWebTemplate", portalID)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := site.templates[id]; !ok {
		return notFound("web template", id)
	}
	delete(site.templates, id)
	return nil
}

func (c *MemoryClient) CreateContentSnippet(ctx context.Context, portalID string, s *portal.ContentSnippet) (*portal.ContentSnippet, error) {
	site, err := c.enter("CreateContentSnippet", portalID)
	if err != nil {
		return nil, err
	}
	if err := ValidateRecord(KindContentSnippet, s); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	stored := *s
	stored.ID = c.ids.New()
	site.snippets[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (c *MemoryClient) UpdateContentSnippet(ctx context.Context, portalID string, s *portal.ContentSnippet) (*portal.ContentSnippet, error) {
	site, err := c.enter("UpdateContentSnippet", portalID)
	if err != nil {
		return nil, err
	}
	if err := ValidateRecord(KindContentSnippet, s); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := site.snippets[s.ID]; !ok {
		return nil, notFound("content snippet", s.ID)
	}
	stored := *s
	site.snippets[s.ID] = &stored
	out := stored
	return &out, nil
}

func (c *MemoryClient) DeleteContentSnippet(ctx context.Context, portalID, id string) error {
	site, err := c.enter("DeleteContentSnippet", portalID)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := site.snippets[id]; !ok {
		return notFound("content snippet", id)
	}
	delete(site.snippets, id)
	return nil
}

func (c *MemoryClient) CreateWebPage(ctx context.Context, portalID string, p *portal.WebPage) (*portal.WebPage, error) {
	site, err := c.enter("CreateWebPage", portalID)
	if err != nil {
		return nil, err
	}
	if err := ValidateRecord(KindWebPage, p); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := site.pages[p.ParentID]; !ok {
		return nil, notFound("parent web page", p.ParentID)
	}
	stored := *p
	stored.ID = c.ids.New()
	site.pages[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (c *MemoryClient) UploadWebFile(ctx context.Context, portalID string, f *portal.WebFile) (*portal.WebFile, error) {
	site, err := c.enter("UploadWebFile", portalID)
	if err != nil {
		return nil, err
	}
	if err := ValidateRecord(KindWebFile, f); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := site.pages[f.ParentPageID]; !ok {
		return nil, notFound("parent web page", f.ParentPageID)
	}
	stored := *f
	stored.ID = c.ids.New()
	stored.AnnotationID = c.ids.New()
	stored.Folder = ""
	site.files[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (c *MemoryClient) UpdateWebFile(ctx context.Context, portalID string, f *portal.WebFile) (*portal.WebFile, error) {
	site, err := c.enter("UpdateWebFile", portalID)
	if err != nil {
		return nil, err
	}
	if err := ValidateRecord(KindWebFile, f); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := site.files[f.ID]; !ok {
		return nil, notFound("web file", f.ID)
	}
	stored := *f
	stored.Folder = ""
	site.files[f.ID] = &stored
	out := stored
	return &out, nil
}

func (c *MemoryClient) DeleteWebFile(ctx context.Context, portalID, id, annotationID string) error {
	site, err := c.enter("DeleteWebFile", portalID)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := site.files[id]
	if !ok || f.AnnotationID != annotationID {
		return notFound("web file", id)
	}
	delete(site.files, id)
	return nil
}
