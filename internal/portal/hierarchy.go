package portal

import (
	"fmt"
	"sort"
	"strings"
)

// PageHierarchy indexes the portal page tree by id and by full path.
// The full path of a page is the partial URLs of its non-root ancestors and
// itself joined with "/"; the root's full path is "".
//
// A page can only be inserted once its parent is present, so every indexed
// page is reachable from the root.
type PageHierarchy struct {
	root   *WebPage
	byID   map[string]*WebPage
	byPath map[string]*WebPage // lower-cased full path
	paths  map[string]string   // id -> full path, original case
}

func NewPageHierarchy() *PageHierarchy {
	return &PageHierarchy{
		byID:   make(map[string]*WebPage),
		byPath: make(map[string]*WebPage),
		paths:  make(map[string]string),
	}
}

// BuildPageHierarchy inserts pages parents-first regardless of input order.
// Pages that cannot be anchored (missing parent, second root) are returned
// as orphans rather than failing the whole tree.
func BuildPageHierarchy(pages []*WebPage) (*PageHierarchy, []*WebPage) {
	h := NewPageHierarchy()
	pending := append([]*WebPage(nil), pages...)

	for len(pending) > 0 {
		var next []*WebPage
		for _, p := range pending {
			if !h.canInsert(p) {
				next = append(next, p)
				continue
			}
			if err := h.Insert(p); err != nil {
				next = append(next, p)
			}
		}
		if len(next) == len(pending) {
			return h, next
		}
		pending = next
	}
	return h, nil
}

func (h *PageHierarchy) canInsert(p *WebPage) bool {
	if p.ParentID == "" {
		return h.root == nil
	}
	_, ok := h.byID[p.ParentID]
	return ok
}

// Insert adds a page whose parent is already present.
func (h *PageHierarchy) Insert(p *WebPage) error {
	if p == nil || p.ID == "" {
		return fmt.Errorf("%w: web page has no id", ErrIntegrity)
	}

	var full string
	if p.ParentID == "" {
		if h.root != nil && h.root.ID != p.ID {
			return fmt.Errorf("%w: portal already has root page %s", ErrIntegrity, h.root.ID)
		}
		h.root = p
	} else {
		parentPath, ok := h.paths[p.ParentID]
		if !ok {
			return fmt.Errorf("%w: parent %s of web page %s is not known", ErrIntegrity, p.ParentID, p.Name)
		}
		full = joinPagePath(parentPath, p.PartialURL)
	}

	h.byID[p.ID] = p
	h.paths[p.ID] = full
	if _, taken := h.byPath[Key(full)]; !taken {
		h.byPath[Key(full)] = p
	}
	return nil
}

func joinPagePath(parent, partialURL string) string {
	seg := strings.Trim(partialURL, "/")
	if parent == "" {
		return seg
	}
	if seg == "" {
		return parent
	}
	return parent + "/" + seg
}

// Root returns the page with no parent, or nil.
func (h *PageHierarchy) Root() *WebPage {
	return h.root
}

func (h *PageHierarchy) ByID(id string) (*WebPage, bool) {
	p, ok := h.byID[id]
	return p, ok
}

// ByPath looks a page up by full path, case-insensitively.
func (h *PageHierarchy) ByPath(fullPath string) (*WebPage, bool) {
	p, ok := h.byPath[Key(strings.Trim(fullPath, "/"))]
	return p, ok
}

func (h *PageHierarchy) FullPath(id string) (string, bool) {
	p, ok := h.paths[id]
	return p, ok
}

func (h *PageHierarchy) Len() int {
	return len(h.byID)
}

// Pages returns every page ordered by full path.
func (h *PageHierarchy) Pages() []*WebPage {
	pages := make([]*WebPage, 0, len(h.byID))
	for _, p := range h.byID {
		pages = append(pages, p)
	}
	sort.Slice(pages, func(i, j int) bool {
		pi, pj := h.paths[pages[i].ID], h.paths[pages[j].ID]
		if pi == pj {
			return pages[i].ID < pages[j].ID
		}
		return pi < pj
	})
	return pages
}
