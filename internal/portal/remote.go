package portal

import "context"

// RemoteClient is the CMS API. Every call is scoped to one portal except
// ListPortals. Create and update calls return the server's representation,
// which is the source of truth for derived fields.
type RemoteClient interface {
	ListPortals(ctx context.Context) ([]Portal, error)
	ListLanguages(ctx context.Context, portalID string) ([]Language, error)
	PublishedStateID(ctx context.Context, portalID string) (string, error)
	ListWebTemplates(ctx context.Context, portalID string) ([]*WebTemplate, error)
	ListContentSnippets(ctx context.Context, portalID string) ([]*ContentSnippet, error)
	ListWebPages(ctx context.Context, portalID string) ([]*WebPage, error)
	ListWebFiles(ctx context.Context, portalID string) ([]*WebFile, error)
	ListPageTemplates(ctx context.Context, portalID string) ([]PageTemplate, error)

	CreateWebTemplate(ctx context.Context, portalID string, t *WebTemplate) (*WebTemplate, error)
	UpdateWebTemplate(ctx context.Context, portalID string, t *WebTemplate) (*WebTemplate, error)
	DeleteWebTemplate(ctx context.Context, portalID, id string) error

	CreateContentSnippet(ctx context.Context, portalID string, s *ContentSnippet) (*ContentSnippet, error)
	UpdateContentSnippet(ctx context.Context, portalID string, s *ContentSnippet) (*ContentSnippet, error)
	DeleteContentSnippet(ctx context.Context, portalID, id string) error

	CreateWebPage(ctx context.Context, portalID string, p *WebPage) (*WebPage, error)

	UploadWebFile(ctx context.Context, portalID string, f *WebFile) (*WebFile, error)
	UpdateWebFile(ctx context.Context, portalID string, f *WebFile) (*WebFile, error)
	// DeleteWebFile removes both the file record and its storage note.
	DeleteWebFile(ctx context.Context, portalID, id, annotationID string) error
}

// Chooser asks the user to make a choice. ok is false when the user
// dismissed the prompt without answering.
type Chooser interface {
	Choose(ctx context.Context, title string, options []Option) (choice Option, ok bool, err error)
	Prompt(ctx context.Context, title string, secret bool, validate func(string) error) (value string, ok bool, err error)
}

// FolderCreator creates a directory and its parents if absent.
type FolderCreator interface {
	EnsureDir(path string) error
}

// WorkspaceLister lists every file currently present under the workspace root.
type WorkspaceLister interface {
	ListFiles() ([]string, error)
}
