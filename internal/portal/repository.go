package portal

import (
	"fmt"
	"sort"
	"strings"
)

// OriginalScheme tags the identifier of a file's last-synced counterpart.
const OriginalScheme = "portalsync-original"

// Options configures a Repository.
type Options struct {
	PortalID              string
	PortalName            string
	DefaultPageTemplateID string
	Layout                Layout
}

// Repository keeps a workspace and a CMS portal in sync. It owns the live
// PortalData: downloads replace it wholesale on success, and single-document
// operations mutate it only after the CMS acknowledged the change.
//
// A Repository is not safe for concurrent use; callers serialize operations.
type Repository struct {
	remote    RemoteClient
	chooser   Chooser
	mapper    *PathMapper
	workspace WorkspaceLister
	logger    Logger

	portalID              string
	portalName            string
	defaultPageTemplateID string

	data *PortalData

	// session caches, discarded when the portal changes
	languages        []Language
	languagesLoaded  bool
	publishedStateID string
}

// NewRepository wires a Repository. folders and workspace are usually the
// same workspace implementation.
func NewRepository(remote RemoteClient, chooser Chooser, folders FolderCreator, workspace WorkspaceLister, logger Logger, opts Options) *Repository {
	return &Repository{
		remote:                remote,
		chooser:               chooser,
		mapper:                NewPathMapper(opts.Layout, folders),
		workspace:             workspace,
		logger:                logger,
		portalID:              opts.PortalID,
		portalName:            opts.PortalName,
		defaultPageTemplateID: opts.DefaultPageTemplateID,
	}
}

func (r *Repository) Mapper() *PathMapper {
	return r.mapper
}

// PortalID returns the configured or chosen portal.
func (r *Repository) PortalID() string {
	return r.portalID
}

func (r *Repository) PortalName() string {
	return r.portalName
}

// DefaultPageTemplateID returns the configured or chosen page template used
// for pages created on upload.
func (r *Repository) DefaultPageTemplateID() string {
	return r.defaultPageTemplateID
}

// SetPortal switches the target portal. Switching to a different portal
// discards the live snapshot and session caches.
func (r *Repository) SetPortal(id, name string) {
	if id != r.portalID {
		r.data = nil
		r.languages = nil
		r.languagesLoaded = false
		r.publishedStateID = ""
	}
	r.portalID = id
	r.portalName = name
}

// GetPortalData returns the live snapshot, or an empty one.
func (r *Repository) GetPortalData() *PortalData {
	if r.data == nil {
		return NewPortalData()
	}
	return r.data
}

// Restore installs a previously persisted snapshot as the live one.
func (r *Repository) Restore(data *PortalData) error {
	if data.IsEmpty() {
		return fmt.Errorf("%w: snapshot has no portal id", ErrConfiguration)
	}
	if r.portalID != "" && data.PortalID != r.portalID {
		return fmt.Errorf("%w: snapshot belongs to portal %s, not %s", ErrConfiguration, data.PortalID, r.portalID)
	}
	if data.DefaultPageTemplateID == "" {
		data.DefaultPageTemplateID = r.defaultPageTemplateID
	}
	r.SetPortal(data.PortalID, data.PortalName)
	r.data = data
	if data.PublishedStateID != "" {
		r.publishedStateID = data.PublishedStateID
	}
	return nil
}

// liveData returns the live snapshot or a configuration error.
func (r *Repository) liveData() (*PortalData, error) {
	if r.data.IsEmpty() {
		return nil, fmt.Errorf("%w: no portal data loaded, run a download first", ErrConfiguration)
	}
	return r.data, nil
}

// LocalPath maps a logical name to its workspace path using the live
// snapshot, creating the containing folder.
func (r *Repository) LocalPath(name string, t EntityType) (string, error) {
	return r.mapper.LocalPath(name, t, r.data)
}

// ProvideOriginalResource returns the identifier of a workspace file's
// last-synced counterpart.
func (r *Repository) ProvideOriginalResource(path string) string {
	rel, err := r.mapper.WorkspaceRelative(path)
	if err != nil {
		rel = strings.TrimLeft(strings.ReplaceAll(path, "\\", "/"), "/")
	}
	return OriginalScheme + ":/" + rel
}

// ParseOriginalResource extracts the workspace-relative path from an
// identifier produced by ProvideOriginalResource.
func ParseOriginalResource(id string) (string, bool) {
	rest, ok := strings.CutPrefix(id, OriginalScheme+":/")
	if !ok || rest == "" {
		return "", false
	}
	return rest, true
}

// ProvideSourceControlledResources returns the sorted union of every entity's
// mapped path and every file present in the workspace.
func (r *Repository) ProvideSourceControlledResources() ([]string, error) {
	set := make(map[string]struct{})
	data := r.GetPortalData()

	for _, t := range data.WebTemplates {
		set[r.mapper.pathFor(t.Name, WebTemplateType, data)] = struct{}{}
	}
	for _, s := range data.ContentSnippets {
		set[r.mapper.pathFor(data.SnippetName(s), ContentSnippetType, data)] = struct{}{}
	}
	for _, f := range data.WebFiles {
		set[r.mapper.pathFor(f.Name, WebFileType, data)] = struct{}{}
	}

	files, err := r.workspace.ListFiles()
	if err != nil {
		return nil, fmt.Errorf("listing workspace files: %w", err)
	}
	for _, f := range files {
		set[f] = struct{}{}
	}

	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}
