package portal

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// maxParentPrompts bounds how often the parent page chooser is re-shown
// after being dismissed.
const maxParentPrompts = 5

// resolveParentPage finds the web page a new web file is attached to.
func (r *Repository) resolveParentPage(ctx context.Context, data *PortalData, path, fileName string) (*WebPage, error) {
	if !r.mapper.Layout().GroupFiles {
		return r.chooseParentPage(ctx, data, fileName)
	}
	return r.resolveGroupedParent(ctx, data, path)
}

// chooseParentPage asks the user to pick from every known page, fetching the
// page tree first when none is cached.
func (r *Repository) chooseParentPage(ctx context.Context, data *PortalData, fileName string) (*WebPage, error) {
	if data.WebPages.Len() == 0 {
		pages, err := r.remote.ListWebPages(ctx, data.PortalID)
		if err != nil {
			return nil, fmt.Errorf("fetching web pages: %w", err)
		}
		if len(pages) == 0 {
			return nil, fmt.Errorf("%w: portal %s has no web pages to attach %s to", ErrIntegrity, data.PortalID, fileName)
		}
		hierarchy, orphans := BuildPageHierarchy(pages)
		for _, o := range orphans {
			r.logger.Warn("web page is not reachable from the root page", "page", o.Name, "id", o.ID)
		}
		data.WebPages = hierarchy
	}

	pages := data.WebPages.Pages()
	options := make([]Option, len(pages))
	for i, p := range pages {
		full, _ := data.WebPages.FullPath(p.ID)
		options[i] = Option{Label: "/" + full, Value: p.ID}
	}

	title := fmt.Sprintf("Select the parent web page for %s", fileName)
	for attempt := 0; attempt < maxParentPrompts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		choice, ok, err := r.chooser.Choose(ctx, title, options)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if page, found := data.WebPages.ByID(choice.Value); found {
			return page, nil
		}
	}
	return nil, fmt.Errorf("no parent web page selected for %s", fileName)
}

// resolveGroupedParent maps the file's folder below the web files root to a
// page path, creating the missing tail of that path.
//
// Discovery walks the folder segments deepest first, pushing every segment
// without a page onto a stack until it reaches an existing page or the web
// files root, which stands for the root page. Creation then pops the stack so
// each page is created under a parent whose id is already known.
func (r *Repository) resolveGroupedParent(ctx context.Context, data *PortalData, path string) (*WebPage, error) {
	filesDir := r.mapper.Dir(WebFileType)
	folder := filepath.Dir(path)

	var segments []string
	if folder != filesDir {
		rel, err := relWithin(filesDir, folder)
		if err != nil {
			return nil, fmt.Errorf("web file %s is outside the web files folder %s: move it below that folder and add it again", path, filesDir)
		}
		segments = strings.Split(rel, "/")
	}

	if page, ok := data.WebPages.ByPath(strings.Join(segments, "/")); ok {
		return page, nil
	}

	var toCreate []*WebPage
	var anchor *WebPage
	for i := len(segments); i > 0; i-- {
		if page, ok := data.WebPages.ByPath(strings.Join(segments[:i], "/")); ok {
			anchor = page
			break
		}
		seg := segments[i-1]
		toCreate = append(toCreate, &WebPage{Name: seg, PartialURL: seg})
	}
	if anchor == nil {
		anchor = data.WebPages.Root()
		if anchor == nil {
			return nil, fmt.Errorf("%w: portal %s has no root web page", ErrIntegrity, data.PortalID)
		}
	}
	if len(toCreate) == 0 {
		return anchor, nil
	}

	templateID := data.DefaultPageTemplateID
	if templateID == "" {
		templateID = r.defaultPageTemplateID
	}
	if templateID == "" {
		return nil, fmt.Errorf("%w: no default page template configured for new web pages", ErrConfiguration)
	}
	if data.PublishedStateID == "" {
		token, err := r.publishedState(ctx, data.PortalID)
		if err != nil {
			return nil, fmt.Errorf("fetching published state: %w", err)
		}
		data.PublishedStateID = token
	}

	parent := anchor
	for len(toCreate) > 0 {
		page := toCreate[len(toCreate)-1]
		toCreate = toCreate[:len(toCreate)-1]

		page.ParentID = parent.ID
		page.PageTemplateID = templateID
		page.PublishingStateID = data.PublishedStateID

		created, err := r.remote.CreateWebPage(ctx, data.PortalID, page)
		if err != nil {
			return nil, fmt.Errorf("creating web page %s: %w", page.Name, err)
		}
		if created == nil {
			return nil, fmt.Errorf("%w: no web page returned for %s", ErrIntegrity, page.Name)
		}
		if created.ParentID == "" {
			created.ParentID = parent.ID
		}
		if created.PartialURL == "" {
			created.PartialURL = page.PartialURL
		}
		if err := data.WebPages.Insert(created); err != nil {
			return nil, err
		}
		full, _ := data.WebPages.FullPath(created.ID)
		r.logger.Info("web page created", "name", created.Name, "id", created.ID, "path", full)
		parent = created
	}
	return parent, nil
}
