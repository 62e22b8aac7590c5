package portal

import (
	"context"
	"fmt"
)

// Download fetches a full snapshot of the portal and installs it as the live
// snapshot.
//
// ctx is polled before every remote call. A call already in flight runs to
// completion, after which a cancelled download returns the partial snapshot
// with a nil error and leaves the live snapshot untouched. A remote failure
// returns an empty snapshot and the error. When the user declines to pick a
// portal or a default page template, an empty snapshot is returned with a
// nil error.
func (r *Repository) Download(ctx context.Context, silent bool) (*PortalData, error) {
	// in-flight calls must not be interrupted by cancellation
	call := context.WithoutCancel(ctx)
	snap := NewPortalData()

	if ctx.Err() != nil {
		return snap, nil
	}
	portal, ok, err := r.resolvePortal(call)
	if err != nil {
		return NewPortalData(), fmt.Errorf("resolving portal: %w", err)
	}
	if !ok {
		r.logger.Info("no portal selected, nothing to download")
		return NewPortalData(), nil
	}
	snap.PortalID = portal.ID
	snap.PortalName = portal.Name
	progress(r.logger, silent, "download started", "portal", portal.ID)

	if ctx.Err() != nil {
		return snap, nil
	}
	langs, err := r.loadLanguages(call, portal.ID)
	if err != nil {
		return NewPortalData(), fmt.Errorf("fetching languages: %w", err)
	}
	if len(langs) == 0 {
		r.logger.Warn("portal has no languages, assuming default", "portal", portal.ID, "language", DefaultLanguageCode)
	}
	snap.SetLanguages(langs)

	if ctx.Err() != nil {
		return snap, nil
	}
	token, err := r.publishedState(call, portal.ID)
	if err != nil {
		return NewPortalData(), fmt.Errorf("fetching published state: %w", err)
	}
	snap.PublishedStateID = token

	if ctx.Err() != nil {
		return snap, nil
	}
	templates, err := r.remote.ListWebTemplates(call, portal.ID)
	if err != nil {
		return NewPortalData(), fmt.Errorf("fetching web templates: %w", err)
	}
	for _, t := range templates {
		snap.putTemplate(t)
	}
	progress(r.logger, silent, "fetched web templates", "count", len(templates))

	if ctx.Err() != nil {
		return snap, nil
	}
	snippets, err := r.remote.ListContentSnippets(call, portal.ID)
	if err != nil {
		return NewPortalData(), fmt.Errorf("fetching content snippets: %w", err)
	}
	for _, s := range snippets {
		if s.LanguageID != "" {
			if _, ok := snap.languageCode(s.LanguageID); !ok {
				r.logger.Warn("content snippet language is not in the portal's language table, using default",
					"snippet", s.Name, "id", s.ID, "language_id", s.LanguageID, "language", DefaultLanguageCode)
			}
		}
		if prev, ok := snap.ContentSnippets[Key(snap.SnippetName(s))]; ok {
			r.logger.Warn("content snippets share a local name, keeping the later one",
				"name", snap.SnippetName(s), "id", s.ID, "replaced", prev.ID)
		}
		snap.putSnippet(s)
	}
	progress(r.logger, silent, "fetched content snippets", "count", len(snippets))

	if ctx.Err() != nil {
		return snap, nil
	}
	pages, err := r.remote.ListWebPages(call, portal.ID)
	if err != nil {
		return NewPortalData(), fmt.Errorf("fetching web pages: %w", err)
	}
	hierarchy, orphans := BuildPageHierarchy(pages)
	for _, o := range orphans {
		r.logger.Warn("web page is not reachable from the root page", "page", o.Name, "id", o.ID, "parent", o.ParentID)
	}
	snap.WebPages = hierarchy
	progress(r.logger, silent, "fetched web pages", "count", hierarchy.Len())

	templateID := r.defaultPageTemplateID
	if r.mapper.Layout().GroupFiles && templateID == "" {
		if ctx.Err() != nil {
			return snap, nil
		}
		id, ok, err := r.chooseDefaultPageTemplate(call, portal.ID)
		if err != nil {
			return NewPortalData(), fmt.Errorf("choosing default page template: %w", err)
		}
		if !ok {
			r.logger.Info("no default page template selected, nothing to download")
			return NewPortalData(), nil
		}
		templateID = id
	}
	snap.DefaultPageTemplateID = templateID

	if ctx.Err() != nil {
		return snap, nil
	}
	files, err := r.remote.ListWebFiles(call, portal.ID)
	if err != nil {
		return NewPortalData(), fmt.Errorf("fetching web files: %w", err)
	}
	for _, f := range files {
		snap.anchorFile(f)
		snap.putFile(f)
	}
	progress(r.logger, silent, "fetched web files", "count", len(files))

	if ctx.Err() != nil {
		return snap, nil
	}
	r.data = snap
	r.defaultPageTemplateID = templateID
	progress(r.logger, silent, "download finished", "portal", portal.ID)
	return snap, nil
}

// resolvePortal uses the configured portal, or asks the user to pick one.
func (r *Repository) resolvePortal(ctx context.Context) (Portal, bool, error) {
	if r.portalID != "" {
		return Portal{ID: r.portalID, Name: r.portalName}, true, nil
	}

	portals, err := r.remote.ListPortals(ctx)
	if err != nil {
		return Portal{}, false, err
	}
	if len(portals) == 0 {
		r.logger.Warn("no portals available")
		return Portal{}, false, nil
	}

	options := make([]Option, len(portals))
	for i, p := range portals {
		options[i] = Option{Label: p.Name, Value: p.ID}
	}
	choice, ok, err := r.chooser.Choose(ctx, "Select a portal", options)
	if err != nil || !ok {
		return Portal{}, false, err
	}
	for _, p := range portals {
		if p.ID == choice.Value {
			r.SetPortal(p.ID, p.Name)
			return p, true, nil
		}
	}
	return Portal{}, false, nil
}

func (r *Repository) loadLanguages(ctx context.Context, portalID string) ([]Language, error) {
	if r.languagesLoaded {
		return r.languages, nil
	}
	langs, err := r.remote.ListLanguages(ctx, portalID)
	if err != nil {
		return nil, err
	}
	r.languages = langs
	r.languagesLoaded = true
	return langs, nil
}

// publishedState returns the session's published-state token, fetching it
// on first use.
func (r *Repository) publishedState(ctx context.Context, portalID string) (string, error) {
	if r.publishedStateID != "" {
		return r.publishedStateID, nil
	}
	token, err := r.remote.PublishedStateID(ctx, portalID)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", fmt.Errorf("%w: portal %s has no published state", ErrConfiguration, portalID)
	}
	r.publishedStateID = token
	return token, nil
}

func (r *Repository) chooseDefaultPageTemplate(ctx context.Context, portalID string) (string, bool, error) {
	templates, err := r.remote.ListPageTemplates(ctx, portalID)
	if err != nil {
		return "", false, err
	}
	if len(templates) == 0 {
		return "", false, fmt.Errorf("%w: portal %s has no page templates", ErrIntegrity, portalID)
	}
	options := make([]Option, len(templates))
	for i, t := range templates {
		options[i] = Option{Label: t.Name, Value: t.ID}
	}
	choice, ok, err := r.chooser.Choose(ctx, "Select the page template for new web pages", options)
	if err != nil || !ok {
		return "", false, err
	}
	return choice.Value, true, nil
}
