package portal

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
)

// AddDocument creates the entity for a new workspace file in the CMS and
// records the server's representation in the live snapshot.
func (r *Repository) AddDocument(ctx context.Context, t EntityType, path string, content []byte) error {
	data, err := r.liveData()
	if err != nil {
		return err
	}
	name, err := r.mapper.LogicalName(path, t)
	if err != nil {
		return err
	}

	switch t {
	case WebTemplateType:
		created, err := r.remote.CreateWebTemplate(ctx, data.PortalID, &WebTemplate{Name: name, Source: string(content)})
		if err != nil {
			return err
		}
		if created == nil {
			return fmt.Errorf("%w: no web template returned for %s", ErrIntegrity, name)
		}
		data.putTemplate(created)
		r.logger.Info("web template created", "name", created.Name, "id", created.ID)
		return nil

	case ContentSnippetType:
		serverName, code, ok := splitLanguage(name)
		if !ok {
			return fmt.Errorf("%w: snippet %s needs a language folder, e.g. Folder/%s/Name", ErrConfiguration, path, DefaultLanguageCode)
		}
		languageID, err := resolveLanguageID(data, code)
		if err != nil {
			return err
		}
		created, err := r.remote.CreateContentSnippet(ctx, data.PortalID, &ContentSnippet{
			Name:       serverName,
			Value:      string(content),
			LanguageID: languageID,
		})
		if err != nil {
			return err
		}
		if created == nil {
			return fmt.Errorf("%w: no content snippet returned for %s", ErrIntegrity, name)
		}
		data.putSnippet(created)
		r.logger.Info("content snippet created", "name", data.SnippetName(created), "id", created.ID)
		return nil

	case WebFileType:
		return r.addWebFile(ctx, data, path, name, content)

	default:
		return fmt.Errorf("unsupported entity type: %v", t)
	}
}

func resolveLanguageID(data *PortalData, code string) (string, error) {
	if lang, ok := data.LanguageByCode(code); ok {
		return lang.ID, nil
	}
	// portals without a language table accept snippets in the default language
	if len(data.Languages) == 0 && strings.EqualFold(code, DefaultLanguageCode) {
		return "", nil
	}
	return "", fmt.Errorf("%w: portal %s has no language %q", ErrConfiguration, data.PortalID, code)
}

func (r *Repository) addWebFile(ctx context.Context, data *PortalData, path, fileName string, content []byte) error {
	if existing, ok := data.WebFiles[Key(fileName)]; ok {
		if other := r.mapper.pathFor(existing.Name, WebFileType, data); !samePath(other, path) {
			return fmt.Errorf("%w: web file %s would collide with %s, file names must be unique across folders", ErrConfiguration, path, other)
		}
	}
	if data.PublishedStateID == "" {
		token, err := r.publishedState(ctx, data.PortalID)
		if err != nil {
			return fmt.Errorf("fetching published state: %w", err)
		}
		data.PublishedStateID = token
	}

	parent, err := r.resolveParentPage(ctx, data, path, fileName)
	if err != nil {
		return err
	}

	uploaded, err := r.remote.UploadWebFile(ctx, data.PortalID, &WebFile{
		Name:              fileName,
		PartialURL:        fileName,
		ParentPageID:      parent.ID,
		PublishingStateID: data.PublishedStateID,
		Content:           base64.StdEncoding.EncodeToString(content),
		MimeType:          detectContentType(fileName),
	})
	if err != nil {
		return err
	}
	if uploaded == nil {
		return fmt.Errorf("%w: no web file returned for %s", ErrIntegrity, fileName)
	}
	if uploaded.ParentPageID == "" {
		uploaded.ParentPageID = parent.ID
	}
	data.anchorFile(uploaded)
	data.putFile(uploaded)
	r.logger.Info("web file uploaded", "name", uploaded.Name, "id", uploaded.ID, "folder", uploaded.Folder)
	return nil
}

// UpdateDocument sends new content for an existing entity. The live snapshot
// is updated with the server's representation only on success.
func (r *Repository) UpdateDocument(ctx context.Context, t EntityType, path string, content []byte) error {
	data, err := r.liveData()
	if err != nil {
		return err
	}
	name, err := r.mapper.LogicalName(path, t)
	if err != nil {
		return err
	}
	key := Key(name)

	switch t {
	case WebTemplateType:
		existing, ok := data.WebTemplates[key]
		if !ok {
			return &NotFoundError{Path: path, Type: t}
		}
		next := *existing
		next.Source = string(content)
		updated, err := r.remote.UpdateWebTemplate(ctx, data.PortalID, &next)
		if err != nil {
			return err
		}
		if updated == nil {
			return fmt.Errorf("%w: no update confirmation for web template %s", ErrIntegrity, name)
		}
		data.WebTemplates[key] = updated

	case ContentSnippetType:
		existing, ok := data.ContentSnippets[key]
		if !ok {
			return &NotFoundError{Path: path, Type: t}
		}
		next := *existing
		next.Value = string(content)
		updated, err := r.remote.UpdateContentSnippet(ctx, data.PortalID, &next)
		if err != nil {
			return err
		}
		if updated == nil {
			return fmt.Errorf("%w: no update confirmation for content snippet %s", ErrIntegrity, name)
		}
		data.ContentSnippets[key] = updated

	case WebFileType:
		existing, ok := r.fileAt(data, key, path)
		if !ok {
			return &NotFoundError{Path: path, Type: t}
		}
		next := *existing
		next.Content = base64.StdEncoding.EncodeToString(content)
		updated, err := r.remote.UpdateWebFile(ctx, data.PortalID, &next)
		if err != nil {
			return err
		}
		if updated == nil {
			return fmt.Errorf("%w: no update confirmation for web file %s", ErrIntegrity, name)
		}
		if updated.ParentPageID == "" {
			updated.ParentPageID = existing.ParentPageID
		}
		data.anchorFile(updated)
		if updated.Folder == "" {
			updated.Folder = existing.Folder
		}
		data.WebFiles[key] = updated

	default:
		return fmt.Errorf("unsupported entity type: %v", t)
	}

	r.logger.Info("document updated", "type", t.String(), "name", name)
	return nil
}

// DeleteDocument removes an entity from the CMS and the live snapshot.
//
// Templates and snippets are removed locally only after the remote delete
// succeeded. Web files are removed locally even when the remote delete
// fails, since the workspace file is already gone.
func (r *Repository) DeleteDocument(ctx context.Context, t EntityType, path string) error {
	data, err := r.liveData()
	if err != nil {
		return err
	}
	name, err := r.mapper.LogicalName(path, t)
	if err != nil {
		return err
	}
	key := Key(name)

	switch t {
	case WebTemplateType:
		existing, ok := data.WebTemplates[key]
		if !ok {
			return &NotFoundError{Path: path, Type: t}
		}
		if err := r.remote.DeleteWebTemplate(ctx, data.PortalID, existing.ID); err != nil {
			return err
		}
		delete(data.WebTemplates, key)

	case ContentSnippetType:
		existing, ok := data.ContentSnippets[key]
		if !ok {
			return &NotFoundError{Path: path, Type: t}
		}
		if err := r.remote.DeleteContentSnippet(ctx, data.PortalID, existing.ID); err != nil {
			return err
		}
		delete(data.ContentSnippets, key)

	case WebFileType:
		existing, ok := r.fileAt(data, key, path)
		if !ok {
			return &NotFoundError{Path: path, Type: t}
		}
		if existing.ID == "" || existing.AnnotationID == "" {
			return fmt.Errorf("%w: web file %s is missing its record or note id", ErrConfiguration, name)
		}
		if err := r.remote.DeleteWebFile(ctx, data.PortalID, existing.ID, existing.AnnotationID); err != nil {
			r.logger.Error("remote web file delete failed, removing local entry anyway", "name", name, "id", existing.ID, "error", err)
		}
		delete(data.WebFiles, key)

	default:
		return fmt.Errorf("unsupported entity type: %v", t)
	}

	r.logger.Info("document deleted", "type", t.String(), "name", name)
	return nil
}

// Tracks reports whether path maps to an entity of the live snapshot.
func (r *Repository) Tracks(t EntityType, path string) bool {
	if r.data.IsEmpty() {
		return false
	}
	name, err := r.mapper.LogicalName(path, t)
	if err != nil {
		return false
	}
	key := Key(name)
	switch t {
	case WebTemplateType:
		_, ok := r.data.WebTemplates[key]
		return ok
	case ContentSnippetType:
		_, ok := r.data.ContentSnippets[key]
		return ok
	case WebFileType:
		_, ok := r.fileAt(r.data, key, path)
		return ok
	}
	return false
}

// fileAt returns the stored web file under key only when it maps back to
// path. Grouped files with the same name in another folder do not match.
func (r *Repository) fileAt(data *PortalData, key, path string) (*WebFile, bool) {
	f, ok := data.WebFiles[key]
	if !ok || !samePath(r.mapper.pathFor(f.Name, WebFileType, data), path) {
		return nil, false
	}
	return f, true
}

func samePath(a, b string) bool {
	return strings.EqualFold(filepath.Clean(a), filepath.Clean(b))
}

func detectContentType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	m := mime.TypeByExtension(ext)
	if m == "" {
		return "application/octet-stream"
	}
	if idx := strings.Index(m, ";"); idx >= 0 {
		m = m[:idx]
	}
	return m
}
