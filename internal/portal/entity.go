package portal

import (
	"fmt"
	"strings"
)

// EntityType identifies which CMS collection a workspace file belongs to.
type EntityType int

const (
	WebTemplateType EntityType = iota
	ContentSnippetType
	WebFileType
)

func (t EntityType) String() string {
	switch t {
	case WebTemplateType:
		return "web template"
	case ContentSnippetType:
		return "content snippet"
	case WebFileType:
		return "web file"
	default:
		return "unknown"
	}
}

// ParseEntityType accepts the short names used on the command line.
func ParseEntityType(s string) (EntityType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "template", "web-template", "webtemplate":
		return WebTemplateType, nil
	case "snippet", "content-snippet", "contentsnippet":
		return ContentSnippetType, nil
	case "file", "web-file", "webfile":
		return WebFileType, nil
	default:
		return 0, fmt.Errorf("unknown entity type: %q", s)
	}
}

// Portal is a website instance hosted by the CMS.
type Portal struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Language is one entry of the portal's language table.
type Language struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// PageTemplate is offered as the default template for pages created on upload.
type PageTemplate struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type WebTemplate struct {
	ID     string `json:"id,omitempty"`
	Name   string `json:"name"`
	Source string `json:"source"`
}

// ContentSnippet names are slash-delimited, e.g. "Account/SignIn/PageCopy".
// The language is carried separately and injected into the local name.
type ContentSnippet struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name"`
	Value      string `json:"value"`
	LanguageID string `json:"languageId,omitempty"`
}

// WebPage is a node of the portal page tree. An empty ParentID marks the root.
type WebPage struct {
	ID                string `json:"id,omitempty"`
	Name              string `json:"name"`
	PartialURL        string `json:"partialUrl"`
	ParentID          string `json:"parentId,omitempty"`
	PageTemplateID    string `json:"pageTemplateId,omitempty"`
	PublishingStateID string `json:"publishingStateId,omitempty"`
}

// WebFile is the composite of a web file record and the note that stores its
// content. Content is base64 encoded. Folder is the full path of the parent
// page at the time the file was last anchored.
type WebFile struct {
	ID                string `json:"id,omitempty"`
	AnnotationID      string `json:"annotationId,omitempty"`
	Name              string `json:"name"`
	PartialURL        string `json:"partialUrl,omitempty"`
	ParentPageID      string `json:"parentPageId,omitempty"`
	PublishingStateID string `json:"publishingStateId,omitempty"`
	Content           string `json:"content"`
	MimeType          string `json:"mimeType,omitempty"`
	Folder            string `json:"folder,omitempty"`
}

// Option is one entry offered by a Chooser.
type Option struct {
	Label string
	Value string
}

// Document is an entity flattened to the name and bytes that live on disk.
type Document struct {
	Type    EntityType
	Name    string
	Content []byte
}

// Key normalizes a logical name for collection lookup.
func Key(name string) string {
	return strings.ToLower(name)
}
