package portal

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// DefaultLanguageCode is assumed when the portal has no language table or a
// snippet's language cannot be resolved.
const DefaultLanguageCode = "en-us"

// PortalData is the in-memory mirror of one portal. Collections are keyed by
// the lower-cased logical name; snippet keys carry the language segment.
type PortalData struct {
	PortalID              string
	PortalName            string
	PublishedStateID      string
	DefaultPageTemplateID string

	Languages       map[string]Language // keyed by lower-cased code
	WebTemplates    map[string]*WebTemplate
	ContentSnippets map[string]*ContentSnippet
	WebFiles        map[string]*WebFile
	WebPages        *PageHierarchy
}

// NewPortalData returns an empty snapshot.
func NewPortalData() *PortalData {
	return &PortalData{
		Languages:       make(map[string]Language),
		WebTemplates:    make(map[string]*WebTemplate),
		ContentSnippets: make(map[string]*ContentSnippet),
		WebFiles:        make(map[string]*WebFile),
		WebPages:        NewPageHierarchy(),
	}
}

// IsEmpty reports whether the snapshot belongs to no portal.
func (d *PortalData) IsEmpty() bool {
	return d == nil || d.PortalID == ""
}

func (d *PortalData) SetLanguages(langs []Language) {
	d.Languages = make(map[string]Language, len(langs))
	for _, l := range langs {
		d.Languages[Key(l.Code)] = l
	}
}

func (d *PortalData) LanguageByCode(code string) (Language, bool) {
	l, ok := d.Languages[Key(code)]
	return l, ok
}

// LanguageCode resolves a language id to its code, falling back to
// DefaultLanguageCode.
func (d *PortalData) LanguageCode(languageID string) string {
	if code, ok := d.languageCode(languageID); ok {
		return code
	}
	return DefaultLanguageCode
}

func (d *PortalData) languageCode(languageID string) (string, bool) {
	for _, l := range d.Languages {
		if l.ID == languageID && l.Code != "" {
			return l.Code, true
		}
	}
	return "", false
}

// SnippetName is the snippet's local logical name, with its language code
// injected as the second-to-last segment.
func (d *PortalData) SnippetName(s *ContentSnippet) string {
	return injectLanguage(s.Name, d.LanguageCode(s.LanguageID))
}

func (d *PortalData) putTemplate(t *WebTemplate) {
	d.WebTemplates[Key(t.Name)] = t
}

func (d *PortalData) putSnippet(s *ContentSnippet) {
	d.ContentSnippets[Key(d.SnippetName(s))] = s
}

func (d *PortalData) putFile(f *WebFile) {
	d.WebFiles[Key(f.Name)] = f
}

// anchorFile records the parent page's full path as the file's folder.
func (d *PortalData) anchorFile(f *WebFile) {
	f.Folder = ""
	if f.ParentPageID == "" {
		return
	}
	if p, ok := d.WebPages.FullPath(f.ParentPageID); ok {
		f.Folder = p
	}
}

// Documents flattens every content entity to its local name and bytes,
// ordered by type then name.
func (d *PortalData) Documents() ([]Document, error) {
	var docs []Document
	for _, t := range d.WebTemplates {
		docs = append(docs, Document{Type: WebTemplateType, Name: t.Name, Content: []byte(t.Source)})
	}
	for _, s := range d.ContentSnippets {
		docs = append(docs, Document{Type: ContentSnippetType, Name: d.SnippetName(s), Content: []byte(s.Value)})
	}
	for _, f := range d.WebFiles {
		content, err := base64.StdEncoding.DecodeString(f.Content)
		if err != nil {
			return nil, fmt.Errorf("decoding web file %s: %w", f.Name, err)
		}
		docs = append(docs, Document{Type: WebFileType, Name: f.Name, Content: content})
	}
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].Type != docs[j].Type {
			return docs[i].Type < docs[j].Type
		}
		return Key(docs[i].Name) < Key(docs[j].Name)
	})
	return docs, nil
}

// injectLanguage turns "Account/SignIn/PageCopy" into
// "Account/SignIn/<code>/PageCopy".
func injectLanguage(name, code string) string {
	segs := strings.Split(name, "/")
	last := len(segs) - 1
	out := make([]string, 0, len(segs)+1)
	out = append(out, segs[:last]...)
	out = append(out, code, segs[last])
	return strings.Join(out, "/")
}

// splitLanguage is the inverse of injectLanguage. ok is false when the name
// has no language segment.
func splitLanguage(name string) (serverName, code string, ok bool) {
	segs := strings.Split(name, "/")
	if len(segs) < 2 {
		return "", "", false
	}
	n := len(segs)
	code = segs[n-2]
	if code == "" {
		return "", "", false
	}
	rest := append(append([]string{}, segs[:n-2]...), segs[n-1])
	return strings.Join(rest, "/"), code, true
}

type portalDataJSON struct {
	PortalID              string            `json:"portalId"`
	PortalName            string            `json:"portalName"`
	PublishedStateID      string            `json:"publishedStateId,omitempty"`
	DefaultPageTemplateID string            `json:"defaultPageTemplateId,omitempty"`
	Languages             []Language        `json:"languages"`
	WebTemplates          []*WebTemplate    `json:"webTemplates"`
	ContentSnippets       []*ContentSnippet `json:"contentSnippets"`
	WebFiles              []*WebFile        `json:"webFiles"`
	WebPages              []*WebPage        `json:"webPages"`
}

func (d *PortalData) MarshalJSON() ([]byte, error) {
	out := portalDataJSON{
		PortalID:              d.PortalID,
		PortalName:            d.PortalName,
		PublishedStateID:      d.PublishedStateID,
		DefaultPageTemplateID: d.DefaultPageTemplateID,
		WebPages:              d.WebPages.Pages(),
	}
	for _, l := range d.Languages {
		out.Languages = append(out.Languages, l)
	}
	sort.Slice(out.Languages, func(i, j int) bool { return out.Languages[i].Code < out.Languages[j].Code })
	for _, k := range sortedKeys(d.WebTemplates) {
		out.WebTemplates = append(out.WebTemplates, d.WebTemplates[k])
	}
	for _, k := range sortedKeys(d.ContentSnippets) {
		out.ContentSnippets = append(out.ContentSnippets, d.ContentSnippets[k])
	}
	for _, k := range sortedKeys(d.WebFiles) {
		out.WebFiles = append(out.WebFiles, d.WebFiles[k])
	}
	return json.Marshal(out)
}

func (d *PortalData) UnmarshalJSON(b []byte) error {
	var in portalDataJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	fresh := NewPortalData()
	fresh.PortalID = in.PortalID
	fresh.PortalName = in.PortalName
	fresh.PublishedStateID = in.PublishedStateID
	fresh.DefaultPageTemplateID = in.DefaultPageTemplateID
	fresh.SetLanguages(in.Languages)
	fresh.WebPages, _ = BuildPageHierarchy(in.WebPages)
	for _, t := range in.WebTemplates {
		fresh.putTemplate(t)
	}
	for _, s := range in.ContentSnippets {
		fresh.putSnippet(s)
	}
	for _, f := range in.WebFiles {
		fresh.putFile(f)
	}
	*d = *fresh
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
