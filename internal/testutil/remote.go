package testutil

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"

	"portalsync/internal/cms"
	"portalsync/internal/portal"
)

// Fixture identifiers seeded by NewTestRemote.
const (
	PortalID         = "portal-1"
	PortalName       = "Customer Portal"
	OtherPortalID    = "portal-2"
	OtherPortalName  = "Partner Portal"
	PublishedStateID = "state-published"

	EnglishID = "lang-en"
	GermanID  = "lang-de"

	DefaultTemplateID = "ptpl-default"
	FullPageTemplate  = "ptpl-full"

	HomePageID     = "page-home"
	ProductsPageID = "page-products"
	ShoesPageID    = "page-shoes"

	HeaderTemplateID = "wt-header"
	FooterSnippetID  = "cs-footer-en"
	FooterDeID       = "cs-footer-de"
	SiteCSSID        = "wf-site-css"
	LogoID           = "wf-logo"
)

// Fixture contents.
const (
	HeaderSource = "<header>{{ page.title }}</header>\n"
	FooterText   = "Copyright Contoso\n"
	FooterDeText = "Urheberrecht Contoso\n"
	SiteCSS      = "body { margin: 0; }\n"
	LogoBytes    = "\x89PNG\r\n"
)

// NewTestRemote returns an in-memory CMS seeded with:
//
//	portal-1 "Customer Portal"
//	  languages   en-us, de-de
//	  templates   Header
//	  snippets    Footer/Text (en-us), Footer/Text (de-de)
//	  pages       / -> products -> shoes
//	  files       site.css (on /), logo.png (on /products)
//	portal-2 "Partner Portal" with nothing in it
//
// Generated ids use the "gen" prefix.
func NewTestRemote() *cms.MemoryClient {
	c := cms.NewMemoryClient(NewPrefixedIDGenerator("gen"))

	c.AddPortal(portal.Portal{ID: PortalID, Name: PortalName}, PublishedStateID)
	c.AddLanguage(PortalID, portal.Language{ID: EnglishID, Code: "en-us", Name: "English"})
	c.AddLanguage(PortalID, portal.Language{ID: GermanID, Code: "de-de", Name: "German"})
	c.AddPageTemplate(PortalID, portal.PageTemplate{ID: DefaultTemplateID, Name: "Default studio template"})
	c.AddPageTemplate(PortalID, portal.PageTemplate{ID: FullPageTemplate, Name: "Full page"})

	c.AddWebTemplate(PortalID, portal.WebTemplate{ID: HeaderTemplateID, Name: "Header", Source: HeaderSource})
	c.AddContentSnippet(PortalID, portal.ContentSnippet{ID: FooterSnippetID, Name: "Footer/Text", Value: FooterText, LanguageID: EnglishID})
	c.AddContentSnippet(PortalID, portal.ContentSnippet{ID: FooterDeID, Name: "Footer/Text", Value: FooterDeText, LanguageID: GermanID})

	c.AddWebPage(PortalID, portal.WebPage{ID: HomePageID, Name: "Home", PartialURL: "/", PageTemplateID: DefaultTemplateID, PublishingStateID: PublishedStateID})
	c.AddWebPage(PortalID, portal.WebPage{ID: ProductsPageID, Name: "Products", PartialURL: "products", ParentID: HomePageID, PageTemplateID: DefaultTemplateID, PublishingStateID: PublishedStateID})
	c.AddWebPage(PortalID, portal.WebPage{ID: ShoesPageID, Name: "Shoes", PartialURL: "shoes", ParentID: ProductsPageID, PageTemplateID: DefaultTemplateID, PublishingStateID: PublishedStateID})

	c.AddWebFile(PortalID, portal.WebFile{
		ID: SiteCSSID, Name: "site.css", PartialURL: "site.css", ParentPageID: HomePageID,
		PublishingStateID: PublishedStateID, MimeType: "text/css", Content: Base64(SiteCSS),
	})
	c.AddWebFile(PortalID, portal.WebFile{
		ID: LogoID, Name: "logo.png", PartialURL: "logo.png", ParentPageID: ProductsPageID,
		PublishingStateID: PublishedStateID, MimeType: "image/png", Content: Base64(LogoBytes),
	})

	c.AddPortal(portal.Portal{ID: OtherPortalID, Name: OtherPortalName}, "state-pub-2")

	return c
}

// Base64 encodes s the way web file content travels.
func Base64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

// SHA256Hex is the checksum format stored with cached originals.
func SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
