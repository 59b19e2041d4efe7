package handlers

import (
	"finitefield.org/logo-web/internal/nav"
	"finitefield.org/logo-web/internal/seo"
)

// PageData is the view model for full pages rendered with the shared layout.
type PageData struct {
	Title     string
	Lang      string
	Languages []LangLink
	SEO       seo.Meta
	CSRFToken string

	Path string
	Nav  []nav.RenderedItem

	// Optional per-page view model payloads
	Generator *GeneratorView
	Content   any
}

// LangLink is one entry in the language switcher.
type LangLink struct {
	Code   string
	Label  string
	Href   string
	Active bool
}
