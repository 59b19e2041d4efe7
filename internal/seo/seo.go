// Package seo holds page head metadata and schema.org payloads.
package seo

import "html/template"

// OpenGraph mirrors the og:* meta tags.
type OpenGraph struct {
	Title       string
	Description string
	Type        string
	URL         string
	SiteName    string
}

// Alternate is an hreflang link.
type Alternate struct {
	Href     string
	Hreflang string
}

// Meta is the head metadata of one page.
type Meta struct {
	Title       string
	Description string
	Canonical   string
	OG          OpenGraph
	Alternates  []Alternate
	// JSONLD is embedded verbatim in a ld+json script tag.
	JSONLD template.JS
}
