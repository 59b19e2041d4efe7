package seo

import (
	"encoding/json"
	"html/template"
	"time"
)

// JSON marshals v for a ld+json script block. It returns an empty value on error.
// encoding/json escapes <, > and & so the output cannot close the script element.
func JSON(v any) template.JS {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return template.JS(b)
}

// WebApplication describes the generator itself.
func WebApplication(name, url, description, lang string) map[string]any {
	m := map[string]any{
		"@context":            "https://schema.org",
		"@type":               "WebApplication",
		"name":                name,
		"applicationCategory": "DesignApplication",
		"operatingSystem":     "Any",
		"offers": map[string]any{
			"@type":         "Offer",
			"price":         "0",
			"priceCurrency": "USD",
		},
	}
	if url != "" {
		m["url"] = url
	}
	if description != "" {
		m["description"] = description
	}
	if lang != "" {
		m["inLanguage"] = lang
	}
	return m
}

// Article returns a minimal Article schema payload.
func Article(headline, url, lang string, modified time.Time) map[string]any {
	m := map[string]any{
		"@context": "https://schema.org",
		"@type":    "Article",
		"headline": headline,
	}
	if url != "" {
		m["url"] = url
	}
	if lang != "" {
		m["inLanguage"] = lang
	}
	if !modified.IsZero() {
		m["dateModified"] = modified.Format("2006-01-02")
	}
	return m
}
