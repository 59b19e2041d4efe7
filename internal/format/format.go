// Package format renders values for display in the supported languages.
package format

import (
	"strings"
	"time"
)

// Date formats t in a locale-friendly short form.
// Example: Date(t, "vi") => "01/10/2026"
func Date(t time.Time, lang string) string {
	if t.IsZero() {
		return ""
	}
	switch strings.ToLower(lang) {
	case "vi":
		return t.Format("02/01/2006")
	default:
		return t.Format("Jan 2, 2006")
	}
}
