package logo

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var lower = cases.Lower(language.Und)

// BuildPrompt assembles the text-to-image prompt for validated values.
// Custom colors are only consulted when the Custom scheme is selected.
func BuildPrompt(v FormValues, c *Catalog, custom CustomColors) string {
	colorDesc := ""
	if scheme, ok := c.Scheme(v.ColorScheme); ok {
		colors := scheme.Colors[:]
		if scheme.IsCustom() {
			colors = custom.Slice()
		}
		colorDesc = "using the colors " + strings.Join(colors, ", ")
	}
	return fmt.Sprintf(
		"Create a logo for a %s company named \"%s\" with a %s vibe %s. The logo should be simple, clean, and professional.",
		v.Industry, v.CompanyName, lower.String(v.Vibe), colorDesc,
	)
}
