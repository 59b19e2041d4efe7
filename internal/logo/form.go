package logo

import (
	"errors"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// Field names used for per-field validation messages.
const (
	FieldCompanyName = "companyName"
	FieldIndustry    = "industry"
	FieldVibe        = "vibe"
	FieldColorScheme = "colorScheme"
)

// MinCompanyNameLength is the minimum number of characters in a company name.
const MinCompanyNameLength = 2

// DefaultCustomColor is the initial value of every custom color slot.
const DefaultCustomColor = "#000000"

var inputPolicy = bluemonday.StrictPolicy()

// FormValues are the submitted form fields.
type FormValues struct {
	CompanyName string
	Industry    string
	Vibe        string
	ColorScheme string
}

// FieldErrors maps a field name to an i18n message key.
type FieldErrors map[string]string

// Has reports whether field has an error.
func (e FieldErrors) Has(field string) bool {
	_, ok := e[field]
	return ok
}

// Normalize trims the values and strips any markup from free text.
func (v FormValues) Normalize() FormValues {
	return FormValues{
		CompanyName: StripMarkup(v.CompanyName),
		Industry:    strings.TrimSpace(v.Industry),
		Vibe:        strings.TrimSpace(v.Vibe),
		ColorScheme: strings.TrimSpace(v.ColorScheme),
	}
}

// StripMarkup removes tags from free text and returns it unescaped and trimmed.
func StripMarkup(s string) string {
	return strings.TrimSpace(html.UnescapeString(inputPolicy.Sanitize(strings.TrimSpace(s))))
}

// Validate checks the values against the catalog. A nil result means the values are valid.
func (v FormValues) Validate(c *Catalog) FieldErrors {
	errs := FieldErrors{}
	if utf8.RuneCountInString(strings.TrimSpace(v.CompanyName)) < MinCompanyNameLength {
		errs[FieldCompanyName] = "form.errors.company_name"
	}
	if !c.HasIndustry(v.Industry) {
		errs[FieldIndustry] = "form.errors.industry"
	}
	if _, ok := c.Vibe(v.Vibe); !ok {
		errs[FieldVibe] = "form.errors.vibe"
	}
	if _, ok := c.Scheme(v.ColorScheme); !ok {
		errs[FieldColorScheme] = "form.errors.color_scheme"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// CustomColors is the user-editable palette used when the Custom scheme is selected.
type CustomColors [3]string

// ErrInvalidColor is returned for malformed custom color edits.
var ErrInvalidColor = errors.New("logo: invalid custom color")

// DefaultCustomColors returns the initial custom palette.
func DefaultCustomColors() CustomColors {
	return CustomColors{DefaultCustomColor, DefaultCustomColor, DefaultCustomColor}
}

// Set replaces the color at index with hex, normalised to upper case.
func (c *CustomColors) Set(index int, hex string) error {
	if index < 0 || index >= len(c) {
		return fmt.Errorf("%w: index %d out of range", ErrInvalidColor, index)
	}
	hex = strings.TrimSpace(hex)
	if !IsHexColor(hex) {
		return fmt.Errorf("%w: %q", ErrInvalidColor, hex)
	}
	c[index] = strings.ToUpper(hex)
	return nil
}

// Slice returns the colors in order.
func (c CustomColors) Slice() []string {
	return []string{c[0], c[1], c[2]}
}

// IsHexColor reports whether s has the form #RRGGBB.
func IsHexColor(s string) bool {
	if len(s) != 7 || s[0] != '#' {
		return false
	}
	for _, r := range s[1:] {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
