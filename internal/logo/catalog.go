package logo

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// CustomScheme is the name of the user-editable color scheme.
const CustomScheme = "Custom"

//go:embed catalog.yaml
var catalogYAML []byte

// Vibe describes a brand tone offered on the form.
type Vibe struct {
	Key         string `yaml:"key"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// Scheme is a fixed three-color palette. The Custom scheme carries placeholder colors only.
type Scheme struct {
	Key         string    `yaml:"key"`
	Name        string    `yaml:"name"`
	Colors      [3]string `yaml:"colors"`
	Description string    `yaml:"description"`
}

// IsCustom reports whether the scheme takes its colors from the user.
func (s Scheme) IsCustom() bool { return s.Name == CustomScheme }

// Catalog holds the fixed option sets presented by the form.
type Catalog struct {
	Industries []string `yaml:"industries"`
	Vibes      []Vibe   `yaml:"vibes"`
	Schemes    []Scheme `yaml:"schemes"`
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// DefaultCatalog returns the embedded catalog. It panics if the embedded document is malformed.
func DefaultCatalog() *Catalog {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = ParseCatalog(catalogYAML)
	})
	if defaultErr != nil {
		panic(fmt.Sprintf("logo: embedded catalog: %v", defaultErr))
	}
	return defaultCatalog
}

// ParseCatalog decodes a YAML catalog document and checks it for consistency.
func ParseCatalog(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("unmarshal catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	if len(c.Industries) == 0 {
		return errors.New("catalog: no industries")
	}
	if len(c.Vibes) == 0 {
		return errors.New("catalog: no vibes")
	}
	if len(c.Schemes) == 0 {
		return errors.New("catalog: no schemes")
	}
	for _, s := range c.Schemes {
		for i, col := range s.Colors {
			if !IsHexColor(col) {
				return fmt.Errorf("catalog: scheme %s color %d: invalid hex %q", s.Name, i, col)
			}
		}
	}
	return nil
}

// HasIndustry reports whether name is one of the catalog industries.
func (c *Catalog) HasIndustry(name string) bool {
	for _, in := range c.Industries {
		if in == name {
			return true
		}
	}
	return false
}

// Vibe looks up a vibe by display name.
func (c *Catalog) Vibe(name string) (Vibe, bool) {
	for _, v := range c.Vibes {
		if v.Name == name {
			return v, true
		}
	}
	return Vibe{}, false
}

// Scheme looks up a color scheme by display name.
func (c *Catalog) Scheme(name string) (Scheme, bool) {
	for _, s := range c.Schemes {
		if s.Name == name {
			return s, true
		}
	}
	return Scheme{}, false
}

// IndustryKey derives a stable i18n key segment from an industry label,
// e.g. "Food & Beverage" => "food_beverage".
func IndustryKey(label string) string {
	var b strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(label) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
