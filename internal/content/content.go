// Package content loads localized markdown pages (about, usage notes) from disk and renders
// them to sanitized HTML.
package content

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when no page exists for the slug in any candidate language.
var ErrNotFound = errors.New("content: not found")

const (
	defaultDir      = "content"
	defaultCacheTTL = 5 * time.Minute
	fallbackLang    = "en"
)

// Page is a rendered localized page.
type Page struct {
	Slug        string
	Lang        string
	Title       string
	Description string
	HTML        template.HTML
	UpdatedAt   time.Time
}

type frontMatter struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	UpdatedAt   string `yaml:"updated_at"`
}

type cacheEntry struct {
	page    Page
	expires time.Time
}

// Loader reads <dir>/<lang>/<slug>.md. A zero cache TTL disables caching, which dev mode uses.
type Loader struct {
	dir      string
	cacheTTL time.Duration
	md       goldmark.Markdown
	policy   *bluemonday.Policy
	now      func() time.Time

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

// Option customises a Loader.
type Option func(*Loader)

// WithCacheTTL overrides how long rendered pages are kept.
func WithCacheTTL(d time.Duration) Option {
	return func(l *Loader) { l.cacheTTL = d }
}

// WithClock injects the time source used for cache expiry.
func WithClock(now func() time.Time) Option {
	return func(l *Loader) {
		if now != nil {
			l.now = now
		}
	}
}

// NewLoader returns a Loader rooted at dir.
func NewLoader(dir string, opts ...Option) *Loader {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = defaultDir
	}
	l := &Loader{
		dir:      dir,
		cacheTTL: defaultCacheTTL,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
		policy: bluemonday.UGCPolicy(),
		now:    time.Now,
		cache:  map[string]cacheEntry{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Page returns slug in lang, falling back to English when the translation is missing.
func (l *Loader) Page(slug, lang string) (Page, error) {
	slug = sanitizeSlug(slug)
	if slug == "" {
		return Page{}, ErrNotFound
	}
	lang = strings.ToLower(strings.TrimSpace(lang))
	key := lang + "|" + slug
	if page, ok := l.cached(key); ok {
		return page, nil
	}

	candidates := []string{lang}
	if lang != fallbackLang {
		candidates = append(candidates, fallbackLang)
	}
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		page, err := l.read(slug, candidate)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return Page{}, err
		}
		l.store(key, page)
		return page, nil
	}
	return Page{}, ErrNotFound
}

func (l *Loader) read(slug, lang string) (Page, error) {
	file := filepath.Join(l.dir, lang, slug+".md")
	data, err := os.ReadFile(file)
	if errors.Is(err, fs.ErrNotExist) {
		return Page{}, ErrNotFound
	}
	if err != nil {
		return Page{}, err
	}

	fm, body := splitFrontMatter(string(data))
	var front frontMatter
	if strings.TrimSpace(fm) != "" {
		if err := yaml.Unmarshal([]byte(fm), &front); err != nil {
			return Page{}, fmt.Errorf("content: parse front matter %s: %w", file, err)
		}
	}

	var buf bytes.Buffer
	if err := l.md.Convert([]byte(body), &buf); err != nil {
		return Page{}, fmt.Errorf("content: render %s: %w", file, err)
	}

	page := Page{
		Slug:        slug,
		Lang:        lang,
		Title:       strings.TrimSpace(front.Title),
		Description: strings.TrimSpace(front.Description),
		HTML:        template.HTML(l.policy.SanitizeBytes(buf.Bytes())),
		UpdatedAt:   parseDate(front.UpdatedAt),
	}
	if page.UpdatedAt.IsZero() {
		if info, err := os.Stat(file); err == nil {
			page.UpdatedAt = info.ModTime()
		}
	}
	if page.Title == "" {
		page.Title = prettifySlug(slug)
	}
	return page, nil
}

func (l *Loader) cached(key string) (Page, bool) {
	if l.cacheTTL <= 0 {
		return Page{}, false
	}
	l.mu.RLock()
	entry, ok := l.cache[key]
	l.mu.RUnlock()
	if !ok || l.now().After(entry.expires) {
		return Page{}, false
	}
	return entry.page, true
}

func (l *Loader) store(key string, page Page) {
	if l.cacheTTL <= 0 {
		return
	}
	l.mu.Lock()
	l.cache[key] = cacheEntry{page: page, expires: l.now().Add(l.cacheTTL)}
	l.mu.Unlock()
}

func splitFrontMatter(input string) (string, string) {
	input = strings.TrimLeft(input, "\ufeff")
	lines := strings.Split(input, "\n")
	if strings.TrimSpace(lines[0]) != "---" {
		return "", input
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return strings.Join(lines[1:i], "\n"), strings.TrimLeft(strings.Join(lines[i+1:], "\n"), "\n\r")
		}
	}
	return "", input
}

func parseDate(v string) time.Time {
	v = strings.TrimSpace(v)
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

func prettifySlug(slug string) string {
	parts := strings.Split(slug, "-")
	for i, part := range parts {
		if part == "" {
			continue
		}
		parts[i] = strings.ToUpper(part[:1]) + part[1:]
	}
	return strings.Join(parts, " ")
}

func sanitizeSlug(slug string) string {
	slug = strings.Trim(strings.TrimSpace(strings.ToLower(slug)), "/")
	if slug == "" || strings.Contains(slug, "..") || strings.ContainsAny(slug, `/\`) {
		return ""
	}
	return slug
}
