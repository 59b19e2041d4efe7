package content

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePage(t *testing.T, dir, lang, slug, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, lang), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, lang, slug+".md"), []byte(body), 0o600))
}

func TestPageRendersMarkdownWithFrontMatter(t *testing.T) {
	dir := t.TempDir()
	writePage(t, dir, "en", "about", "---\ntitle: About\ndescription: Help\nupdated_at: 2026-10-01\n---\n\n## Steps\n\n1. **Name** it\n")

	page, err := NewLoader(dir).Page("about", "en")
	require.NoError(t, err)
	assert.Equal(t, "About", page.Title)
	assert.Equal(t, "Help", page.Description)
	assert.Equal(t, "en", page.Lang)
	assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), page.UpdatedAt)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(page.HTML)))
	require.NoError(t, err)
	assert.Equal(t, "Steps", doc.Find("h2").Text())
	assert.Equal(t, "Name", doc.Find("ol li strong").Text())
}

func TestPageSanitizesHTML(t *testing.T) {
	dir := t.TempDir()
	writePage(t, dir, "en", "about", "hello <script>alert(1)</script>\n\n[x](javascript:alert(1))\n")

	page, err := NewLoader(dir).Page("about", "en")
	require.NoError(t, err)
	assert.NotContains(t, string(page.HTML), "<script")
	assert.NotContains(t, string(page.HTML), "javascript:")
}

func TestPageFallsBackToEnglish(t *testing.T) {
	dir := t.TempDir()
	writePage(t, dir, "en", "about", "English only\n")

	page, err := NewLoader(dir).Page("about", "vi")
	require.NoError(t, err)
	assert.Equal(t, "en", page.Lang)
	assert.Equal(t, "About", page.Title)

	_, err = NewLoader(dir).Page("missing", "vi")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPageRejectsTraversal(t *testing.T) {
	loader := NewLoader(t.TempDir())
	for _, slug := range []string{"", "../secret", "a/b", `a\b`} {
		_, err := loader.Page(slug, "en")
		assert.ErrorIs(t, err, ErrNotFound, slug)
	}
}

func TestPageCacheExpires(t *testing.T) {
	dir := t.TempDir()
	writePage(t, dir, "en", "about", "---\ntitle: First\n---\nbody\n")

	now := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	loader := NewLoader(dir, WithCacheTTL(time.Minute), WithClock(func() time.Time { return now }))
	page, err := loader.Page("about", "en")
	require.NoError(t, err)
	assert.Equal(t, "First", page.Title)

	writePage(t, dir, "en", "about", "---\ntitle: Second\n---\nbody\n")
	page, err = loader.Page("about", "en")
	require.NoError(t, err)
	assert.Equal(t, "First", page.Title)

	now = now.Add(2 * time.Minute)
	page, err = loader.Page("about", "en")
	require.NoError(t, err)
	assert.Equal(t, "Second", page.Title)
}

func TestBundledPagesParse(t *testing.T) {
	loader := NewLoader(filepath.Join("..", "..", "content"), WithCacheTTL(0))
	for _, lang := range []string{"en", "vi"} {
		page, err := loader.Page("about", lang)
		require.NoError(t, err, lang)
		assert.Equal(t, lang, page.Lang)
		assert.NotEmpty(t, page.HTML)
	}
}
