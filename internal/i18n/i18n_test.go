package i18n

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadBundle(t *testing.T) *Bundle {
	t.Helper()
	b, err := Load("../../locales", "en", []string{"en", "vi"})
	require.NoError(t, err)
	return b
}

func TestResolveHonorsQValues(t *testing.T) {
	b := loadBundle(t)
	assert.Equal(t, "en", b.Resolve("vi;q=0.8, en;q=0.9"))
	assert.Equal(t, "vi", b.Resolve("vi-VN,vi;q=0.9,en;q=0.5"))
	assert.Equal(t, "en", b.Resolve("fr-FR"))
	assert.Equal(t, "en", b.Resolve(""))
}

func TestTWalksNestedKeys(t *testing.T) {
	b := loadBundle(t)
	assert.Equal(t, "Generate Logo", b.T("en", "form.submit.generate"))
	assert.Equal(t, "Tạo Logo", b.T("vi", "form.submit.generate"))
	assert.Equal(t, "Sustainable, natural, and conscious", b.T("en", "vibes.eco_friendly.description"))
}

func TestTReturnsKeyWhenMissing(t *testing.T) {
	b := loadBundle(t)
	assert.Equal(t, "form.submit.nope", b.T("en", "form.submit.nope"))
	// intermediate node, not a string leaf
	assert.Equal(t, "form.submit", b.T("en", "form.submit"))
	// walking through a string leaf
	assert.Equal(t, "form.submit.generate.deeper", b.T("en", "form.submit.generate.deeper"))
	assert.Equal(t, "form.submit.generate", b.T("fr", "form.submit.generate"))
	assert.Equal(t, "", b.T("en", ""))
}

func TestTNeverFallsBackAcrossLanguages(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "en.json"), []byte(`{"a":{"b":"english","only":"en only"}}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vi.json"), []byte(`{"a":{"b":"tiếng việt"}}`), 0o644))
	b, err := Load(dir, "en", []string{"en", "vi"})
	require.NoError(t, err)

	assert.Equal(t, "tiếng việt", b.T("vi", "a.b"))
	assert.Equal(t, "a.only", b.T("vi", "a.only"))
}

func TestTf(t *testing.T) {
	b := loadBundle(t)
	assert.Equal(t, "Wait 42s", b.Tf("en", "form.submit.wait", 42))
	assert.Equal(t, "Vui lòng chờ 7 giây trước khi tạo logo mới.", b.Tf("vi", "alerts.cooldown", 7))
}

func TestLocalesShareKeyShape(t *testing.T) {
	b := loadBundle(t)
	en := flatten("", b.dict["en"])
	vi := flatten("", b.dict["vi"])
	assert.ElementsMatch(t, keys(en), keys(vi))
}

func TestLoadRequiresFallback(t *testing.T) {
	_, err := Load("../../locales", "ja", []string{"en", "vi"})
	assert.Error(t, err)
}

func flatten(prefix string, m map[string]any) map[string]string {
	out := map[string]string{}
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			for fk, fv := range flatten(key, val) {
				out[fk] = fv
			}
		case string:
			out[key] = val
		}
	}
	return out
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
