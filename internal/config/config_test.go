package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"finitefield.org/logo-web/internal/inference"
)

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := Load(context.Background(), WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.Environment != "local" {
		t.Errorf("expected local environment, got %s", cfg.Server.Environment)
	}
	if cfg.Inference.URL != inference.DefaultEndpoint {
		t.Errorf("unexpected inference url %s", cfg.Inference.URL)
	}
	if cfg.Generator.Cooldown != 60*time.Second {
		t.Errorf("expected 60s cooldown, got %s", cfg.Generator.Cooldown)
	}
	if !cfg.Translate.Enabled || cfg.Translate.URL != defaultTranslateURL {
		t.Errorf("expected translation enabled against %s, got %+v", defaultTranslateURL, cfg.Translate)
	}
	if cfg.Site.DefaultLang != "en" {
		t.Errorf("expected default lang en, got %s", cfg.Site.DefaultLang)
	}
	if cfg.Session.Secure {
		t.Errorf("session cookie must not be secure outside prod")
	}
}

func TestLoadOverrides(t *testing.T) {
	env := map[string]string{
		"PORT":                       "9090",
		"HUGGINGFACE_API_KEY":        "hf_legacy",
		"LOGO_WEB_COOLDOWN":          "90s",
		"LOGO_WEB_TRANSLATE_ENABLED": "off",
		"LOGO_WEB_DEFAULT_LANG":      "VI",
		"LOGO_WEB_RATELIMIT_PER_MIN": "3",
	}
	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("expected PORT fallback, got %s", cfg.Server.Port)
	}
	if cfg.Inference.Token != "hf_legacy" {
		t.Errorf("expected HUGGINGFACE_API_KEY alias, got %q", cfg.Inference.Token)
	}
	if cfg.Generator.Cooldown != 90*time.Second {
		t.Errorf("unexpected cooldown %s", cfg.Generator.Cooldown)
	}
	if cfg.Translate.Enabled {
		t.Errorf("expected translation disabled")
	}
	if cfg.Site.DefaultLang != "vi" {
		t.Errorf("expected lower-cased default lang, got %s", cfg.Site.DefaultLang)
	}
	if cfg.Generator.RateLimitPerMin != 3 {
		t.Errorf("unexpected rate limit %d", cfg.Generator.RateLimitPerMin)
	}

	env["LOGO_WEB_INFERENCE_TOKEN"] = "hf_primary"
	cfg, err = Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Inference.Token != "hf_primary" {
		t.Errorf("expected LOGO_WEB_INFERENCE_TOKEN to win, got %q", cfg.Inference.Token)
	}
}

func TestLoadResolvesSecrets(t *testing.T) {
	env := map[string]string{
		"LOGO_WEB_INFERENCE_TOKEN":     "sm://hf-token",
		"LOGO_WEB_SESSION_SIGNING_KEY": "secret://session-key",
	}
	var refs []string
	resolver := SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
		refs = append(refs, ref)
		return " resolved:" + ref + " ", nil
	})
	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""), WithSecretResolver(resolver))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Inference.Token != "resolved:secret://hf-token" {
		t.Errorf("unexpected token %q", cfg.Inference.Token)
	}
	if cfg.Session.SigningKey != "resolved:secret://session-key" {
		t.Errorf("unexpected signing key %q", cfg.Session.SigningKey)
	}
	if len(refs) != 2 {
		t.Errorf("expected two resolutions, got %v", refs)
	}
}

func TestLoadSecretWithoutResolver(t *testing.T) {
	env := map[string]string{"LOGO_WEB_INFERENCE_TOKEN": "sm://hf-token"}
	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var secretErr *SecretError
	if !errors.As(err, &secretErr) {
		t.Fatalf("expected SecretError, got %v", err)
	}
	if !errors.Is(err, errSecretResolverNotConfigured) {
		t.Errorf("expected resolver-not-configured cause, got %v", err)
	}
}

func TestLoadProdRequiresCredentials(t *testing.T) {
	env := map[string]string{"LOGO_WEB_ENV": "prod"}
	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	fields := vErr.Fields()
	if len(fields) != 2 || fields[0] != "Inference.Token" || fields[1] != "Session.SigningKey" {
		t.Errorf("unexpected fields %v", fields)
	}
}

func TestLoadRejectsBadPort(t *testing.T) {
	_, err := Load(context.Background(), WithEnvMap(map[string]string{"LOGO_WEB_PORT": "http"}), WithoutSystemEnv(), WithEnvFile(""))
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestLoadDotEnvFallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# local overrides\nexport LOGO_WEB_PORT=7070\nLOGO_WEB_TRANSLATE_URL=\"http://localhost:5000/translate\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	cfg, err := Load(context.Background(), WithoutSystemEnv(), WithEnvFile(path))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Errorf("expected port from .env, got %s", cfg.Server.Port)
	}
	if cfg.Translate.URL != "http://localhost:5000/translate" {
		t.Errorf("expected unquoted translate url, got %s", cfg.Translate.URL)
	}
}
