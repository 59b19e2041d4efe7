package config

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"finitefield.org/logo-web/internal/inference"
)

const (
	defaultEnvFile           = ".env"
	defaultPort              = "8080"
	defaultEnvironment       = "local"
	defaultTemplatesDir      = "templates"
	defaultPublicDir         = "public"
	defaultLocalesDir        = "locales"
	defaultContentDir        = "content"
	defaultLang              = "en"
	defaultReadTimeout       = 15 * time.Second
	defaultWriteTimeout      = 150 * time.Second
	defaultIdleTimeout       = 60 * time.Second
	defaultInferenceTimeout  = 120 * time.Second
	defaultInferenceMaxBytes = 10 << 20
	defaultTranslateURL      = "https://libretranslate.com/translate"
	defaultCooldown          = 60 * time.Second
	defaultResultTTL         = 30 * time.Minute
	defaultRateLimitPerMin   = 10
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server    ServerConfig
	Site      SiteConfig
	Inference InferenceConfig
	Translate TranslateConfig
	Generator GeneratorConfig
	Session   SessionConfig
	Secrets   SecretsConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	Environment  string
	DevMode      bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string { return ":" + s.Port }

// SiteConfig locates templates, assets, locales, and content.
type SiteConfig struct {
	TemplatesDir string
	PublicDir    string
	LocalesDir   string
	ContentDir   string
	DefaultLang  string
}

// InferenceConfig points at the text-to-image endpoint.
type InferenceConfig struct {
	URL      string
	Token    string
	Timeout  time.Duration
	MaxBytes int64
}

// TranslateConfig points at the translation endpoint.
type TranslateConfig struct {
	Enabled bool
	URL     string
	APIKey  string
}

// GeneratorConfig tunes submission behaviour.
type GeneratorConfig struct {
	Cooldown        time.Duration
	ResultTTL       time.Duration
	RateLimitPerMin int
}

// SessionConfig configures the signed session cookie.
type SessionConfig struct {
	SigningKey string
	Secure     bool
}

// SecretsConfig configures Secret Manager lookups for sm:// references.
type SecretsConfig struct {
	ProjectID string
}

// SecretResolver resolves references to external secrets (e.g. Secret Manager URIs).
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts ordinary functions to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret resolves the secret using the wrapped function.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// SecretError describes failures while resolving a secret reference.
type SecretError struct {
	Ref string
	Err error
}

// Error implements the error interface.
func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for ref %q: %v", e.Ref, e.Err)
}

// Unwrap exposes the underlying error.
func (e *SecretError) Unwrap() error { return e.Err }

var errSecretResolverNotConfigured = errors.New("secret resolver not configured")

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
	secret       SecretResolver
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// WithSecretResolver sets a custom secret resolver used for sm:// references.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) {
		o.secret = resolver
	}
}

// Load assembles the application configuration by combining defaults, .env overrides,
// environment variables, and optional secret manager lookups.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	env := strings.ToLower(stringWithDefault(lookup, "LOGO_WEB_ENV", defaultEnvironment))
	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "LOGO_WEB_PORT", stringWithDefault(lookup, "PORT", defaultPort)),
			Environment:  env,
			DevMode:      boolWithDefault(lookup, "LOGO_WEB_DEV", false),
			ReadTimeout:  durationWithDefault(lookup, "LOGO_WEB_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "LOGO_WEB_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "LOGO_WEB_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Site: SiteConfig{
			TemplatesDir: stringWithDefault(lookup, "LOGO_WEB_TEMPLATES", defaultTemplatesDir),
			PublicDir:    stringWithDefault(lookup, "LOGO_WEB_PUBLIC", defaultPublicDir),
			LocalesDir:   stringWithDefault(lookup, "LOGO_WEB_LOCALES", defaultLocalesDir),
			ContentDir:   stringWithDefault(lookup, "LOGO_WEB_CONTENT", defaultContentDir),
			DefaultLang:  strings.ToLower(stringWithDefault(lookup, "LOGO_WEB_DEFAULT_LANG", defaultLang)),
		},
		Inference: InferenceConfig{
			URL:      stringWithDefault(lookup, "LOGO_WEB_INFERENCE_URL", inference.DefaultEndpoint),
			Token:    stringWithDefault(lookup, "LOGO_WEB_INFERENCE_TOKEN", stringWithDefault(lookup, "HUGGINGFACE_API_KEY", "")),
			Timeout:  durationWithDefault(lookup, "LOGO_WEB_INFERENCE_TIMEOUT", defaultInferenceTimeout),
			MaxBytes: int64(intWithDefault(lookup, "LOGO_WEB_INFERENCE_MAX_BYTES", defaultInferenceMaxBytes)),
		},
		Translate: TranslateConfig{
			Enabled: boolWithDefault(lookup, "LOGO_WEB_TRANSLATE_ENABLED", true),
			URL:     stringWithDefault(lookup, "LOGO_WEB_TRANSLATE_URL", defaultTranslateURL),
			APIKey:  stringWithDefault(lookup, "LOGO_WEB_TRANSLATE_API_KEY", ""),
		},
		Generator: GeneratorConfig{
			Cooldown:        durationWithDefault(lookup, "LOGO_WEB_COOLDOWN", defaultCooldown),
			ResultTTL:       durationWithDefault(lookup, "LOGO_WEB_RESULT_TTL", defaultResultTTL),
			RateLimitPerMin: intWithDefault(lookup, "LOGO_WEB_RATELIMIT_PER_MIN", defaultRateLimitPerMin),
		},
		Session: SessionConfig{
			SigningKey: stringWithDefault(lookup, "LOGO_WEB_SESSION_SIGNING_KEY", ""),
			Secure:     env == "prod",
		},
		Secrets: SecretsConfig{
			ProjectID: stringWithDefault(lookup, "LOGO_WEB_SECRETS_PROJECT", ""),
		},
	}

	resolver := options.secret
	secretFields := []struct {
		name  string
		field *string
	}{
		{"Inference.Token", &cfg.Inference.Token},
		{"Translate.APIKey", &cfg.Translate.APIKey},
		{"Session.SigningKey", &cfg.Session.SigningKey},
	}
	for _, target := range secretFields {
		resolved, err := resolveSecret(ctx, *target.field, resolver)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", target.name, err)
		}
		*target.field = resolved
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// IsSecretReference reports whether value points at Secret Manager.
func IsSecretReference(value string) bool {
	trimmed := strings.TrimSpace(value)
	return strings.HasPrefix(trimmed, "secret://") || strings.HasPrefix(trimmed, "sm://")
}

func resolveSecret(ctx context.Context, value string, resolver SecretResolver) (string, error) {
	if value == "" || !IsSecretReference(value) {
		return value, nil
	}
	normalized := normalizeSecretReference(value)
	if resolver == nil {
		return "", &SecretError{Ref: normalized, Err: errSecretResolverNotConfigured}
	}
	secret, err := resolver.ResolveSecret(ctx, normalized)
	if err != nil {
		return "", &SecretError{Ref: normalized, Err: err}
	}
	return strings.TrimSpace(secret), nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if _, err := strconv.Atoi(cfg.Server.Port); err != nil {
		missing = append(missing, "Server.Port")
	}
	if strings.TrimSpace(cfg.Inference.URL) == "" {
		missing = append(missing, "Inference.URL")
	}
	if cfg.Translate.Enabled && strings.TrimSpace(cfg.Translate.URL) == "" {
		missing = append(missing, "Translate.URL")
	}
	if cfg.Generator.Cooldown <= 0 {
		missing = append(missing, "Generator.Cooldown")
	}
	if cfg.Generator.ResultTTL <= 0 {
		missing = append(missing, "Generator.ResultTTL")
	}
	if cfg.Site.DefaultLang == "" {
		missing = append(missing, "Site.DefaultLang")
	}
	if cfg.Server.Environment == "prod" {
		if cfg.Inference.Token == "" {
			missing = append(missing, "Inference.Token")
		}
		if cfg.Session.SigningKey == "" {
			missing = append(missing, "Session.SigningKey")
		}
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func normalizeSecretReference(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "sm://") {
		return "secret://" + strings.TrimPrefix(trimmed, "sm://")
	}
	return trimmed
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}
