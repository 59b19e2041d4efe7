// Package translate detects Vietnamese text and machine-translates it to
// English through a LibreTranslate-compatible endpoint.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/text/unicode/norm"
)

const (
	defaultTimeout = 10 * time.Second
	sourceLang     = "vi"
	targetLang     = "en"
)

// vietnameseLetters is the fixed set of precomposed letters that mark text as Vietnamese.
const vietnameseLetters = "àáạảãâầấậẩẫăằắặẳẵèéẹẻẽêềếệểễìíịỉĩòóọỏõôồốộổỗơờớợởỡùúụủũưừứựửữỳýỵỷỹđ" +
	"ÀÁẠẢÃÂẦẤẬẨẪĂẰẮẶẲẴÈÉẸẺẼÊỀẾỆỂỄÌÍỊỈĨÒÓỌỎÕÔỒỐỘỔỖƠỜỚỢỞỠÙÚỤỦŨƯỪỨỰỬỮỲÝỴỶỸĐ"

var tracer = otel.Tracer("finitefield.org/logo-web/internal/translate")

// ErrEmptyTranslation is returned when the endpoint answers without translated text.
var ErrEmptyTranslation = errors.New("translate: empty translation")

// ContainsVietnamese reports whether s contains a Vietnamese diacritic letter.
// Input is NFC-normalised first so decomposed sequences are detected too.
func ContainsVietnamese(s string) bool {
	return strings.ContainsAny(norm.NFC.String(s), vietnameseLetters)
}

// Translator converts Vietnamese text to English.
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

// Client calls a LibreTranslate-compatible /translate endpoint.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithAPIKey sets the api_key sent with each request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = strings.TrimSpace(key) }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// NewClient constructs a translation client for endpoint.
func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint: strings.TrimSpace(endpoint),
		http:     &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type translateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type translateResponse struct {
	TranslatedText string `json:"translatedText"`
	Error          string `json:"error"`
}

// Translate sends text for vi->en translation and returns the translated text.
func (c *Client) Translate(ctx context.Context, text string) (string, error) {
	ctx, span := tracer.Start(ctx, "translate.Translate")
	defer span.End()
	span.SetAttributes(
		attribute.String("translate.source", sourceLang),
		attribute.String("translate.target", targetLang),
		attribute.Int("translate.length", len(text)),
	)

	out, err := c.translate(ctx, text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return out, nil
}

func (c *Client) translate(ctx context.Context, text string) (string, error) {
	payload, err := json.Marshal(translateRequest{
		Q:      text,
		Source: sourceLang,
		Target: targetLang,
		Format: "text",
		APIKey: c.apiKey,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("translate: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("translate: read body: %w", err)
	}
	var decoded translateResponse
	decodeErr := json.Unmarshal(body, &decoded)
	if resp.StatusCode >= 400 {
		msg := strings.TrimSpace(decoded.Error)
		if msg == "" {
			msg = strings.TrimSpace(string(body))
		}
		return "", fmt.Errorf("translate: status %d: %s", resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("translate: decode: %w", decodeErr)
	}
	out := strings.TrimSpace(decoded.TranslatedText)
	if out == "" {
		return "", ErrEmptyTranslation
	}
	return out, nil
}
