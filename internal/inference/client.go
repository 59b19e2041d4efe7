// Package inference calls a hosted text-to-image model and returns the raw image bytes.
package inference

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
	"go.opentelemetry.io/otel/metric"
)

const (
	// DefaultEndpoint is the Stable Diffusion XL base model on the Hugging Face inference API.
	DefaultEndpoint = "https://api-inference.huggingface.co/models/stabilityai/stable-diffusion-xl-base-1.0"

	defaultTimeout  = 120 * time.Second
	defaultMaxBytes = 10 << 20
	instrumentation = "finitefield.org/logo-web/internal/inference"
)

var tracer = otel.Tracer(instrumentation)

// ErrEmptyImage is returned when the endpoint answers 2xx with no body.
var ErrEmptyImage = errors.New("inference: empty image payload")

// ErrImageTooLarge is returned when the payload exceeds the configured limit.
var ErrImageTooLarge = errors.New("inference: image payload too large")

// APIError describes a non-2xx answer from the inference endpoint.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("inference: API error: %d", e.StatusCode)
	}
	return fmt.Sprintf("inference: API error: %d: %s", e.StatusCode, e.Message)
}

// IsRateLimited reports whether err signals that the upstream is throttling requests,
// either through a 429 status or a TooManyRequests marker in the error text.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "TooManyRequests") || strings.Contains(msg, "Too Many Requests")
}

// Image is a downloaded image payload.
type Image struct {
	Data        []byte
	ContentType string
}

// Generator produces an image for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (Image, error)
}

// Client talks to the inference endpoint.
type Client struct {
	endpoint string
	token    string
	maxBytes int64
	http     *http.Client
	outcomes metric.Int64Counter
}

// Option customises a Client.
type Option func(*Client)

// WithToken sets the bearer token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

// WithTimeout overrides the request timeout. Model cold starts can take a while.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithMaxBytes limits the size of accepted image payloads.
func WithMaxBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBytes = n
		}
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithMeter registers the outcome counter on m instead of the global meter provider.
func WithMeter(m metric.Meter) Option {
	return func(c *Client) {
		if m != nil {
			c.outcomes, _ = m.Int64Counter("inference.generate.outcomes",
				metric.WithDescription("Image generation attempts by outcome"))
		}
	}
}

// NewClient constructs a client. An empty endpoint selects DefaultEndpoint.
func NewClient(endpoint string, opts ...Option) *Client {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	c := &Client{
		endpoint: endpoint,
		maxBytes: defaultMaxBytes,
		http:     &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.outcomes == nil {
		WithMeter(otel.GetMeterProvider().Meter(instrumentation))(c)
	}
	return c
}

type generateRequest struct {
	Inputs  string          `json:"inputs"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

type errorPayload struct {
	Error any `json:"error"`
}

// Generate posts the prompt and returns the image the model produced.
func (c *Client) Generate(ctx context.Context, prompt string) (Image, error) {
	ctx, span := tracer.Start(ctx, "inference.Generate")
	defer span.End()
	span.SetAttributes(attribute.Int("inference.prompt_length", len(prompt)))

	img, err := c.generate(ctx, prompt)
	outcome := "ok"
	switch {
	case IsRateLimited(err):
		outcome = "rate_limited"
	case err != nil:
		outcome = "error"
	}
	if c.outcomes != nil {
		c.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Image{}, err
	}
	span.SetAttributes(
		attribute.Int("inference.image_bytes", len(img.Data)),
		attribute.String("inference.content_type", img.ContentType),
	)
	return img, nil
}

func (c *Client) generate(ctx context.Context, prompt string) (Image, error) {
	payload, err := json.Marshal(generateRequest{
		Inputs:  prompt,
		Options: generateOptions{WaitForModel: true},
	})
	if err != nil {
		return Image{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return Image{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "image/png, image/jpeg, image/*")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Image{}, fmt.Errorf("inference: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Image{}, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(resp.Body)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return Image{}, fmt.Errorf("inference: read body: %w", err)
	}
	if int64(len(data)) > c.maxBytes {
		return Image{}, ErrImageTooLarge
	}
	if len(data) == 0 {
		return Image{}, ErrEmptyImage
	}

	ct := strings.TrimSpace(resp.Header.Get("Content-Type"))
	if ct == "" || !strings.HasPrefix(ct, "image/") {
		ct = http.DetectContentType(data)
	}
	if !strings.HasPrefix(ct, "image/") {
		return Image{}, fmt.Errorf("inference: unexpected content type %q", ct)
	}
	return Image{Data: data, ContentType: ct}, nil
}

// errorMessage extracts the "error" field of a JSON error body, or the raw text.
func errorMessage(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 4<<10))
	var p errorPayload
	if err := json.Unmarshal(b, &p); err == nil && p.Error != nil {
		switch v := p.Error.(type) {
		case string:
			return strings.TrimSpace(v)
		case []any:
			parts := make([]string, 0, len(v))
			for _, e := range v {
				parts = append(parts, fmt.Sprint(e))
			}
			return strings.Join(parts, "; ")
		default:
			return fmt.Sprint(v)
		}
	}
	msg := strings.TrimSpace(string(b))
	if len(msg) > 256 {
		msg = msg[:256]
	}
	return msg
}
