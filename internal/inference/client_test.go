package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestGenerateSendsPromptAndReturnsImage(t *testing.T) {
	var body generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer hf_test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngHeader)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithToken("hf_test"))
	img, err := c.Generate(context.Background(), "a logo")
	require.NoError(t, err)
	assert.Equal(t, "a logo", body.Inputs)
	assert.True(t, body.Options.WaitForModel)
	assert.Equal(t, "image/png", img.ContentType)
	assert.Equal(t, pngHeader, img.Data)
}

func TestGenerateSniffsContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(pngHeader)
	}))
	defer srv.Close()

	img, err := NewClient(srv.URL).Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.ContentType)
}

func TestGenerateRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"Rate limit reached. You reached free usage limit"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Generate(context.Background(), "p")
	require.Error(t, err)
	assert.True(t, IsRateLimited(err))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, "Rate limit reached. You reached free usage limit", apiErr.Message)
}

func TestGenerateServerErrorIsNotRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":["Model is loading","retry later"]}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Generate(context.Background(), "p")
	require.Error(t, err)
	assert.False(t, IsRateLimited(err))
	assert.Contains(t, err.Error(), "503: Model is loading; retry later")
}

func TestGenerateRejectsOversizedAndEmpty(t *testing.T) {
	big := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(append(pngHeader, make([]byte, 64)...))
	}))
	defer big.Close()
	_, err := NewClient(big.URL, WithMaxBytes(16)).Generate(context.Background(), "p")
	assert.ErrorIs(t, err, ErrImageTooLarge)

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
	}))
	defer empty.Close()
	_, err = NewClient(empty.URL).Generate(context.Background(), "p")
	assert.ErrorIs(t, err, ErrEmptyImage)
}

func TestGenerateRejectsNonImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>oops</html>"))
	}))
	defer srv.Close()
	_, err := NewClient(srv.URL).Generate(context.Background(), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected content type")
}

func TestIsRateLimited(t *testing.T) {
	assert.False(t, IsRateLimited(nil))
	assert.False(t, IsRateLimited(errors.New("boom")))
	assert.True(t, IsRateLimited(errors.New("HTTPError: TooManyRequests")))
	assert.True(t, IsRateLimited(fmt.Errorf("wrapped: %w", &APIError{StatusCode: 429})))
	assert.False(t, IsRateLimited(&APIError{StatusCode: 500}))
}

func TestNewClientDefaultsEndpoint(t *testing.T) {
	assert.Equal(t, DefaultEndpoint, NewClient("  ").endpoint)
}
