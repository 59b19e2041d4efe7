package translate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContainsVietnamese(t *testing.T) {
	cases := map[string]bool{
		"Cà Phê Việt":      true,
		"Coffee Shop":      false,
		"ĐÔNG Á":           true,
		"Cafe\u0301 Sai":   true,
		"Crème brûlée":     true,
		"Über":             false,
		"":                 false,
	}
	for in, want := range cases {
		assert.Equal(t, want, ContainsVietnamese(in), in)
	}
}

func TestTranslatePostsExpectedBody(t *testing.T) {
	var got translateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]string{"translatedText": " Vietnamese Coffee "})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithAPIKey("k1"))
	out, err := c.Translate(context.Background(), "Cà Phê Việt")
	require.NoError(t, err)
	assert.Equal(t, "Vietnamese Coffee", out)
	assert.Equal(t, "Cà Phê Việt", got.Q)
	assert.Equal(t, "vi", got.Source)
	assert.Equal(t, "en", got.Target)
	assert.Equal(t, "k1", got.APIKey)
}

func TestTranslateErrors(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"Invalid request"}`))
		}))
		defer srv.Close()
		_, err := NewClient(srv.URL).Translate(context.Background(), "xin chào")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 400: Invalid request")
	})

	t.Run("empty", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"translatedText":""}`))
		}))
		defer srv.Close()
		_, err := NewClient(srv.URL).Translate(context.Background(), "xin chào")
		assert.ErrorIs(t, err, ErrEmptyTranslation)
	})

	t.Run("malformed", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		}))
		defer srv.Close()
		_, err := NewClient(srv.URL).Translate(context.Background(), "xin chào")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode")
	})
}
