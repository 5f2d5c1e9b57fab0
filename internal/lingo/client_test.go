package lingo

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalize_RequestShape(t *testing.T) {
	var captured localizeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/i18n", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{"text": "Hola"}})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL + "/", APIKey: "secret"})
	c.now = func() time.Time { return time.UnixMilli(1700000000000) }

	got, err := c.Localize(context.Background(), "Hello", "en", "es")
	require.NoError(t, err)
	assert.Equal(t, "Hola", got)
	assert.Equal(t, "babelchat-1700000000000", captured.Params.WorkflowID)
	assert.False(t, captured.Params.Fast)
	assert.Equal(t, "en", captured.Locale.Source)
	assert.Equal(t, "es", captured.Locale.Target)
	assert.Equal(t, "Hello", captured.Data["text"])
}

func TestLocalize_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid api key"}`))
	}))
	defer srv.Close()

	_, err := NewClient(Config{BaseURL: srv.URL}).Localize(context.Background(), "Hello", "en", "es")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "invalid api key", apiErr.Message)
}

func TestLocalize_UnfollowedRedirectIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotModified)
	}))
	defer srv.Close()

	_, err := NewClient(Config{BaseURL: srv.URL}).Localize(context.Background(), "Hello", "en", "es")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotModified, apiErr.Status)
}

func TestLocalize_MissingText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{}}`))
	}))
	defer srv.Close()

	_, err := NewClient(Config{BaseURL: srv.URL}).Localize(context.Background(), "Hello", "en", "es")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestLocalize_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	_, err := c.Localize(context.Background(), "Hello", "en", "es")
	assert.Error(t, err)
}

func TestRecognize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/recognize", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Bonjour", body["text"])
		_, _ = w.Write([]byte(`{"locale":"fr"}`))
	}))
	defer srv.Close()

	got, err := NewClient(Config{BaseURL: srv.URL}).Recognize(context.Background(), "Bonjour")
	require.NoError(t, err)
	assert.Equal(t, "fr", got)
}

func TestPost_RateLimitRespectsContext(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://127.0.0.1:1", RatePerSec: 0.001, Burst: 1})
	c.limiter.Allow() // drain the single token

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Recognize(ctx, "hi")
	assert.ErrorContains(t, err, "rate limit wait")
}
