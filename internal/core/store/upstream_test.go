package store

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

	"recipe-compat/internal/infrastructure/config"
	"recipe-compat/internal/pkg/common"
)

func newUpstream(t *testing.T, handler http.HandlerFunc) *UpstreamStore {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewUpstreamStore(config.UpstreamConfig{
		BaseURL: srv.URL + "/",
		APIKey:  "secret-token",
		Timeout: 2 * time.Second,
	})
}

func TestUpstreamGetRecipe(t *testing.T) {
	s := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/recipes/r1", r.URL.Path)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"r1","title":"Tagine","language_detected":"ar","components":[]}`))
	})

	recipe, err := s.GetRecipe(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "Tagine", recipe.Title)
	assert.Equal(t, "ar", recipe.StoredLanguage())
}

func TestUpstreamMapsStatusCodes(t *testing.T) {
	s := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/circles/missing":
			w.WriteHeader(http.StatusNotFound)
		case "/persons/broken":
			w.WriteHeader(http.StatusInternalServerError)
		case "/persons/garbage":
			w.Write([]byte(`not json`))
		}
	})
	ctx := context.Background()

	_, err := s.GetCircle(ctx, "missing")
	assert.True(t, errors.Is(err, common.ErrCircleNotFound))

	_, err = s.GetPerson(ctx, "broken")
	assert.True(t, errors.Is(err, common.ErrUpstreamUnavailable))

	_, err = s.GetPerson(ctx, "garbage")
	assert.True(t, errors.Is(err, common.ErrUpstreamUnavailable))
}

func TestUpstreamRecordLanguage(t *testing.T) {
	var got languagePatch
	s := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		if r.URL.Path == "/recipes/missing/language" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		assert.Equal(t, "/recipes/r1/language", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	})
	ctx := context.Background()

	require.NoError(t, s.RecordLanguage(ctx, "r1", "es"))
	assert.Equal(t, "es", got.LanguageDetected)

	err := s.RecordLanguage(ctx, "missing", "es")
	assert.True(t, errors.Is(err, common.ErrRecipeNotFound))
}

func TestUpstreamUnreachable(t *testing.T) {
	s := NewUpstreamStore(config.UpstreamConfig{BaseURL: "http://127.0.0.1:1", Timeout: 200 * time.Millisecond})

	_, err := s.GetRecipe(context.Background(), "r1")
	assert.True(t, errors.Is(err, common.ErrUpstreamUnavailable))
	assert.Error(t, s.Ping(context.Background()))
}
