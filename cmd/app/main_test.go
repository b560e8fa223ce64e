package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github-stat-card/internal/config"
)

func TestNewApp(t *testing.T) {
	// 上游指向一个总是返回空数组的假 GitHub
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("[]"))
	}))
	defer upstream.Close()

	cfg := config.Default()
	cfg.GitHub.BaseURL = upstream.URL
	cfg.Server.RateLimitRequests = 0

	a, err := newApp(cfg)
	require.NoError(t, err)
	defer a.Close()

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, "github-stat-card", rec.Body.String())

	rec = httptest.NewRecorder()
	a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/summary?user=octo", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.True(t, strings.Contains(rec.Body.String(), "octo GitHub Stats"))
	assert.NotContains(t, rec.Body.String(), "Top Languages")
}

func TestNewApp_InvalidBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.Backend = "redis"

	_, err := newApp(cfg)
	assert.Error(t, err)
}
