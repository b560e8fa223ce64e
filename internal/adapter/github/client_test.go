package github

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestNewClient_BaseURL(t *testing.T) {
	client, err := NewClient(ClientConfig{BaseURL: "https://ghe.example.com/api/v3", UserAgent: "github-stat-card"})
	require.NoError(t, err)

	assert.Equal(t, "https://ghe.example.com/api/v3/", client.BaseURL.String())
	assert.Equal(t, "github-stat-card", client.UserAgent)

	_, err = NewClient(ClientConfig{BaseURL: "://bad"})
	assert.Error(t, err)
}

func TestBreakerTransport_OpensOnServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	httpClient := &http.Client{Transport: newBreakerTransport(http.DefaultTransport, 2, time.Minute)}

	for i := 0; i < 2; i++ {
		resp, err := httpClient.Get(server.URL)
		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		resp.Body.Close()
	}

	_, err := httpClient.Get(server.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), calls.Load())
}

func TestBreakerTransport_IgnoresClientErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	httpClient := &http.Client{Transport: newBreakerTransport(http.DefaultTransport, 1, time.Minute)}

	for i := 0; i < 3; i++ {
		resp, err := httpClient.Get(server.URL)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		resp.Body.Close()
	}
}

func TestLimitTransport_HonorsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	httpClient := &http.Client{Transport: &limitTransport{
		next:    http.DefaultTransport,
		limiter: rate.NewLimiter(rate.Limit(0.001), 1),
	}}

	resp, err := httpClient.Get(server.URL)
	require.NoError(t, err)
	resp.Body.Close()

	// 令牌已用完，等待时间远超截止时间
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	_, err = httpClient.Do(req)
	assert.Error(t, err)
}
