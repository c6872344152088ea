package capability

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_Basics(t *testing.T) {
	cache := NewCache()

	_, ok := cache.Get("missing")
	assert.False(t, ok)

	cache.Set("key", 42)
	value, ok := cache.Get("key")
	assert.True(t, ok)
	assert.Equal(t, 42, value)
	assert.Equal(t, 1, cache.Len())

	cache.Set("key", "replaced")
	value, _ = cache.Get("key")
	assert.Equal(t, "replaced", value)

	assert.True(t, cache.Delete("key"))
	assert.False(t, cache.Delete("key"))
	assert.Zero(t, cache.Len())
}

func TestCache_ConcurrentAccess(t *testing.T) {
	cache := NewCache()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", n%4)
			cache.Set(key, n)
			cache.Get(key)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 4, cache.Len())
}

func TestNewInvocation_Defaults(t *testing.T) {
	inv := NewInvocation()

	assert.True(t, inv.TrustedOrigin)
	assert.NotNil(t, inv.Cache)
	assert.Zero(t, inv.Cache.Len())
	assert.NotNil(t, inv.Fetch)
	assert.NotEmpty(t, inv.Session)
	assert.Empty(t, inv.Identity)

	other := NewInvocation()
	assert.NotEqual(t, inv.Session, other.Session)
}

func TestNewInvocation_Options(t *testing.T) {
	fetcher := FetcherFunc(func(ctx context.Context, req FetchRequest) (*FetchResponse, error) {
		return &FetchResponse{StatusCode: http.StatusTeapot}, nil
	})

	inv := NewInvocation(
		WithUntrustedOrigin(),
		WithFetcher(fetcher),
		WithIdentity("agent-7"),
		WithSession("session-1"),
		WithEnvironment(map[string]string{"region": "eu"}),
	)

	assert.False(t, inv.TrustedOrigin)
	assert.Equal(t, "agent-7", inv.Identity)
	assert.Equal(t, "session-1", inv.Session)
	assert.Equal(t, "eu", inv.Environment["region"])

	resp, err := inv.Fetch.Fetch(context.Background(), FetchRequest{URL: "http://unused"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
}

func TestHTTPFetcher_RoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ping", body["op"])

		w.Header().Set("X-Probe", "yes")
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	fetcher := NewHTTPFetcher(srv.Client())
	resp, err := fetcher.Fetch(context.Background(), FetchRequest{
		Method:  http.MethodPost,
		URL:     srv.URL,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    []byte(`{"op":"ping"}`),
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "yes", resp.Headers["X-Probe"])
	assert.JSONEq(t, `{"ok":true}`, string(resp.Body))
}

func TestHTTPFetcher_DefaultsToGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	resp, err := NewHTTPFetcher(srv.Client()).Fetch(context.Background(), FetchRequest{URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
