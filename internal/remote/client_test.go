package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryCache struct {
	items map[string]*Resource
	sets  int
}

func (m *memoryCache) GetResource(_ context.Context, key string) (*Resource, bool, error) {
	res, ok := m.items[key]
	return res, ok, nil
}

func (m *memoryCache) SetResource(_ context.Context, key string, res *Resource, _ time.Duration) error {
	m.items[key] = res
	m.sets++
	return nil
}

func TestClient_FetchJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"R-9"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{UserAgent: "test-agent", MaxAttempts: 1}, nil)
	res, err := c.Fetch(context.Background(), srv.URL+"/rfp.json")

	require.NoError(t, err)
	assert.Equal(t, "application/json", res.ContentType)
	assert.Equal(t, `{"id":"R-9"}`, string(res.Body))
	assert.Equal(t, srv.URL+"/rfp.json", res.URL)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("Title: Cable supply"))
	}))
	defer srv.Close()

	c := NewClient(Config{MaxAttempts: 2}, nil)
	res, err := c.Fetch(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Equal(t, "Title: Cable supply", string(res.Body))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(Config{MaxAttempts: 3}, nil)
	_, err := c.Fetch(context.Background(), srv.URL)

	assert.ErrorIs(t, err, ErrUnexpectedStatus)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_RejectsUnsupportedLocations(t *testing.T) {
	c := NewClient(Config{}, nil)

	for _, loc := range []string{"rfp-001.json", "ftp://example.com/rfp.pdf", "https://", ""} {
		_, err := c.Fetch(context.Background(), loc)
		assert.ErrorIs(t, err, ErrUnsupportedURL, loc)
	}
}

func TestClient_BodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer srv.Close()

	c := NewClient(Config{MaxBodyBytes: 16, MaxAttempts: 1}, nil)
	_, err := c.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrBodyTooLarge)
}

func TestClient_HonoursContextDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := NewClient(Config{MaxAttempts: 1}, nil)
	start := time.Now()
	_, err := c.Fetch(ctx, srv.URL)

	assert.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestClient_UsesCache(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("Due date: tomorrow"))
	}))
	defer srv.Close()

	cache := &memoryCache{items: map[string]*Resource{}}
	c := NewClient(Config{MaxAttempts: 1}, cache)

	first, err := c.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	second, err := c.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, 1, cache.sets)
}
