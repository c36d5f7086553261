package container_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"
	"github.com/samber/do"
	"github.com/serroba/shortlink/internal/codec"
	"github.com/serroba/shortlink/internal/container"
	"github.com/serroba/shortlink/internal/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultOptions() *container.Options {
	return &container.Options{
		Port:        8888,
		Alphabet:    codec.DefaultSymbols,
		StoreDriver: container.StoreMemory,
		CacheDriver: container.CacheLocal,
		Events:      container.EventsLocal,
		Clicks:      container.ClicksDirect,
		LogFormat:   "console",
	}
}

func newRouter(t *testing.T, opts *container.Options) (*chi.Mux, *do.Injector) {
	t.Helper()

	require.NoError(t, opts.Validate())

	injector := do.New()
	container.Packages(injector, opts)

	t.Cleanup(func() { _ = injector.Shutdown() })

	_ = do.MustInvoke[huma.API](injector)

	return do.MustInvoke[*chi.Mux](injector), injector
}

func request(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	return rec
}

type stats struct {
	Code       string `json:"code"`
	ClickCount uint64 `json:"clickCount"`
}

func clickCount(t *testing.T, router http.Handler, code string) uint64 {
	t.Helper()

	rec := request(t, router, http.MethodGet, "/stats/"+code, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var s stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))

	return s.ClickCount
}

func TestServer(t *testing.T) {
	t.Run("shortens, redirects and counts", func(t *testing.T) {
		router, _ := newRouter(t, defaultOptions())

		rec := request(t, router, http.MethodPost, "/shorten", map[string]string{"url": "https://example.com"})
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "http://localhost:8888/b", rec.Header().Get("Location"))

		rec = request(t, router, http.MethodGet, "/b", nil)
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "https://example.com", rec.Header().Get("Location"))
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

		assert.Equal(t, uint64(1), clickCount(t, router, "b"))
	})

	t.Run("unknown code is not found", func(t *testing.T) {
		router, _ := newRouter(t, defaultOptions())

		rec := request(t, router, http.MethodGet, "/zzz-unknown", nil)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("uses the configured base url", func(t *testing.T) {
		opts := defaultOptions()
		opts.BaseURL = "https://sho.rt"
		router, _ := newRouter(t, opts)

		rec := request(t, router, http.MethodPost, "/shorten", map[string]string{"url": "example.com"})

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "https://sho.rt/b", rec.Header().Get("Location"))
	})

	t.Run("health reports the sqlite store", func(t *testing.T) {
		opts := defaultOptions()
		opts.StoreDriver = container.StoreSQLite
		opts.SQLitePath = filepath.Join(t.TempDir(), "shortlink.db")
		router, _ := newRouter(t, opts)

		rec := request(t, router, http.MethodGet, "/health", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Status       string            `json:"status"`
			Dependencies map[string]string `json:"dependencies"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

		assert.Equal(t, "ok", body.Status)
		assert.Equal(t, map[string]string{"store": "healthy"}, body.Dependencies)
	})

	t.Run("counts clicks through local events", func(t *testing.T) {
		opts := defaultOptions()
		opts.Clicks = container.ClicksEvents
		router, injector := newRouter(t, opts)

		group := do.MustInvoke[*messaging.ConsumerGroup](injector)
		assert.Equal(t, 2, group.Len())

		ctx, cancel := context.WithCancel(context.Background())
		t.Cleanup(cancel)
		require.NoError(t, group.Start(ctx))

		rec := request(t, router, http.MethodPost, "/shorten", map[string]string{"url": "https://example.com"})
		require.Equal(t, http.StatusCreated, rec.Code)

		for range 3 {
			rec = request(t, router, http.MethodGet, "/b", nil)
			require.Equal(t, http.StatusFound, rec.Code)
		}

		assert.Eventually(t, func() bool {
			return clickCount(t, router, "b") == 3
		}, 2*time.Second, 10*time.Millisecond)
	})
}

func TestOptions_Validate(t *testing.T) {
	t.Run("accepts the defaults", func(t *testing.T) {
		assert.NoError(t, defaultOptions().Validate())
	})

	tests := []struct {
		name   string
		mutate func(o *container.Options)
	}{
		{"unknown store", func(o *container.Options) { o.StoreDriver = "mysql" }},
		{"unknown cache", func(o *container.Options) { o.CacheDriver = "memcached" }},
		{"unknown events", func(o *container.Options) { o.Events = "kafka" }},
		{"unknown clicks", func(o *container.Options) { o.Clicks = "batch" }},
		{"negative ttl", func(o *container.Options) { o.CacheTTL = -1 }},
		{"duplicate alphabet symbols", func(o *container.Options) { o.Alphabet = "aab" }},
		{"single symbol alphabet", func(o *container.Options) { o.Alphabet = "a" }},
	}

	for _, tt := range tests {
		t.Run("rejects "+tt.name, func(t *testing.T) {
			opts := defaultOptions()
			tt.mutate(opts)

			assert.Error(t, opts.Validate())
		})
	}
}

func TestOptions_PublicBaseURL(t *testing.T) {
	t.Run("defaults to localhost on the port", func(t *testing.T) {
		opts := defaultOptions()
		opts.Port = 9000

		assert.Equal(t, "http://localhost:9000", opts.PublicBaseURL())
	})

	t.Run("prefers the configured url", func(t *testing.T) {
		opts := defaultOptions()
		opts.BaseURL = "https://sho.rt"

		assert.Equal(t, "https://sho.rt", opts.PublicBaseURL())
	})
}
