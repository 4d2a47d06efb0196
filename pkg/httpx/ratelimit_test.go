package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitAllowsWithinBudget(t *testing.T) {
	t.Parallel()

	cfg := RateLimitConfig{RequestsPerWindow: 3, Window: time.Minute, Burst: 3}
	h := Chain(okHandler(), RateLimitByIP(cfg))

	for i := range 3 {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, "request %d should be allowed", i)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestRateLimitIsPerKey(t *testing.T) {
	t.Parallel()

	cfg := RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1}
	h := Chain(okHandler(), RateLimitByIP(cfg))

	first := httptest.NewRequest(http.MethodGet, "/", nil)
	first.RemoteAddr = "10.0.0.1:1"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, first)
	require.Equal(t, http.StatusOK, rec.Code)

	// Same IP blocked, different IP unaffected.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, first)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	other := httptest.NewRequest(http.MethodGet, "/", nil)
	other.RemoteAddr = "10.0.0.2:1"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, other)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestIPKeyExtractorHonoursProxyHeaders(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "127.0.0.1:9999"
	require.Equal(t, "127.0.0.1", IPKeyExtractor(req))

	req.Header.Set("X-Real-IP", "203.0.113.7")
	require.Equal(t, "203.0.113.7", IPKeyExtractor(req))

	req.Header.Set("X-Forwarded-For", "198.51.100.4, 10.0.0.1")
	require.Equal(t, "198.51.100.4", IPKeyExtractor(req))
}
