package httpx_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aussiebroadwan/staffdash/pkg/httpx"
	"github.com/aussiebroadwan/staffdash/pkg/sessionx"
	"github.com/stretchr/testify/require"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func requestFrom(ip string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = ip + ":12345"
	return req
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	trusted, err := httpx.ParseTrustedProxies([]string{"10.0.0.0/8", "192.168.1.1"})
	require.NoError(t, err)

	resolve := func(trusted httpx.TrustedProxies, req *http.Request) string {
		var got string
		httpx.ClientIPMiddleware(trusted)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			got = httpx.ClientIP(r)
		})).ServeHTTP(httptest.NewRecorder(), req)
		return got
	}

	tests := []struct {
		name    string
		peer    string
		xff     string
		realIP  string
		trusted httpx.TrustedProxies
		want    string
	}{
		{name: "remote addr", peer: "192.168.1.1", trusted: trusted, want: "192.168.1.1"},
		{name: "forwarded header ignored without trusted proxies", peer: "198.51.100.7", xff: "203.0.113.1", want: "198.51.100.7"},
		{name: "forwarded header ignored from untrusted peer", peer: "198.51.100.7", xff: "203.0.113.1", trusted: trusted, want: "198.51.100.7"},
		{name: "trusted peer", peer: "192.168.1.1", xff: "203.0.113.1", trusted: trusted, want: "203.0.113.1"},
		{name: "spoofed leftmost hop is skipped", peer: "10.0.0.2", xff: "1.2.3.4, 203.0.113.1, 10.0.0.9", trusted: trusted, want: "203.0.113.1"},
		{name: "garbage hop stops the walk", peer: "10.0.0.2", xff: "203.0.113.1, nonsense", trusted: trusted, want: "10.0.0.2"},
		{name: "X-Real-IP from trusted peer", peer: "10.0.0.2", realIP: "203.0.113.2", trusted: trusted, want: "203.0.113.2"},
		{name: "X-Real-IP from untrusted peer", peer: "203.0.113.9", realIP: "203.0.113.2", trusted: trusted, want: "203.0.113.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := requestFrom(tt.peer)
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			require.Equal(t, tt.want, resolve(tt.trusted, req))
		})
	}

	t.Run("without the middleware only the peer counts", func(t *testing.T) {
		t.Parallel()
		req := requestFrom("198.51.100.7")
		req.Header.Set("X-Forwarded-For", "203.0.113.1")
		require.Equal(t, "198.51.100.7", httpx.ClientIP(req))
	})
}

func TestParseTrustedProxies(t *testing.T) {
	t.Parallel()

	got, err := httpx.ParseTrustedProxies([]string{" 10.1.2.3/8 ", "", "::1"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "10.0.0.0/8", got[0].String())
	require.Equal(t, "::1/128", got[1].String())

	_, err = httpx.ParseTrustedProxies([]string{"not-an-ip"})
	require.Error(t, err)
	_, err = httpx.ParseTrustedProxies([]string{"10.0.0.0/99"})
	require.Error(t, err)
}

func TestCompositeKeyExtractor(t *testing.T) {
	t.Parallel()

	extract := httpx.CompositeKeyExtractor(":", httpx.UserKeyExtractor, httpx.IPKeyExtractor)

	anon := requestFrom("10.0.0.1")
	require.Equal(t, "10.0.0.1", extract(anon))

	authed := requestFrom("10.0.0.1")
	authed = authed.WithContext(httpx.WithIdentity(authed.Context(), sessionx.Identity{UserID: "u1"}))
	require.Equal(t, "u1:10.0.0.1", extract(authed))
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("blocks requests over limit", func(t *testing.T) {
		limited := httpx.RateLimitByIP(httpx.RateLimitConfig{
			RequestsPerWindow: 3,
			Window:            time.Minute,
			Burst:             3,
		})(okHandler)

		for i := range 3 {
			rec := httptest.NewRecorder()
			limited.ServeHTTP(rec, requestFrom("192.168.1.1"))
			require.Equal(t, http.StatusOK, rec.Code, "request %d should succeed", i+1)
		}

		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, requestFrom("192.168.1.1"))
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.NotEmpty(t, rec.Header().Get("Retry-After"))
		require.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
		require.Equal(t, "1m0s", rec.Header().Get("X-RateLimit-Window"))

		var body httpx.ErrorBody
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, "rate_limit_exceeded", body.Error)

		// A different client is unaffected
		rec = httptest.NewRecorder()
		limited.ServeHTTP(rec, requestFrom("192.168.1.2"))
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("allows request when key extractor returns empty", func(t *testing.T) {
		limited := httpx.RateLimitMiddleware(httpx.RateLimitConfig{
			RequestsPerWindow: 1,
			Window:            time.Minute,
			Burst:             1,
		}, func(*http.Request) string { return "" })(okHandler)

		for range 3 {
			rec := httptest.NewRecorder()
			limited.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			require.Equal(t, http.StatusOK, rec.Code)
		}
	})

	t.Run("users behind one IP are tracked separately", func(t *testing.T) {
		limited := httpx.RateLimitByUser(httpx.RateLimitConfig{
			RequestsPerWindow: 1,
			Window:            time.Minute,
			Burst:             1,
		})(okHandler)

		as := func(user string) *http.Request {
			req := requestFrom("10.1.1.1")
			return req.WithContext(httpx.WithIdentity(req.Context(), sessionx.Identity{UserID: user}))
		}

		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, as("alice"))
		require.Equal(t, http.StatusOK, rec.Code)

		rec = httptest.NewRecorder()
		limited.ServeHTTP(rec, as("alice"))
		require.Equal(t, http.StatusTooManyRequests, rec.Code)

		rec = httptest.NewRecorder()
		limited.ServeHTTP(rec, as("bob"))
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("user bucket survives address changes", func(t *testing.T) {
		limited := httpx.RateLimitByUser(httpx.RateLimitConfig{
			RequestsPerWindow: 2,
			Window:            time.Minute,
			Burst:             2,
		})(okHandler)

		var limitedCount int
		for i := range 10 {
			req := requestFrom(fmt.Sprintf("203.0.113.%d", i+1))
			req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i+1))
			req = req.WithContext(httpx.WithIdentity(req.Context(), sessionx.Identity{UserID: "alice"}))

			rec := httptest.NewRecorder()
			limited.ServeHTTP(rec, req)
			if rec.Code == http.StatusTooManyRequests {
				limitedCount++
			}
		}
		require.Equal(t, 8, limitedCount)
	})
}

func TestParseRateLimitFromEnv(t *testing.T) {
	t.Setenv("RATELIMIT_TEST_REQUESTS", "7")
	t.Setenv("RATELIMIT_TEST_WINDOW_SEC", "30")
	t.Setenv("RATELIMIT_TEST_BURST", "-2")

	cfg := httpx.ParseRateLimitFromEnv("TEST", httpx.StrictLimit)
	require.Equal(t, 7, cfg.RequestsPerWindow)
	require.Equal(t, 30*time.Second, cfg.Window)
	require.Equal(t, httpx.StrictLimit.Burst, cfg.Burst)
}
