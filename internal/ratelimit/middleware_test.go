package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/noah-isme/backend-pos/internal/common"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestHandlerMiddlewareEnforcesLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	handler := Handler{
		Limiter: SlidingWindow{Client: client, Prefix: "pos:ratelimit:"},
		Config: Config{
			Key:    func(*http.Request) string { return "static" },
			Window: time.Second,
			Max:    1,
		},
	}
	counted := handler.Middleware(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rr1 := httptest.NewRecorder()
	counted.ServeHTTP(rr1, req.Clone(req.Context()))
	require.Equal(t, http.StatusOK, rr1.Code)

	rr2 := httptest.NewRecorder()
	counted.ServeHTTP(rr2, req.Clone(req.Context()))
	require.Equal(t, http.StatusTooManyRequests, rr2.Code)
	require.Equal(t, "1", rr2.Header().Get("X-RateLimit-Limit"))
	require.Contains(t, rr2.Body.String(), "RATE_LIMITED")
}

func TestStoreLimiterWithMemoryStore(t *testing.T) {
	cfg, err := ConfigFromRate("2-M", KeyByUserOrIP)
	require.NoError(t, err)
	require.Equal(t, time.Minute, cfg.Window)
	require.Equal(t, 2, cfg.Max)

	handler := Handler{Limiter: StoreLimiter{Store: memory.NewStore()}, Config: cfg}
	counted := handler.Middleware(okHandler())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil)
		req = req.WithContext(common.WithUserID(req.Context(), "cashier-1"))
		rr := httptest.NewRecorder()
		counted.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	require.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	other := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil)
	other = other.WithContext(common.WithUserID(other.Context(), "cashier-2"))
	rr := httptest.NewRecorder()
	counted.ServeHTTP(rr, other)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestConfigFromRateRejectsGarbage(t *testing.T) {
	_, err := ConfigFromRate("lots", KeyByUserOrIP)
	require.Error(t, err)
}

func TestKeyByUserOrIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.7:5123"
	require.Equal(t, "ip:10.0.0.7", KeyByUserOrIP(req))

	req = req.WithContext(common.WithUserID(context.Background(), "u-9"))
	require.Equal(t, "user:u-9", KeyByUserOrIP(req))
}

func TestKeyByTerminalPrefersHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.7:5123"
	req = req.WithContext(common.WithUserID(req.Context(), "cashier-1"))
	require.Equal(t, "user:cashier-1", KeyByTerminal(req))

	req.Header.Set(TerminalHeader, " till-3 ")
	require.Equal(t, "terminal:till-3", KeyByTerminal(req))
}

func TestHandlerSetsRetryAfter(t *testing.T) {
	handler := Handler{
		Limiter: StoreLimiter{Store: memory.NewStore()},
		Config:  Config{Key: func(*http.Request) string { return "till" }, Window: time.Minute, Max: 1},
	}
	counted := handler.Middleware(okHandler())
	counted.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	rr := httptest.NewRecorder()
	counted.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	require.Equal(t, "0", rr.Header().Get("X-RateLimit-Remaining"))
	require.NotEmpty(t, rr.Header().Get("Retry-After"))
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string, time.Duration, int) (bool, int, time.Time, error) {
	return false, 0, time.Time{}, context.DeadlineExceeded
}

func TestHandlerMiddlewareOnError(t *testing.T) {
	called := false
	handler := Handler{
		Limiter: failingLimiter{},
		Config:  Config{Key: func(*http.Request) string { return "err" }, Window: time.Second, Max: 1},
		OnError: func(error) { called = true },
	}

	rr := httptest.NewRecorder()
	handler.Middleware(okHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/test", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, called)
}
