package ratelimit

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	limiter "github.com/ulule/limiter/v3"

	"github.com/noah-isme/backend-pos/internal/common"
)

// Limiter decides whether another request for key fits in the window.
type Limiter interface {
	Allow(ctx context.Context, key string, window time.Duration, max int) (allowed bool, remaining int, reset time.Time, err error)
}

// Config describes how to derive a rate limit key and thresholds.
type Config struct {
	Key    func(*http.Request) string
	Window time.Duration
	Max    int
}

// ConfigFromRate builds a Config from a formatted rate such as "600-M".
func ConfigFromRate(formatted string, key func(*http.Request) string) (Config, error) {
	rate, err := limiter.NewRateFromFormatted(strings.TrimSpace(formatted))
	if err != nil {
		return Config{}, err
	}
	return Config{Key: key, Window: rate.Period, Max: int(rate.Limit)}, nil
}

// Handler rejects requests over the configured rate with 429 RATE_LIMITED.
// Limiter failures are reported to OnError and let the request through so a
// Redis outage does not stop the tills.
type Handler struct {
	Limiter Limiter
	Config  Config
	OnError func(error)
}

// Middleware implements the http.Handler middleware interface.
func (h Handler) Middleware(next http.Handler) http.Handler {
	if h.Limiter == nil || h.Config.Key == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, remaining, resetAt, err := h.Limiter.Allow(r.Context(), h.Config.Key(r), h.Config.Window, h.Config.Max)
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}
		writeLimitHeaders(w.Header(), max(h.Config.Max, 0), remaining, resetAt)
		if allowed {
			next.ServeHTTP(w, r)
			return
		}
		wait := int(time.Until(resetAt).Round(time.Second) / time.Second)
		w.Header().Set("Retry-After", strconv.Itoa(max(wait, 0)))
		common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests from this terminal", nil)
	})
}

func writeLimitHeaders(h http.Header, limit, remaining int, reset time.Time) {
	h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
}

// TerminalHeader carries the id of the till or tablet issuing the request.
const TerminalHeader = "X-Terminal-ID"

// KeyByTerminal keys requests by the terminal header so staff sharing a login
// across tills get separate budgets. Without the header it behaves like
// KeyByUserOrIP.
func KeyByTerminal(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(TerminalHeader)); id != "" {
		return "terminal:" + id
	}
	return KeyByUserOrIP(r)
}

// KeyByUserOrIP keys requests by the authenticated staff member, falling back
// to the client address for anonymous calls.
func KeyByUserOrIP(r *http.Request) string {
	if id, ok := common.UserID(r.Context()); ok && id != "" {
		return "user:" + id
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
