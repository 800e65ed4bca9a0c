package obs

import (
	"context"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/backend-pos/internal/common"
)

// NewLogger configures a zerolog logger using the provided format and level.
func NewLogger(format, level string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	writer := os.Stdout
	var out io.Writer = writer
	if strings.ToLower(strings.TrimSpace(format)) == "console" || strings.ToLower(strings.TrimSpace(format)) == "text" {
		out = zerolog.ConsoleWriter{Out: writer, TimeFormat: time.RFC3339}
	}
	logger := zerolog.New(out).With().Timestamp().Logger()
	return logger
}

// Ctx returns logger enriched with the request, trace and staff identifiers
// found on ctx.
func Ctx(ctx context.Context, logger zerolog.Logger) *zerolog.Logger {
	lc := logger.With()
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		lc = lc.Str("request_id", reqID)
	}
	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
		lc = lc.Str("trace_id", spanCtx.TraceID().String())
	}
	if userID, ok := common.UserID(ctx); ok && userID != "" {
		lc = lc.Str("user_id", userID)
	}
	l := lc.Logger()
	return &l
}

// RequestLogger writes one structured line per request, including the route
// params that identify the session, line or order being touched.
type RequestLogger struct {
	Logger zerolog.Logger
}

// Middleware implements chi middleware for structured request logs.
func (l RequestLogger) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		status := statusOf(ww)
		evt := l.Logger.Info()
		switch {
		case status >= http.StatusInternalServerError:
			evt = l.Logger.Error()
		case status == http.StatusConflict || status == http.StatusTooManyRequests:
			evt = l.Logger.Warn()
		}
		evt = evt.
			Str("method", r.Method).
			Str("route", routeOf(r, r.URL.Path)).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Int("bytes", ww.BytesWritten())
		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			evt = evt.Str("request_id", reqID)
		}
		if sc := trace.SpanContextFromContext(r.Context()); sc.IsValid() {
			evt = evt.Str("trace_id", sc.TraceID().String()).Str("span_id", sc.SpanID().String())
		}
		if rctx := chi.RouteContext(r.Context()); rctx != nil && len(rctx.URLParams.Keys) > 0 {
			params := zerolog.Dict()
			for i, key := range rctx.URLParams.Keys {
				if i < len(rctx.URLParams.Values) {
					params = params.Str(key, rctx.URLParams.Values[i])
				}
			}
			evt = evt.Dict("params", params)
		}
		if key := strings.TrimSpace(r.Header.Get("Idempotency-Key")); key != "" {
			evt = evt.Str("idempotency_key", key)
		}
		if userID, ok := common.UserID(r.Context()); ok && userID != "" {
			evt = evt.Str("user_id", userID)
		}
		if role, ok := common.Role(r.Context()); ok {
			evt = evt.Str("role", role)
		}
		evt.Str("remote_addr", r.RemoteAddr).Msg("http_request")
	})
}
