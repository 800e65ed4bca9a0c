package security_test

import (
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/security"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestHeadersOnAPI(t *testing.T) {
	handler := security.Headers{HSTSMaxAge: 600}.Middleware(ok)

	req := httptest.NewRequest(http.MethodGet, "https://pos.local/api/v1/sessions/s1", nil)
	req.TLS = &tls.ConnectionState{}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	require.Equal(t, "max-age=600", rr.Header().Get("Strict-Transport-Security"))
}

func TestHeadersOutsideAPI(t *testing.T) {
	rr := httptest.NewRecorder()
	security.Headers{HSTSMaxAge: 600}.Middleware(ok).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Empty(t, rr.Header().Get("Cache-Control"))
	require.Empty(t, rr.Header().Get("Strict-Transport-Security"))
}

func TestBodyLimit(t *testing.T) {
	var captured string
	handler := security.BodyLimit{Max: 10}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		captured = string(data)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/sessions", strings.NewReader(`{"a":1}`)))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, `{"a":1}`, captured)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/sessions", strings.NewReader(`{"quantity":12345}`)))
	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	require.Contains(t, rr.Body.String(), "PAYLOAD_TOO_LARGE")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", strings.NewReader("tiny"))
	req.ContentLength = 100
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestBodyLimitDisabled(t *testing.T) {
	handler := security.BodyLimit{}.Middleware(ok)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 1<<16))))
	require.Equal(t, http.StatusOK, rr.Code)
}
