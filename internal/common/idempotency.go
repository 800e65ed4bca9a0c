package common

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	redis "github.com/redis/go-redis/v9"
)

// Idem rejects replays of write requests carrying the same Idempotency-Key.
// Checkout uses it so a double tap on the till does not create two orders.
// A key is only kept once its request succeeded; failed or panicking requests
// release it so the till can retry with the same key.
type Idem struct {
	R   *redis.Client
	TTL time.Duration
}

func hashKey(scope, key string) string {
	sum := sha256.Sum256([]byte(scope + "|" + key))
	return "pos:idem:" + hex.EncodeToString(sum[:])
}

// Middleware enforces idempotency semantics for write endpoints. Keys are
// scoped per authenticated user when one is present.
func (i Idem) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Idempotency-Key")
		if header == "" || i.R == nil {
			next.ServeHTTP(w, r)
			return
		}
		ttl := i.TTL
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		ctx := r.Context()
		scope, _ := UserID(ctx)
		key := hashKey(scope, header)
		ok, err := i.R.SetNX(ctx, key, "locked", ttl).Result()
		if err != nil {
			JSONError(w, http.StatusInternalServerError, "INTERNAL", "idempotency store error", nil)
			return
		}
		if !ok {
			JSONError(w, http.StatusConflict, "IDEMPOTENT_REPLAY", "duplicate request", nil)
			return
		}
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		completed := false
		defer func() {
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			if !completed || status < 200 || status >= 300 {
				_ = i.R.Del(context.Background(), key).Err()
			}
		}()
		next.ServeHTTP(ww, r)
		completed = true
	})
}
