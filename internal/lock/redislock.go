package lock

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "pos:lock:"

var (
	// ErrNotConfigured is returned when the locker has no Redis client.
	ErrNotConfigured = errors.New("lock: redis client not configured")
	// ErrBusy is returned when another terminal held the lock for longer than MaxWait.
	ErrBusy = errors.New("lock: resource busy")
)

// SessionKey is the lock key serializing mutations of one order session.
func SessionKey(sessionID string) string {
	return keyPrefix + "session:" + sessionID
}

// OrderKey is the lock key serializing commits against one persisted order.
func OrderKey(orderID string) string {
	return keyPrefix + "order:" + orderID
}

// unlock deletes the key only while it still carries the holder's token.
var unlock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker serializes work on a key across API replicas using SET NX.
type Locker struct {
	R            *redis.Client
	RetryBackoff time.Duration
	// MaxWait bounds how long WithLock polls for a held key. Zero waits until
	// ctx is done.
	MaxWait time.Duration
}

// WithLock runs fn while holding key. The lock expires after ttl if the holder
// dies and is released as soon as fn returns.
func (l Locker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	switch {
	case l.R == nil:
		return ErrNotConfigured
	case fn == nil:
		return errors.New("lock: callback not provided")
	case strings.TrimSpace(key) == "":
		return errors.New("lock: key is required")
	}
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	token, err := l.acquire(ctx, key, ttl)
	if err != nil {
		return err
	}
	defer func() {
		_ = unlock.Run(context.Background(), l.R, []string{key}, token).Err()
	}()
	return fn(ctx)
}

func (l Locker) acquire(ctx context.Context, key string, ttl time.Duration) (string, error) {
	backoff := l.RetryBackoff
	if backoff <= 0 {
		backoff = 25 * time.Millisecond
	}
	var deadline <-chan time.Time
	if l.MaxWait > 0 {
		t := time.NewTimer(l.MaxWait)
		defer t.Stop()
		deadline = t.C
	}
	token := uuid.NewString()
	ticker := time.NewTicker(backoff)
	defer ticker.Stop()
	for {
		ok, err := l.R.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return "", err
		}
		if ok {
			return token, nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-deadline:
			return "", ErrBusy
		case <-ticker.C:
		}
	}
}
