package lock_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/lock"
)

func newLocker(t *testing.T) (lock.Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return lock.Locker{R: client, RetryBackoff: 5 * time.Millisecond}, mr
}

func TestWithLockSerializesSessionMutations(t *testing.T) {
	locker, _ := newLocker(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	key := lock.SessionKey("s-1")
	var (
		mu    sync.Mutex
		order []string
	)
	firstDone := make(chan struct{})
	releaseFirst := make(chan struct{})
	errs := make(chan error, 2)

	go func() {
		errs <- locker.WithLock(ctx, key, time.Second, func(context.Context) error {
			mu.Lock()
			order = append(order, "first")
			mu.Unlock()
			close(firstDone)
			<-releaseFirst
			return nil
		})
	}()

	<-firstDone

	go func() {
		errs <- locker.WithLock(ctx, key, time.Second, func(context.Context) error {
			mu.Lock()
			order = append(order, "second")
			mu.Unlock()
			return nil
		})
	}()

	close(releaseFirst)
	require.NoError(t, <-errs)
	require.NoError(t, <-errs)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"first", "second"}, order)
}

func TestWithLockReleasesOnError(t *testing.T) {
	locker, mr := newLocker(t)
	boom := errors.New("boom")

	err := locker.WithLock(context.Background(), lock.OrderKey("o-1"), time.Second, func(context.Context) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.False(t, mr.Exists(lock.OrderKey("o-1")))
}

func TestWithLockHonoursContext(t *testing.T) {
	locker, mr := newLocker(t)
	require.NoError(t, mr.Set(lock.SessionKey("busy"), "someone-else"))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := locker.WithLock(ctx, lock.SessionKey("busy"), time.Second, func(context.Context) error {
		t.Fatal("callback must not run")
		return nil
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	got, _ := mr.Get(lock.SessionKey("busy"))
	require.Equal(t, "someone-else", got)
}

func TestWithLockRequiresClient(t *testing.T) {
	err := lock.Locker{}.WithLock(context.Background(), "k", time.Second, func(context.Context) error { return nil })
	require.ErrorIs(t, err, lock.ErrNotConfigured)
}

func TestWithLockGivesUpAfterMaxWait(t *testing.T) {
	locker, mr := newLocker(t)
	locker.MaxWait = 20 * time.Millisecond
	require.NoError(t, mr.Set(lock.SessionKey("held"), "terminal-2"))

	err := locker.WithLock(context.Background(), lock.SessionKey("held"), time.Second, func(context.Context) error {
		t.Fatal("callback must not run")
		return nil
	})
	require.ErrorIs(t, err, lock.ErrBusy)
}
