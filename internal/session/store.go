package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound indicates the session does not exist or has expired.
var ErrNotFound = errors.New("session not found")

const keyPrefix = "pos:session:"

// Store persists sessions between requests.
type Store interface {
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

// RedisStore keeps sessions as JSON documents with a sliding TTL.
type RedisStore struct {
	Client *redis.Client
	TTL    time.Duration
}

func (r RedisStore) ttl() time.Duration {
	if r.TTL <= 0 {
		return 12 * time.Hour
	}
	return r.TTL
}

func redisKey(id string) string { return keyPrefix + id }

// Load implements Store. A successful read extends the expiry.
func (r RedisStore) Load(ctx context.Context, id string) (*Session, error) {
	if r.Client == nil {
		return nil, errors.New("session: redis client not configured")
	}
	data, err := r.Client.Get(ctx, redisKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	s, err := decode(data)
	if err != nil {
		return nil, err
	}
	if err := r.Client.Expire(ctx, redisKey(id), r.ttl()).Err(); err != nil {
		return nil, fmt.Errorf("touch session: %w", err)
	}
	return s, nil
}

// Save implements Store.
func (r RedisStore) Save(ctx context.Context, s *Session) error {
	if r.Client == nil {
		return errors.New("session: redis client not configured")
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.Client.Set(ctx, redisKey(s.ID), data, r.ttl()).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Delete implements Store.
func (r RedisStore) Delete(ctx context.Context, id string) error {
	if r.Client == nil {
		return errors.New("session: redis client not configured")
	}
	n, err := r.Client.Del(ctx, redisKey(id)).Result()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// MemoryStore is a process-local Store for tests and single-terminal setups.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string][]byte{}}
}

// Load implements Store.
func (m *MemoryStore) Load(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	data, ok := m.data[id]
	m.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	return decode(data)
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	m.mu.Lock()
	m.data[s.ID] = data
	m.mu.Unlock()
	return nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[id]; !ok {
		return ErrNotFound
	}
	delete(m.data, id)
	return nil
}

func decode(data []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if s.Cart == nil {
		return nil, errors.New("decode session: cart missing")
	}
	return &s, nil
}
