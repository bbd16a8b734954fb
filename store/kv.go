package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/praveen-sk-07/codegen-code-hub/internal/clock"
)

// ErrNotFound is returned by a KV when the requested key has no value.
var ErrNotFound = errors.New("key not found")

// ErrUnavailable is returned when the backing store cannot be reached.
var ErrUnavailable = errors.New("store unavailable")

// KV is a minimal byte-oriented key-value scope. Both session scopes
// (ephemeral and persistent) are expressed as a KV so the reconciling
// Store can treat them uniformly.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryKV is an in-process KV. It backs the ephemeral scope, whose
// contents live only as long as the process, and the persistent scope
// in tests.
type MemoryKV struct {
	mu    sync.RWMutex
	data  map[string]memoryEntry
	clock clock.Clock
}

// NewMemoryKV returns an empty MemoryKV. A nil clk means the system clock.
func NewMemoryKV(clk clock.Clock) *MemoryKV {
	if clk == nil {
		clk = clock.System{}
	}
	return &MemoryKV{
		data:  make(map[string]memoryEntry),
		clock: clk,
	}
}

// Get returns the value stored under key, or ErrNotFound. Entries past
// their TTL read as absent.
func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	entry, ok := m.data[key]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	if !entry.expiresAt.IsZero() && !m.clock.Now().Before(entry.expiresAt) {
		m.mu.Lock()
		// The key may have been rewritten between the two locks;
		// only evict it if the current entry is still expired.
		if cur, ok := m.data[key]; ok &&
			!cur.expiresAt.IsZero() && !m.clock.Now().Before(cur.expiresAt) {
			delete(m.data, key)
		}
		m.mu.Unlock()
		return nil, ErrNotFound
	}

	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, nil
}

// Set stores value under key. A ttl of zero means no expiry.
func (m *MemoryKV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	entry := memoryEntry{value: make([]byte, len(value))}
	copy(entry.value, value)
	if ttl > 0 {
		entry.expiresAt = m.clock.Now().Add(ttl)
	}

	m.mu.Lock()
	m.data[key] = entry
	m.mu.Unlock()
	return nil
}

// Del removes key. Deleting an absent key is not an error.
func (m *MemoryKV) Del(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

// RedisKV is a Redis-backed KV used for the persistent scope, where
// session state must survive process restarts.
type RedisKV struct {
	client redis.UniversalClient
}

// NewRedisKV wraps client as a KV.
func NewRedisKV(client redis.UniversalClient) *RedisKV {
	return &RedisKV{client: client}
}

// Get returns the value stored under key, or ErrNotFound.
func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return data, nil
}

// Set stores value under key with the given TTL. A ttl of zero means
// no expiry.
func (r *RedisKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Del removes key. Deleting an absent key is not an error.
func (r *RedisKV) Del(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
