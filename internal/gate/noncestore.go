package gate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const noncePrefix = "authnonce:v1:"

// NonceStore records issued authorization nonces and consumes each at most
// once. A nonce that cannot be consumed means the callback is a replay, a
// forgery, or arrived after the TTL.
type NonceStore interface {
	Issue(ctx context.Context, nonce string, ttl time.Duration) error
	Consume(ctx context.Context, nonce string) (bool, error)
}

// RedisNonceStore keeps nonces in Redis so callbacks survive process
// restarts and multiple gate replicas agree on single use.
type RedisNonceStore struct {
	cache *redis.Client
}

// NewRedisNonceStore builds a Redis-backed nonce store.
func NewRedisNonceStore(cache *redis.Client) *RedisNonceStore {
	return &RedisNonceStore{cache: cache}
}

// Issue records the nonce with a TTL.
func (s *RedisNonceStore) Issue(ctx context.Context, nonce string, ttl time.Duration) error {
	ok, err := s.cache.SetNX(ctx, noncePrefix+nonce, "1", ttl).Result()
	if err != nil {
		return fmt.Errorf("issue nonce: %w", err)
	}
	if !ok {
		return fmt.Errorf("nonce %s already issued", nonce)
	}
	return nil
}

// Consume deletes the nonce, reporting whether it existed. Deletion and the
// existence check are one atomic operation.
func (s *RedisNonceStore) Consume(ctx context.Context, nonce string) (bool, error) {
	deleted, err := s.cache.Del(ctx, noncePrefix+nonce).Result()
	if err != nil {
		return false, fmt.Errorf("consume nonce: %w", err)
	}
	return deleted > 0, nil
}

// memoryNonceStore is the in-process fallback for tests.
type memoryNonceStore struct {
	mu     sync.Mutex
	nonces map[string]time.Time
}

// NewMemoryNonceStore constructs an in-memory nonce store for tests.
func NewMemoryNonceStore() NonceStore {
	return &memoryNonceStore{nonces: make(map[string]time.Time)}
}

func (s *memoryNonceStore) Issue(_ context.Context, nonce string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.nonces[nonce]; exists {
		return fmt.Errorf("nonce %s already issued", nonce)
	}
	s.nonces[nonce] = time.Now().Add(ttl)
	return nil
}

func (s *memoryNonceStore) Consume(_ context.Context, nonce string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	expiry, exists := s.nonces[nonce]
	if !exists {
		return false, nil
	}
	delete(s.nonces, nonce)
	if time.Now().After(expiry) {
		return false, nil
	}
	return true, nil
}
