package gate

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisNonceStoreSingleUse(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	store := NewRedisNonceStore(cache)
	ctx := context.Background()

	if err := store.Issue(ctx, "nonce-1", time.Minute); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := store.Issue(ctx, "nonce-1", time.Minute); err == nil {
		t.Fatal("expected error issuing a duplicate nonce")
	}

	ok, err := store.Consume(ctx, "nonce-1")
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if !ok {
		t.Fatal("expected first consume to succeed")
	}

	ok, err = store.Consume(ctx, "nonce-1")
	if err != nil {
		t.Fatalf("second consume: %v", err)
	}
	if ok {
		t.Fatal("nonce consumed twice")
	}
}

func TestRedisNonceStoreExpiry(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	store := NewRedisNonceStore(cache)
	ctx := context.Background()

	if err := store.Issue(ctx, "nonce-ttl", time.Minute); err != nil {
		t.Fatalf("issue: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	ok, err := store.Consume(ctx, "nonce-ttl")
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if ok {
		t.Fatal("expired nonce was consumed")
	}
}
