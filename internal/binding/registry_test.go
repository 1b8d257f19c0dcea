package binding

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/immunode/biovault/internal/signing"
)

func testWallet(t *testing.T) signing.Address {
	t.Helper()
	addr, err := signing.ParseAddress("0x1111111111111111111111111111111111111111")
	if err != nil {
		t.Fatalf("parse address: %v", err)
	}
	return addr
}

func TestBindFirstWriteWins(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()
	wallet := testWallet(t)

	if _, found, err := reg.Lookup(ctx, wallet); err != nil || found {
		t.Fatalf("expected no binding, found=%v err=%v", found, err)
	}

	if err := reg.Bind(ctx, wallet, "subject-1"); err != nil {
		t.Fatalf("first bind: %v", err)
	}

	identity, found, err := reg.Lookup(ctx, wallet)
	if err != nil || !found {
		t.Fatalf("lookup after bind: found=%v err=%v", found, err)
	}
	if identity != "subject-1" {
		t.Fatalf("expected subject-1, got %s", identity)
	}

	// Same identity again is an idempotent no-op.
	if err := reg.Bind(ctx, wallet, "subject-1"); err != nil {
		t.Fatalf("rebind same identity: %v", err)
	}

	// A different identity must be rejected, not overwritten.
	if err := reg.Bind(ctx, wallet, "subject-2"); !errors.Is(err, ErrIdentityMismatch) {
		t.Fatalf("expected identity mismatch, got %v", err)
	}

	identity, _, err = reg.Lookup(ctx, wallet)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if identity != "subject-1" {
		t.Fatalf("binding was overwritten to %s", identity)
	}
}

func TestBindConcurrentWriters(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()
	wallet := testWallet(t)

	identities := []string{"subject-a", "subject-b", "subject-c", "subject-d"}
	errs := make([]error, len(identities))

	var wg sync.WaitGroup
	for i, id := range identities {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			errs[i] = reg.Bind(ctx, wallet, id)
		}(i, id)
	}
	wg.Wait()

	winner, found, err := reg.Lookup(ctx, wallet)
	if err != nil || !found {
		t.Fatalf("lookup winner: found=%v err=%v", found, err)
	}

	succeeded := 0
	for i, bindErr := range errs {
		switch {
		case bindErr == nil:
			succeeded++
			if identities[i] != winner {
				t.Fatalf("writer %s succeeded but %s is recorded", identities[i], winner)
			}
		case errors.Is(bindErr, ErrIdentityMismatch):
		default:
			t.Fatalf("unexpected bind error: %v", bindErr)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one winning writer, got %d", succeeded)
	}
}
