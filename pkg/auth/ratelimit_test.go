package auth

import (
	"context"
	"errors"
	"testing"
)

func tieredPrincipal(name, tier string) *Principal {
	p := authenticatedPrincipal(name)
	if tier != "" {
		p.Claims = append(p.Claims, Claim{Type: ClaimTier, Value: tier})
	}
	return p
}

func TestInProcessLimiter_EnforcesTierLimit(t *testing.T) {
	limiter := NewInProcessLimiter(map[string]TierConfig{
		"free": {RequestsPerMinute: 3},
	}, 100)
	p := tieredPrincipal("alice", "free")

	for i := 0; i < 3; i++ {
		if err := limiter.Allow(context.Background(), p); err != nil {
			t.Fatalf("request %d: %v, want allowed", i+1, err)
		}
	}
	if err := limiter.Allow(context.Background(), p); !errors.Is(err, ErrTooManyRequests) {
		t.Errorf("err = %v, want ErrTooManyRequests", err)
	}
}

func TestInProcessLimiter_DefaultTier(t *testing.T) {
	limiter := NewInProcessLimiter(nil, 1)
	p := tieredPrincipal("alice", "")

	if err := limiter.Allow(context.Background(), p); err != nil {
		t.Fatalf("first request: %v, want allowed", err)
	}
	if err := limiter.Allow(context.Background(), p); !errors.Is(err, ErrTooManyRequests) {
		t.Errorf("err = %v, want ErrTooManyRequests", err)
	}
}

func TestInProcessLimiter_ZeroRPMDisablesLimit(t *testing.T) {
	limiter := NewInProcessLimiter(map[string]TierConfig{
		"unlimited": {RequestsPerMinute: 0},
	}, 1)
	p := tieredPrincipal("alice", "unlimited")

	for i := 0; i < 10; i++ {
		if err := limiter.Allow(context.Background(), p); err != nil {
			t.Fatalf("request %d: %v, want allowed (no limit)", i+1, err)
		}
	}
}

func TestInProcessLimiter_PrincipalsCountedSeparately(t *testing.T) {
	limiter := NewInProcessLimiter(map[string]TierConfig{
		"free": {RequestsPerMinute: 1},
	}, 100)

	alice := tieredPrincipal("alice", "free")
	bob := tieredPrincipal("bob", "free")

	if err := limiter.Allow(context.Background(), alice); err != nil {
		t.Fatalf("alice: %v, want allowed", err)
	}
	if err := limiter.Allow(context.Background(), alice); !errors.Is(err, ErrTooManyRequests) {
		t.Errorf("alice second request: err = %v, want ErrTooManyRequests", err)
	}
	// Alice hitting her limit must not affect bob.
	if err := limiter.Allow(context.Background(), bob); err != nil {
		t.Errorf("bob: %v, want allowed", err)
	}
}
