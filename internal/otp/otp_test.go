package otp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestGenerateCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := GenerateCode()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("expected 6 digits, got %q", code)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("non-digit in code %q", code)
			}
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Fatal("codes do not vary")
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore(5 * time.Minute)
	ctx := context.Background()

	code, err := s.Issue(ctx, PurposeSignup, "alice@example.com", "payload-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := s.Verify(ctx, PurposeSignup, "alice@example.com", "000000"); !errors.Is(err, ErrCodeMismatch) {
		t.Fatalf("expected ErrCodeMismatch, got %v", err)
	}

	payload, err := s.Verify(ctx, PurposeSignup, "alice@example.com", code)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if payload != "payload-1" {
		t.Fatalf("expected payload-1, got %q", payload)
	}

	// Single use.
	if _, err := s.Verify(ctx, PurposeSignup, "alice@example.com", code); !errors.Is(err, ErrNoPending) {
		t.Fatalf("expected ErrNoPending after consumption, got %v", err)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	s := NewMemoryStore(5 * time.Minute)
	now := time.Now()
	s.now = func() time.Time { return now }
	ctx := context.Background()

	code, err := s.Issue(ctx, PurposePasswordReset, "alice@example.com", "")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	now = now.Add(5*time.Minute + time.Second)
	if _, err := s.Verify(ctx, PurposePasswordReset, "alice@example.com", code); !errors.Is(err, ErrNoPending) {
		t.Fatalf("expected ErrNoPending after expiry, got %v", err)
	}
}

func TestMemoryStorePurposesIsolated(t *testing.T) {
	s := NewMemoryStore(5 * time.Minute)
	ctx := context.Background()

	code, err := s.Issue(ctx, PurposeSignup, "alice@example.com", "")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := s.Verify(ctx, PurposePasswordReset, "alice@example.com", code); !errors.Is(err, ErrNoPending) {
		t.Fatalf("expected ErrNoPending for other purpose, got %v", err)
	}
}

func TestRedisStoreRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	s := NewRedisStore(client, 5*time.Minute)
	ctx := context.Background()

	code, err := s.Issue(ctx, PurposeEmailChange, "u-1", "new@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := s.Verify(ctx, PurposeEmailChange, "u-1", "wrong"); !errors.Is(err, ErrCodeMismatch) {
		t.Fatalf("expected ErrCodeMismatch, got %v", err)
	}

	payload, err := s.Verify(ctx, PurposeEmailChange, "u-1", code)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if payload != "new@example.com" {
		t.Fatalf("expected stored payload, got %q", payload)
	}

	if _, err := s.Verify(ctx, PurposeEmailChange, "u-1", code); !errors.Is(err, ErrNoPending) {
		t.Fatalf("expected ErrNoPending after consumption, got %v", err)
	}
}

func TestRedisStoreExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	s := NewRedisStore(client, time.Minute)
	ctx := context.Background()

	code, err := s.Issue(ctx, PurposeSignup, "bob@example.com", "")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	mr.FastForward(2 * time.Minute)
	if _, err := s.Verify(ctx, PurposeSignup, "bob@example.com", code); !errors.Is(err, ErrNoPending) {
		t.Fatalf("expected ErrNoPending after TTL, got %v", err)
	}
}

func TestRedisStoreReissueReplaces(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	s := NewRedisStore(client, time.Minute)
	ctx := context.Background()

	first, err := s.Issue(ctx, PurposeSignup, "bob@example.com", "")
	if err != nil {
		t.Fatalf("first issue: %v", err)
	}
	second, err := s.Issue(ctx, PurposeSignup, "bob@example.com", "")
	if err != nil {
		t.Fatalf("second issue: %v", err)
	}
	if first == second {
		t.Skip("codes collided, cannot distinguish replacement")
	}

	if _, err := s.Verify(ctx, PurposeSignup, "bob@example.com", first); !errors.Is(err, ErrCodeMismatch) {
		t.Fatalf("expected old code rejected, got %v", err)
	}
	if _, err := s.Verify(ctx, PurposeSignup, "bob@example.com", second); err != nil {
		t.Fatalf("expected new code accepted, got %v", err)
	}
}
