package otp

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	code      string
	payload   string
	expiresAt time.Time
}

// MemoryStore is an in-memory Store for tests and development.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	pending map[string]memoryEntry
}

// NewMemoryStore builds an in-memory code store.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, now: time.Now, pending: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Issue(_ context.Context, purpose, subject, payload string) (string, error) {
	code, err := GenerateCode()
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[storeKey(purpose, subject)] = memoryEntry{
		code:      code,
		payload:   payload,
		expiresAt: s.now().Add(s.ttl),
	}
	return code, nil
}

func (s *MemoryStore) Verify(_ context.Context, purpose, subject, code string) (string, error) {
	key := storeKey(purpose, subject)
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.pending[key]
	if !ok || s.now().After(e.expiresAt) {
		delete(s.pending, key)
		return "", ErrNoPending
	}
	if e.code != code {
		return "", ErrCodeMismatch
	}
	delete(s.pending, key)
	return e.payload, nil
}
