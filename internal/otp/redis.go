package otp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "otp:v1:"

type entry struct {
	Code    string `json:"code"`
	Payload string `json:"payload"`
}

// RedisStore keeps pending codes in Redis, relying on key TTL for expiry.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore builds a Redis-backed code store with the given code lifetime.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func storeKey(purpose, subject string) string {
	return keyPrefix + purpose + ":" + subject
}

func (s *RedisStore) Issue(ctx context.Context, purpose, subject, payload string) (string, error) {
	code, err := GenerateCode()
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(entry{Code: code, Payload: payload})
	if err != nil {
		return "", err
	}
	// Set unconditionally: re-issuing replaces the old code and restarts TTL.
	if err := s.client.Set(ctx, storeKey(purpose, subject), raw, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store otp: %w", err)
	}
	return code, nil
}

func (s *RedisStore) Verify(ctx context.Context, purpose, subject, code string) (string, error) {
	key := storeKey(purpose, subject)
	raw, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoPending
	}
	if err != nil {
		return "", fmt.Errorf("load otp: %w", err)
	}
	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return "", fmt.Errorf("decode otp: %w", err)
	}
	if e.Code != code {
		return "", ErrCodeMismatch
	}
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return "", fmt.Errorf("consume otp: %w", err)
	}
	return e.Payload, nil
}
