package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCooldown tracks time-gated actions in Redis so cooldowns survive
// restarts and are shared across instances.
type RedisCooldown struct {
	client *redis.Client
	prefix string
}

// NewRedisCooldown constructs a Redis-backed cooldown store.
func NewRedisCooldown(client *redis.Client) *RedisCooldown {
	return &RedisCooldown{
		client: client,
		prefix: "veriflow:cooldown:",
	}
}

// Claim marks the key as used for ttl. SETNX with expiry makes the claim
// atomic across concurrent callers.
func (s *RedisCooldown) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.prefix+key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim cooldown %s: %w", key, err)
	}
	return ok, nil
}
