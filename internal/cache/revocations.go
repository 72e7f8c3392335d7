// Package cache holds the Redis-backed session revocation denylist.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/tendant/simple-projects/internal/config"
)

const revokedKeyPrefix = "revoked_session:"

// NewRedisClient creates a Redis client and verifies connectivity.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	logger.Info("redis client connected", "addr", cfg.Addr)
	return rdb, nil
}

// Revocations records logged-out session ids until their token would have
// expired anyway.
type Revocations struct {
	rdb redis.Cmdable
}

// NewRevocations creates a denylist on rdb.
func NewRevocations(rdb redis.Cmdable) *Revocations {
	return &Revocations{rdb: rdb}
}

// Revoke marks sessionID revoked for ttl.
func (r *Revocations) Revoke(ctx context.Context, sessionID uuid.UUID, ttl time.Duration) error {
	if err := r.rdb.Set(ctx, revokedKey(sessionID), 1, ttl).Err(); err != nil {
		return fmt.Errorf("cache revocation: %w", err)
	}
	return nil
}

// IsRevoked reports whether sessionID is on the denylist.
func (r *Revocations) IsRevoked(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	n, err := r.rdb.Exists(ctx, revokedKey(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("check revocation: %w", err)
	}
	return n > 0, nil
}

func revokedKey(sessionID uuid.UUID) string {
	return revokedKeyPrefix + sessionID.String()
}
