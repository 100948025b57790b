// Package guard provides the Redis-backed recent-push guard. The guard is a
// freshness hint, not a correctness mechanism, so Redis is used without
// persistence requirements and a cold cache simply means fewer skips.
package guard

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/stocksync/backend/internal/application/stocksync"
	"github.com/stocksync/backend/internal/infrastructure/config"
)

// keyPrefix namespaces guard keys in a shared Redis
const keyPrefix = "stocksync:recent_push"

// RedisPushGuard tracks recently pushed SKUs as TTL'd Redis keys. The TTL is
// the whole mechanism: key present means pushed within the guard window.
type RedisPushGuard struct {
	client *redis.Client
}

// NewRedisPushGuard creates a guard from configuration, verifying the
// connection before returning.
func NewRedisPushGuard(cfg *config.RedisConfig) (*RedisPushGuard, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisPushGuard{client: client}, nil
}

// NewRedisPushGuardWithClient creates a guard with an existing Redis client.
// The caller keeps ownership of the client.
func NewRedisPushGuardWithClient(client *redis.Client) *RedisPushGuard {
	return &RedisPushGuard{client: client}
}

// MarkPushed records a push for (store, SKU) with the guard window as TTL
func (g *RedisPushGuard) MarkPushed(ctx context.Context, storeID uuid.UUID, sku string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return g.client.Set(ctx, guardKey(storeID, sku), time.Now().Unix(), ttl).Err()
}

// RecentlyPushed reports whether (store, SKU) was pushed within the window
func (g *RedisPushGuard) RecentlyPushed(ctx context.Context, storeID uuid.UUID, sku string) (bool, error) {
	n, err := g.client.Exists(ctx, guardKey(storeID, sku)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Close releases the Redis connection
func (g *RedisPushGuard) Close() error {
	return g.client.Close()
}

func guardKey(storeID uuid.UUID, sku string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, storeID, sku)
}

// Ensure RedisPushGuard implements the application port
var _ stocksync.RecentPushGuard = (*RedisPushGuard)(nil)
