package replay

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisGuard is a Guard shared across instances, backed by Redis
// SET NX with a TTL. Redis performs the check-and-set atomically, so
// admission stays linearizable across the whole fleet.
type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisGuard connects to Redis at addr and verifies the connection.
func NewRedisGuard(addr string, ttl time.Duration) (*RedisGuard, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisGuard{client: client, ttl: ttl}, nil
}

// Admit implements Guard. A Redis failure is returned as an error, not
// as acceptance: an undecidable admission must never let a proof through.
func (g *RedisGuard) Admit(ctx context.Context, nonce string) (bool, error) {
	accepted, err := g.client.SetNX(ctx, "x402:nonce:"+nonce, 1, g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("replay guard unavailable: %w", err)
	}
	return accepted, nil
}

// Close releases the Redis connection pool.
func (g *RedisGuard) Close() error {
	return g.client.Close()
}
