package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisMutex is a best-effort SETNX lock. It narrows the check-then-act window
// around external side effects (one label purchase per order); the durable
// guards on the lead row remain the source of truth.
type RedisMutex struct {
	client *redis.Client
}

func NewRedisMutex(client *redis.Client) *RedisMutex {
	return &RedisMutex{client: client}
}

func NewRedisClient(addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

// Acquire takes lock:<name> for ttl. ok=false means another invocation holds
// it. An unreachable redis reports the error and the caller decides whether to
// proceed on its durable checks alone.
func (m *RedisMutex) Acquire(ctx context.Context, name string, ttl time.Duration) (ok bool, err error) {
	if m == nil || m.client == nil {
		return true, nil
	}
	return m.client.SetNX(ctx, "lock:"+name, 1, ttl).Result()
}

// Release drops the lock early. Best-effort: the TTL cleans up after crashes.
func (m *RedisMutex) Release(ctx context.Context, name string) {
	if m == nil || m.client == nil {
		return
	}
	m.client.Del(ctx, "lock:"+name)
}
