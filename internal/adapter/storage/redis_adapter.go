package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/inventory-metafields/internal/port"
)

var releaseLockScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

var extendLockScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return 0
`)

// RedisAdapter implements port.LockRepository so that reconcilers in
// different processes never run at the same time.
type RedisAdapter struct {
	client *redis.Client
}

var _ port.LockRepository = (*RedisAdapter)(nil)

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, owner, ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (r *RedisAdapter) Extend(ctx context.Context, key, owner string, ttl time.Duration) error {
	result, err := extendLockScript.Run(ctx, r.client, []string{key}, owner, ttl.Milliseconds()).Int()
	if err != nil {
		return err
	}
	if result == 0 {
		return port.ErrLockHeld
	}

	return nil
}

func (r *RedisAdapter) Release(ctx context.Context, key, owner string) error {
	return releaseLockScript.Run(ctx, r.client, []string{key}, owner).Err()
}
