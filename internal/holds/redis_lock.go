package holds

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker coordinates sweeper replicas so a tick normally runs on one of them.
// Sweeps stay correct without it; the lock only avoids duplicate work.
type Locker interface {
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
}

// Lua script releasing the lock only if this replica still owns it
var luaCompareAndDelete = redis.NewScript(`
-- KEYS[1] = lock key
-- ARGV[1] = owner token
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLock is a single-key lease held with SET NX PX
type RedisLock struct {
	redis *redis.Client
	key   string
	ttl   time.Duration
	token string
}

func NewRedisLock(client *redis.Client, key string, ttl time.Duration) *RedisLock {
	return &RedisLock{
		redis: client,
		key:   key,
		ttl:   ttl,
		token: uuid.NewString(),
	}
}

func (l *RedisLock) TryLock(ctx context.Context) (bool, error) {
	ok, err := l.redis.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire sweeper lock: %w", err)
	}
	return ok, nil
}

func (l *RedisLock) Unlock(ctx context.Context) error {
	if err := luaCompareAndDelete.Run(ctx, l.redis, []string{l.key}, l.token).Err(); err != nil {
		return fmt.Errorf("failed to release sweeper lock: %w", err)
	}
	return nil
}

// PreloadScripts loads the release script into the Redis script cache
func (l *RedisLock) PreloadScripts(ctx context.Context) error {
	if err := luaCompareAndDelete.Load(ctx, l.redis).Err(); err != nil {
		return fmt.Errorf("failed to preload lock script: %w", err)
	}
	return nil
}
