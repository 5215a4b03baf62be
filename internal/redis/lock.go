package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/hackgods/ward-dashboard/internal/beds"
)

// ErrLockNotAcquired is beds.ErrLockNotAcquired so callers match one sentinel.
var ErrLockNotAcquired = beds.ErrLockNotAcquired

type redisBedLocker struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisBedLocker creates a locker that uses a per bed Redis key, shared by
// every dashboard replica pointing at the same Redis.
func NewRedisBedLocker(client *redis.Client, ttl time.Duration) beds.Locker {
	return &redisBedLocker{
		client: client,
		prefix: "lock:bed:",
		ttl:    ttl,
	}
}

func (l *redisBedLocker) WithBedLock(ctx context.Context, bedID string, fn func(ctx context.Context) error) error {
	key := l.prefix + bedID
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire bed lock: %w", err)
	}
	if !ok {
		return ErrLockNotAcquired
	}

	defer func() {
		// release even when ctx was cancelled mid-flight
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		_ = l.release(releaseCtx, key, token)
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisBedLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release bed lock: %w", err)
	}
	return nil
}
