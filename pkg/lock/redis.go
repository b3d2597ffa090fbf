package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "medicare:lock:"

	pollInitialDelay = 10 * time.Millisecond
	pollMaxDelay     = 200 * time.Millisecond
)

// Deletes the key only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a SET NX PX lock shared by every replica pointed at the same
// server. A holder that dies keeps the key for at most ttl.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedis(client redis.UniversalClient, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Lock(ctx context.Context, keys ...string) (func(), error) {
	keys = normalize(keys)
	token := uuid.NewString()
	held := make([]string, 0, len(keys))

	release := func() {
		// The caller's context may already be done; releasing must still run.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		for i := len(held) - 1; i >= 0; i-- {
			_ = releaseScript.Run(ctx, r.client, []string{redisKeyPrefix + held[i]}, token).Err()
		}
		held = held[:0]
	}

	for _, key := range keys {
		if err := r.acquire(ctx, key, token); err != nil {
			release()
			return nil, err
		}
		held = append(held, key)
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}

func (r *Redis) acquire(ctx context.Context, key, token string) error {
	delay := pollInitialDelay
	for {
		ok, err := r.client.SetNX(ctx, redisKeyPrefix+key, token, r.ttl).Result()
		if err != nil && ctx.Err() == nil {
			return fmt.Errorf("acquiring lock %q: %w", key, err)
		}
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return timeoutError(key, ctx.Err())
		case <-time.After(delay):
		}

		delay *= 2
		if delay > pollMaxDelay {
			delay = pollMaxDelay
		}
	}
}
