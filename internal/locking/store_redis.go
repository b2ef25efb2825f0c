package locking

import (
	"context"
	"fmt"
	"time"

	"courtside/pkg/clock"
	"courtside/pkg/model"

	"github.com/go-redis/redis/v8"
)

// releaseScript deletes the key only when it still holds our owner token, so
// a holder whose lock expired cannot delete a successor's lock.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisStore implements Store with SET NX PX: Redis expires the key itself,
// so absent-or-expired collapses into plain SET NX.
type RedisStore struct {
	client *redis.Client
	clk    clock.Clock
}

func NewRedisStore(client *redis.Client, clk clock.Clock) *RedisStore {
	return &RedisStore{client: client, clk: clk}
}

func (s *RedisStore) Insert(ctx context.Context, lock *model.Lock) (bool, error) {
	ttl := lock.ExpiresAt.Sub(lock.AcquiredAt)
	if ttl <= 0 {
		ttl = time.Millisecond
	}

	ok, err := s.client.SetNX(ctx, lock.Key, lock.Owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return ok, nil
}

func (s *RedisStore) DeleteOwned(ctx context.Context, key, owner string) (bool, error) {
	deleted, err := releaseScript.Run(ctx, s.client, []string{key}, owner).Int()
	if err != nil {
		return false, fmt.Errorf("redis release: %w", err)
	}
	return deleted > 0, nil
}
