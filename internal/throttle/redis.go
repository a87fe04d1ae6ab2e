package throttle

import (
	"context"

	"github.com/redis/rueidis"
)

// RedisTokenManager keeps the token pool in a redis list so several
// emulator processes share one concurrency budget.
type RedisTokenManager struct {
	client rueidis.Client
	key    string
}

func NewRedisTokenManager(client rueidis.Client, key string) *RedisTokenManager {
	return &RedisTokenManager{
		client: client,
		key:    key,
	}
}

func (r *RedisTokenManager) Acquire(ctx context.Context) error {
	cmd := r.client.B().Lpop().Key(r.key).Build()
	result := r.client.Do(ctx, cmd)

	if err := result.Error(); err != nil {
		if rueidis.IsRedisNil(err) {
			return ErrThrottled
		}
		return err
	}
	return nil
}

func (r *RedisTokenManager) Release(ctx context.Context) error {
	cmd := r.client.B().Rpush().Key(r.key).Element("1").Build()
	return r.client.Do(ctx, cmd).Error()
}

func (r *RedisTokenManager) Initialize(ctx context.Context, count int) error {
	delCmd := r.client.B().Del().Key(r.key).Build()
	if err := r.client.Do(ctx, delCmd).Error(); err != nil {
		return err
	}
	for i := 0; i < count; i++ {
		if err := r.Release(ctx); err != nil {
			return err
		}
	}
	return nil
}
