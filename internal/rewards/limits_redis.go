package rewards

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/convoai/reward-layer/pkg/logger"
)

// redisKeyTTL keeps spent day counters around long enough for late queries
// against the previous day, then lets Redis reclaim them.
const redisKeyTTL = 48 * time.Hour

// RedisLimitStore is a LimitStore backed by Redis, shared across service
// replicas. Reservations use INCRBY and roll back with DECRBY on overshoot,
// so the check-and-charge stays atomic without a script.
type RedisLimitStore struct {
	client *redis.Client
	prefix string
	log    *logger.Logger
}

// NewRedisLimitStore creates a Redis-backed limit store.
func NewRedisLimitStore(client *redis.Client) *RedisLimitStore {
	return &RedisLimitStore{
		client: client,
		prefix: "rewards:daily:",
		log:    logger.NewDefault("rewards.limits"),
	}
}

func (s *RedisLimitStore) key(wallet, day string) string {
	return s.prefix + wallet + ":" + day
}

// Reserve implements LimitStore.
func (s *RedisLimitStore) Reserve(ctx context.Context, wallet, day string, amount, limit int64) (int64, bool, error) {
	key := s.key(wallet, day)
	used, err := s.client.IncrBy(ctx, key, amount).Result()
	if err != nil {
		return 0, false, fmt.Errorf("reserve daily usage: %w", err)
	}
	// A key without a TTL never expires; a failed Expire only delays cleanup,
	// so it is logged rather than failing the reservation.
	if err := s.client.Expire(ctx, key, redisKeyTTL).Err(); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("failed to set TTL on daily usage key")
	}

	if used > limit {
		if err := s.client.DecrBy(ctx, key, amount).Err(); err != nil {
			return 0, false, fmt.Errorf("roll back over-limit reservation: %w", err)
		}
		return used - amount, false, nil
	}
	return used, true, nil
}

// Release implements LimitStore.
func (s *RedisLimitStore) Release(ctx context.Context, wallet, day string, amount int64) error {
	if err := s.client.DecrBy(ctx, s.key(wallet, day), amount).Err(); err != nil {
		return fmt.Errorf("release daily usage: %w", err)
	}
	return nil
}

// Usage implements LimitStore.
func (s *RedisLimitStore) Usage(ctx context.Context, wallet, day string) (int64, error) {
	used, err := s.client.Get(ctx, s.key(wallet, day)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read daily usage: %w", err)
	}
	return used, nil
}

var _ LimitStore = (*RedisLimitStore)(nil)
