package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis shares the quota between every process pointed at the same server.
// Keys carry the UTC day and expire after two days.
type Redis struct {
	cli   *redis.Client
	limit int
	now   func() time.Time
}

const redisKeyTTL = 48 * time.Hour

func NewRedis(cli *redis.Client, limit int) *Redis {
	return &Redis{cli: cli, limit: limit, now: time.Now}
}

func (r *Redis) DailyLimit() int { return r.limit }

func (r *Redis) Admit(ctx context.Context, key string) (bool, error) {
	k := redisKey(day(r.now()), key)

	count, err := r.cli.Incr(ctx, k).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := r.cli.Expire(ctx, k, redisKeyTTL).Err(); err != nil {
			return false, err
		}
	}
	return count <= int64(r.limit), nil
}

func redisKey(day, key string) string {
	return fmt.Sprintf("ratelimit:%s:%s", day, key)
}
