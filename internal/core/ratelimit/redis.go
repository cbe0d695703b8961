package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingLog trims entries older than the window, refuses once limit entries
// remain and otherwise records this request. It runs atomically in redis, so
// concurrent instances cannot both take the last slot.
var slidingLog = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
if redis.call('ZCARD', key) >= limit then
	return 0
end
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return 1
`)

// Redis is a sliding-window log shared by every API instance: at most limit
// requests per key in any span of one window.
type Redis struct {
	rdb    *redis.Client
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewRedis(rdb *redis.Client, prefix string, limit int, window time.Duration) *Redis {
	return &Redis{rdb: rdb, prefix: prefix, limit: max(1, limit), window: window, now: time.Now}
}

func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	k := fmt.Sprintf("rl:%s:%s", r.prefix, key)
	n, err := slidingLog.Run(ctx, r.rdb, []string{k},
		r.now().UnixMilli(), r.window.Milliseconds(), r.limit, uuid.NewString(),
	).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
