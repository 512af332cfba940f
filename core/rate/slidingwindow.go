package rate

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/kochabx/gmkit/errors"
)

// KEYS[1] 窗口; ARGV: 窗口毫秒, 上限, 当前毫秒, n, 成员前缀
var slidingWindowScript = redis.NewScript(`
local window = tonumber(ARGV[1])
local limit = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local n = tonumber(ARGV[4])

redis.call('ZREMRANGEBYSCORE', KEYS[1], 0, now - window)
if redis.call('ZCARD', KEYS[1]) + n > limit then
  return 0
end
for i = 1, n do
  redis.call('ZADD', KEYS[1], now, ARGV[5] .. ':' .. i)
end
redis.call('PEXPIRE', KEYS[1], window)
return 1
`)

// SlidingWindowLimiter 基于 redis 有序集合的滑动窗口
type SlidingWindowLimiter struct {
	client redis.UniversalClient
	prefix string
	window time.Duration
	limit  int
}

// NewSlidingWindowLimiter 创建滑动窗口，window 内最多 limit 个请求
func NewSlidingWindowLimiter(client redis.UniversalClient, prefix string, window time.Duration, limit int) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		client: client,
		prefix: prefix,
		window: max(window, time.Millisecond),
		limit:  max(limit, 1),
	}
}

func (l *SlidingWindowLimiter) AllowN(ctx context.Context, key string, t time.Time, n int) (bool, error) {
	if n <= 0 {
		return false, ErrInvalidArgument
	}
	res, err := slidingWindowScript.Run(ctx, l.client, []string{l.prefix + key},
		l.window.Milliseconds(), l.limit, t.UnixMilli(), n, uuid.NewString()).Int()
	if err != nil {
		return false, errors.Internal("rate: sliding window").WithCause(err)
	}
	return res == 1, nil
}
