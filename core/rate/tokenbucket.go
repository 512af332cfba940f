package rate

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kochabx/gmkit/errors"
)

// KEYS[1] 桶; ARGV: 容量, 每秒补充数, 当前毫秒, n
var tokenBucketScript = redis.NewScript(`
local capacity = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local n = tonumber(ARGV[4])

local state = redis.call('HMGET', KEYS[1], 'tokens', 'ts')
local tokens = tonumber(state[1])
local ts = tonumber(state[2])
if tokens == nil then
  tokens = capacity
  ts = now
end

tokens = math.min(capacity, tokens + math.max(0, now - ts) * rate / 1000)
local allowed = 0
if tokens >= n then
  tokens = tokens - n
  allowed = 1
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'ts', now)
redis.call('PEXPIRE', KEYS[1], math.ceil(capacity * 1000 / rate) + 1000)
return allowed
`)

// TokenBucketLimiter 基于 redis 的令牌桶，多实例共享
type TokenBucketLimiter struct {
	client   redis.UniversalClient
	prefix   string
	capacity int
	rate     int
}

// NewTokenBucketLimiter 创建令牌桶，capacity 为桶容量，rate 为每秒补充的令牌数
func NewTokenBucketLimiter(client redis.UniversalClient, prefix string, capacity, rate int) *TokenBucketLimiter {
	return &TokenBucketLimiter{
		client:   client,
		prefix:   prefix,
		capacity: max(capacity, 1),
		rate:     max(rate, 1),
	}
}

func (l *TokenBucketLimiter) AllowN(ctx context.Context, key string, t time.Time, n int) (bool, error) {
	if n <= 0 {
		return false, ErrInvalidArgument
	}
	if n > l.capacity {
		return false, nil
	}
	res, err := tokenBucketScript.Run(ctx, l.client, []string{l.prefix + key}, l.capacity, l.rate, t.UnixMilli(), n).Int()
	if err != nil {
		return false, errors.Internal("rate: token bucket").WithCause(err)
	}
	return res == 1, nil
}
