package rate

import (
	"context"
	"time"

	"github.com/kochabx/gmkit/errors"
)

var ErrInvalidArgument = errors.BadRequest("rate: n must be positive")

// Limiter 按 key 限流
type Limiter interface {
	// AllowN 报告 t 时刻 key 是否还能取得 n 个许可
	AllowN(ctx context.Context, key string, t time.Time, n int) (bool, error)
}

// Allow 取一个许可
func Allow(ctx context.Context, l Limiter, key string) (bool, error) {
	return l.AllowN(ctx, key, time.Now(), 1)
}
