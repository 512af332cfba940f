package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kochabx/gmkit/core/rate"
	"github.com/kochabx/gmkit/errors"
	"github.com/kochabx/gmkit/log"
	"github.com/kochabx/gmkit/transport/http"
)

var ErrTooManyRequests = errors.TooManyRequests("too many requests")

// RateLimitConfig 限流中间件配置
type RateLimitConfig struct {
	Limiter      rate.Limiter              // 限流器（必需）
	KeyFunc      func(*gin.Context) string // 限流 key，默认 客户端 IP + 路径
	SkipPaths    []string                  // 跳过处理的路径
	SkipFunc     func(*gin.Context) bool   // 动态跳过判断函数
	ErrorHandler func(*gin.Context, error) // 错误处理函数
	Logger       *log.Logger               // 自定义日志记录器
}

// RateLimit 创建限流中间件，限流器出错时放行
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Limiter == nil {
		panic("middleware: Limiter is required")
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(c *gin.Context) string {
			return c.ClientIP() + ":" + c.FullPath()
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.G
	}
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c *gin.Context, err error) {
			http.GinError(c, err)
			c.Abort()
		}
	}

	matcher := NewPathMatcher(cfg.SkipPaths)

	return func(c *gin.Context) {
		if shouldSkip(c, matcher, cfg.SkipFunc) {
			c.Next()
			return
		}

		key := cfg.KeyFunc(c)
		ok, err := cfg.Limiter.AllowN(c.Request.Context(), key, time.Now(), 1)
		if err != nil {
			cfg.Logger.Error().Err(err).Str("key", key).Msg("ratelimit: limiter failed")
			c.Next()
			return
		}
		if !ok {
			cfg.ErrorHandler(c, ErrTooManyRequests)
			return
		}
		c.Next()
	}
}
