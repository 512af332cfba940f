package middleware

import (
	"fmt"
	"runtime/debug"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/kochabx/gmkit/errors"
	"github.com/kochabx/gmkit/log"
	transport "github.com/kochabx/gmkit/transport/http"
)

var ErrInternal = errors.Internal("internal server error")

// RecoveryConfig Recovery 中间件配置
type RecoveryConfig struct {
	StackTrace bool // 记录堆栈
	Logger     *log.Logger
}

// Recovery 将 panic 转换为 500 响应。请求头不写入日志，避免泄露签名与 token
func Recovery(cfgs ...RecoveryConfig) gin.HandlerFunc {
	cfg := RecoveryConfig{StackTrace: true}
	if len(cfgs) > 0 {
		cfg = cfgs[0]
	}
	if cfg.Logger == nil {
		cfg.Logger = log.G
	}

	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("%v", r)
			}

			event := cfg.Logger.Error().Err(err).
				Str("method", c.Request.Method).
				Str("path", c.Request.URL.Path).
				Str("client_ip", c.ClientIP())

			// 客户端已断开，无法再写响应
			if errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET) {
				event.Msg("connection closed by client")
				_ = c.Error(err)
				c.Abort()
				return
			}

			if cfg.StackTrace {
				event = event.Bytes("stack", debug.Stack())
			}
			event.Msg("panic recovered")

			if c.Writer.Written() {
				c.Abort()
				return
			}
			transport.GinError(c, ErrInternal)
			c.Abort()
		}()
		c.Next()
	}
}
