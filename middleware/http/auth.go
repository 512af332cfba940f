package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kochabx/gmkit/core/auth/jwt"
	"github.com/kochabx/gmkit/errors"
	"github.com/kochabx/gmkit/log"
	"github.com/kochabx/gmkit/transport/http"
)

var ErrTokenMissing = errors.Unauthorized("authorization token missing")

type claimsKey struct{}

// AuthConfig 认证中间件配置
type AuthConfig struct {
	Authenticator jwt.Authenticator         // 认证器（必需）
	NewClaims     func() jwt.Claims         // 创建 claims 实例，默认 *jwt.RegisteredClaims
	HeaderName    string                    // 默认 "Authorization"，值为 "Bearer <token>"
	SkipPaths     []string                  // 跳过处理的路径
	SkipFunc      func(*gin.Context) bool   // 动态跳过判断函数
	ErrorHandler  func(*gin.Context, error) // 错误处理函数
	Logger        *log.Logger               // 自定义日志记录器
}

// Auth 创建 JWT 认证中间件，验证通过的 claims 存入请求上下文
func Auth(cfg AuthConfig) gin.HandlerFunc {
	if cfg.Authenticator == nil {
		panic("middleware: Authenticator is required")
	}
	if cfg.NewClaims == nil {
		cfg.NewClaims = func() jwt.Claims { return &jwt.RegisteredClaims{} }
	}
	if cfg.HeaderName == "" {
		cfg.HeaderName = "Authorization"
	}
	if cfg.Logger == nil {
		cfg.Logger = log.G
	}
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c *gin.Context, err error) {
			http.GinJSONE(c, http.StatusUnauthorized, err)
			c.Abort()
		}
	}

	matcher := NewPathMatcher(cfg.SkipPaths)

	return func(c *gin.Context) {
		if shouldSkip(c, matcher, cfg.SkipFunc) {
			c.Next()
			return
		}

		token, ok := strings.CutPrefix(c.GetHeader(cfg.HeaderName), "Bearer ")
		if !ok || token == "" {
			cfg.ErrorHandler(c, ErrTokenMissing)
			return
		}

		claims := cfg.NewClaims()
		if err := cfg.Authenticator.Verify(c.Request.Context(), token, claims); err != nil {
			cfg.Logger.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("auth: verify token failed")
			cfg.ErrorHandler(c, err)
			return
		}

		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), claimsKey{}, claims))
		c.Next()
	}
}

// GetClaims 从上下文取出 claims
func GetClaims[T jwt.Claims](ctx context.Context) (T, bool) {
	claims, ok := ctx.Value(claimsKey{}).(T)
	return claims, ok
}
