package jwt

import "time"

// TokenUse 写入 token 头部 use 字段，区分访问令牌与刷新令牌
type TokenUse string

const (
	UseAccess  TokenUse = "access"
	UseRefresh TokenUse = "refresh"

	useHeader = "use"
)

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"` // 秒
}

type generateOptions struct {
	access  time.Duration
	refresh time.Duration
}

type GenerateOption func(*generateOptions)

// WithTTL 覆盖本次签发的有效期，零值保留配置
func WithTTL(access, refresh time.Duration) GenerateOption {
	return func(o *generateOptions) {
		if access > 0 {
			o.access = access
		}
		if refresh > 0 {
			o.refresh = refresh
		}
	}
}
