package jwt

import (
	"context"

	"github.com/creasty/defaults"

	"github.com/kochabx/gmkit/core/validator"
)

// Authenticator 签发、校验和刷新 token
type Authenticator interface {
	Generate(ctx context.Context, claims Claims, opts ...GenerateOption) (*TokenPair, error)
	// Verify 只接受访问令牌
	Verify(ctx context.Context, tokenString string, claims Claims) error
	// Refresh 只接受刷新令牌，返回新的令牌对
	Refresh(ctx context.Context, refreshToken string, claims Claims) (*TokenPair, error)
}

var _ Authenticator = (*BasicAuthenticator)(nil)

// BasicAuthenticator 无状态认证器，令牌在过期前无法吊销
type BasicAuthenticator struct {
	generator *Generator
	config    Config
}

func NewBasicAuthenticator(opts ...Option) (*BasicAuthenticator, error) {
	var config Config
	for _, opt := range opts {
		opt(&config)
	}
	return New(config)
}

// New 补全默认值并校验 config
func New(config Config) (*BasicAuthenticator, error) {
	if err := defaults.Set(&config); err != nil {
		return nil, ErrConfigInvalid.WithCause(err)
	}
	if err := validator.Validate.Struct(&config); err != nil {
		return nil, ErrConfigInvalid.WithCause(err)
	}

	generator, err := NewGenerator(&config)
	if err != nil {
		return nil, err
	}
	return &BasicAuthenticator{generator: generator, config: config}, nil
}

func (a *BasicAuthenticator) Generate(_ context.Context, claims Claims, opts ...GenerateOption) (*TokenPair, error) {
	o := generateOptions{access: a.config.AccessTTL, refresh: a.config.RefreshTTL}
	for _, opt := range opts {
		opt(&o)
	}

	access, err := a.generator.Generate(claims, o.access, UseAccess)
	if err != nil {
		return nil, err
	}
	refresh, err := a.generator.Generate(claims, o.refresh, UseRefresh)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(o.access.Seconds()),
	}, nil
}

func (a *BasicAuthenticator) Verify(_ context.Context, tokenString string, claims Claims) error {
	return a.generator.Parse(tokenString, claims, UseAccess)
}

func (a *BasicAuthenticator) Refresh(ctx context.Context, refreshToken string, claims Claims) (*TokenPair, error) {
	if err := a.generator.Parse(refreshToken, claims, UseRefresh); err != nil {
		return nil, err
	}
	return a.Generate(ctx, claims)
}
