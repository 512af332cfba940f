package jwt

import (
	"time"

	"github.com/kochabx/gmkit/core/crypto/sm2"
)

// Config 认证器配置。签发需要私钥，只验证时配置公钥即可
type Config struct {
	PrivateKey string `json:"private_key" mapstructure:"private_key" validate:"omitempty,sm2_private_key"`
	PublicKey  string `json:"public_key" mapstructure:"public_key" validate:"omitempty,sm2_public_key"`
	UserID     string `json:"user_id" mapstructure:"user_id" default:"1234567812345678" validate:"max=8191"`

	AccessTTL  time.Duration `json:"access_ttl" mapstructure:"access_ttl" default:"1h" validate:"gt=0"`
	RefreshTTL time.Duration `json:"refresh_ttl" mapstructure:"refresh_ttl" default:"168h" validate:"gtfield=AccessTTL"`

	Issuer   string   `json:"issuer" mapstructure:"issuer"`
	Audience []string `json:"audience" mapstructure:"audience"`
}

// keys 公私钥同时配置时必须匹配
func (c *Config) keys() (*sm2.PrivateKey, *sm2.PublicKey, error) {
	cfg := sm2.Config{PrivateKey: c.PrivateKey, PublicKey: c.PublicKey}
	return cfg.Keys()
}

func (c *Config) signingMethod() *SM2Method {
	if c.UserID == "" || c.UserID == string(sm2.DefaultUserID()) {
		return SigningMethodSM2
	}
	return &SM2Method{Name: SigningMethodSM2.Name, UserID: []byte(c.UserID)}
}

type Option func(*Config)

func WithPrivateKey(hexKey string) Option {
	return func(c *Config) { c.PrivateKey = hexKey }
}

// WithPublicKey 压缩或非压缩 hex 公钥
func WithPublicKey(hexKey string) Option {
	return func(c *Config) { c.PublicKey = hexKey }
}

func WithUserID(uid string) Option {
	return func(c *Config) { c.UserID = uid }
}

// WithTokenTTL 零值保留默认值
func WithTokenTTL(access, refresh time.Duration) Option {
	return func(c *Config) {
		c.AccessTTL = access
		c.RefreshTTL = refresh
	}
}

func WithIssuer(issuer string) Option {
	return func(c *Config) { c.Issuer = issuer }
}

// WithAudience 签发时写入全部受众，验证时要求包含第一个
func WithAudience(audience ...string) Option {
	return func(c *Config) { c.Audience = audience }
}
