package service

import (
	"github.com/kochabx/gmkit/config"
	"github.com/kochabx/gmkit/core/auth/jwt"
	"github.com/kochabx/gmkit/store/redis"
)

// Config is the file layout of the SM2 HTTP service:
//
//	log:
//	  level: info
//	sm2:
//	  cipher_mode: C1C3C2
//	  private_key: 3945208f...
//	http:
//	  addr: ":8080"
//	  prefix: /sm2
type Config struct {
	config.EngineConfig `mapstructure:",squash"`
	HTTP                HTTPConfig `json:"http" mapstructure:"http"`
}

type HTTPConfig struct {
	Name      string `json:"name" mapstructure:"name" default:"gmkit"`
	Addr      string `json:"addr" mapstructure:"addr" default:":8080" validate:"required"`
	Prefix    string `json:"prefix" mapstructure:"prefix" default:"/sm2" validate:"startswith=/"`
	Workers   int    `json:"workers" mapstructure:"workers" validate:"gte=0"` // 批量验签协程数，0 为 GOMAXPROCS
	MaxBatch  int    `json:"max_batch" mapstructure:"max_batch" default:"1000" validate:"gt=0"`
	NoMetrics bool   `json:"no_metrics" mapstructure:"no_metrics"`
	NoHealth  bool   `json:"no_health" mapstructure:"no_health"`

	// 请求签名校验，公钥为空时关闭
	SignaturePublicKey string `json:"signature_public_key" mapstructure:"signature_public_key" validate:"omitempty,sm2_public_key"`

	// 私钥操作的 Bearer 认证，为空时关闭
	Auth *jwt.Config `json:"auth" mapstructure:"auth"`

	RateLimit RateLimitConfig `json:"rate_limit" mapstructure:"rate_limit"`
}

// RateLimitConfig 私钥操作（签名、解密、生成密钥）的 redis 令牌桶限流，Redis 为空时关闭
type RateLimitConfig struct {
	Redis    *redis.Config `json:"redis" mapstructure:"redis"`
	Prefix   string        `json:"prefix" mapstructure:"prefix" default:"gmkit:rate:"`
	Capacity int           `json:"capacity" mapstructure:"capacity" default:"20" validate:"gt=0"`
	Rate     int           `json:"rate" mapstructure:"rate" default:"10" validate:"gt=0"` // 每秒补充的令牌数
}
