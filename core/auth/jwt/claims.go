package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims JWT Claims 接口类型别名
type Claims = jwt.Claims

// RegisteredClaims JWT 标准 Claims
// 自定义 claims 嵌入本类型后，签发时自动填充 jti、时间、签发者和受众
type RegisteredClaims struct {
	jwt.RegisteredClaims
}

// StandardClaimsSetter 可选接口，用于自动设置标准字段
type StandardClaimsSetter interface {
	Claims
	SetStandardClaims(jti string, issuedAt, expiresAt time.Time, issuer string, audience []string)
}

// SetStandardClaims 实现 StandardClaimsSetter
func (c *RegisteredClaims) SetStandardClaims(jti string, issuedAt, expiresAt time.Time, issuer string, audience []string) {
	c.ID = jti
	c.IssuedAt = jwt.NewNumericDate(issuedAt)
	c.ExpiresAt = jwt.NewNumericDate(expiresAt)
	if issuer != "" {
		c.Issuer = issuer
	}
	if len(audience) > 0 {
		c.Audience = audience
	}
}
