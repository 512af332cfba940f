package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/kochabx/gmkit/core/crypto/sm2"
	"github.com/kochabx/gmkit/errors"
)

// Generator 使用 SM2 签发和解析 token
type Generator struct {
	config *Config
	method *SM2Method
	priv   *sm2.PrivateKey
	verify *sm2.PrecomputedKey
	parser *jwt.Parser
}

// NewGenerator 创建生成器，公钥预计算后用于所有验签
func NewGenerator(config *Config) (*Generator, error) {
	priv, pub, err := config.keys()
	if err != nil {
		return nil, ErrConfigInvalid.WithCause(err)
	}
	if pub == nil {
		return nil, ErrConfigInvalid.WithMetadata(map[string]string{"reason": "no key configured"})
	}
	verify, err := sm2.Precompute(pub)
	if err != nil {
		return nil, ErrConfigInvalid.WithCause(err)
	}

	method := config.signingMethod()
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{method.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if config.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(config.Issuer))
	}
	if len(config.Audience) > 0 {
		parserOpts = append(parserOpts, jwt.WithAudience(config.Audience[0]))
	}

	return &Generator{
		config: config,
		method: method,
		priv:   priv,
		verify: verify,
		parser: jwt.NewParser(parserOpts...),
	}, nil
}

// Generate 签发 use 类型的 token，claims 的 jti、签发与过期时间会被覆盖
func (g *Generator) Generate(claims Claims, ttl time.Duration, use TokenUse) (string, error) {
	if g.priv == nil {
		return "", ErrSigningKeyMissing
	}

	now := time.Now()
	jti := uuid.New().String()
	switch c := claims.(type) {
	case *jwt.RegisteredClaims:
		rc := RegisteredClaims{RegisteredClaims: *c}
		rc.SetStandardClaims(jti, now, now.Add(ttl), g.config.Issuer, g.config.Audience)
		*c = rc.RegisteredClaims
	case StandardClaimsSetter:
		c.SetStandardClaims(jti, now, now.Add(ttl), g.config.Issuer, g.config.Audience)
	}

	token := jwt.NewWithClaims(g.method, claims)
	token.Header[useHeader] = string(use)
	signed, err := token.SignedString(g.priv)
	if err != nil {
		return "", errors.Internal("jwt: sign %s token", use).WithCause(err)
	}
	return signed, nil
}

// Parse 验签并校验 claims，token 头部的 use 必须与 use 一致
func (g *Generator) Parse(tokenString string, claims Claims, use TokenUse) error {
	token, err := g.parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		// 注册表只有默认用户 ID 的方法，验签须使用配置的用户 ID
		if t.Method.Alg() != g.method.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		t.Method = g.method
		return g.verify, nil
	})
	switch {
	case err == nil && token.Valid:
		if got, _ := token.Header[useHeader].(string); got != string(use) {
			return ErrTokenUse.WithMetadata(map[string]string{"want": string(use), "got": got})
		}
		return nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpiredToken.WithCause(err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrInvalidSignature.WithCause(err)
	case errors.Is(err, jwt.ErrTokenInvalidClaims):
		return ErrInvalidClaims.WithCause(err)
	default:
		return ErrInvalidToken.WithCause(err)
	}
}
