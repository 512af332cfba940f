package middleware

import (
	"bytes"
	"io"
	nethttp "net/http"

	"github.com/gin-gonic/gin"

	"github.com/kochabx/gmkit/core/crypto/sm2"
	"github.com/kochabx/gmkit/errors"
	"github.com/kochabx/gmkit/log"
	"github.com/kochabx/gmkit/transport/http"
)

var (
	ErrSignatureFailed  = errors.Unauthorized("verify signature failed")
	ErrSignatureMissing = errors.Unauthorized("signature header missing")
	ErrSignatureBody    = errors.BadRequest("request body too large to verify")
)

// DefaultSignatureHeader 默认签名头
const DefaultSignatureHeader = http.SignatureHeader

// SignatureVerifiedKey 验签通过后写入 gin.Context 的键
const SignatureVerifiedKey = "gmkit.signature.verified"

const defaultMaxSignedBody = 1 << 20

// Verifier 校验待签名数据与 hex 签名，失败返回错误
type Verifier interface {
	Verify(data []byte, signature string) error
}

type VerifierFunc func(data []byte, signature string) error

func (f VerifierFunc) Verify(data []byte, signature string) error {
	return f(data, signature)
}

// SM2Verifier 以 publicKeyHex 验签。签名默认为 r||s，传入 sm2.WithDER() 时为 DER；
// 公钥在创建时预计算
func SM2Verifier(engine *sm2.Engine, publicKeyHex string, opts ...sm2.Option) (Verifier, error) {
	pk, err := engine.PrecomputePublicKeyHex(publicKeyHex)
	if err != nil {
		return nil, err
	}
	return VerifierFunc(func(data []byte, signature string) error {
		if !engine.VerifyPrecomputedHex(pk, data, signature, opts...) {
			return ErrSignatureFailed
		}
		return nil
	}), nil
}

// SignatureConfig 签名验证中间件配置
type SignatureConfig struct {
	Verifier     Verifier                  // 必需
	Header       string                    // 默认 X-Signature
	Parts        http.SignedParts          // 参与签名的部分，0 时为 http.DefaultSignedParts
	MaxBody      int64                     // 可验签的请求体上限，默认 1MB
	SkipPaths    []string
	SkipFunc     func(*gin.Context) bool
	ErrorHandler func(*gin.Context, error)
	Logger       *log.Logger
}

// DefaultSignatureConfig 签名覆盖 query 与请求体，与 core/net/http 客户端一致
func DefaultSignatureConfig(verifier Verifier) SignatureConfig {
	return SignatureConfig{
		Verifier: verifier,
		Header:   DefaultSignatureHeader,
		Parts:    http.DefaultSignedParts,
	}
}

// Signature 校验请求签名，待签名数据由 http.CanonicalRequest 生成。
// 请求体读取后放回，后续处理器可再次读取
func Signature(cfg SignatureConfig) gin.HandlerFunc {
	if cfg.Verifier == nil {
		panic("middleware: Verifier is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.G
	}
	if cfg.Header == "" {
		cfg.Header = DefaultSignatureHeader
	}
	if cfg.Parts == 0 {
		cfg.Parts = http.DefaultSignedParts
	}
	if cfg.MaxBody <= 0 {
		cfg.MaxBody = defaultMaxSignedBody
	}
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c *gin.Context, err error) {
			http.GinJSONE(c, errors.Code(err), err)
			c.Abort()
		}
	}

	matcher := NewPathMatcher(cfg.SkipPaths)

	return func(c *gin.Context) {
		if shouldSkip(c, matcher, cfg.SkipFunc) {
			c.Next()
			return
		}

		signature := c.GetHeader(cfg.Header)
		if signature == "" {
			cfg.Logger.Warn().Str("path", c.Request.URL.Path).Msg("signature: header missing")
			cfg.ErrorHandler(c, ErrSignatureMissing)
			return
		}

		var body []byte
		if cfg.Parts&http.SignBody != 0 {
			var err error
			if body, err = readBody(c, cfg.MaxBody); err != nil {
				cfg.Logger.Warn().Err(err).Str("path", c.Request.URL.Path).Msg("signature: read body failed")
				cfg.ErrorHandler(c, ErrSignatureBody.WithCause(err))
				return
			}
		}

		data := http.CanonicalRequest(cfg.Parts, c.Request.Method, c.Request.URL.Path, c.Request.URL.Query(), body)
		if err := cfg.Verifier.Verify(data, signature); err != nil {
			cfg.Logger.Warn().Str("path", c.Request.URL.Path).Msg("signature: verify failed")
			cfg.ErrorHandler(c, err)
			return
		}

		c.Set(SignatureVerifiedKey, true)
		c.Next()
	}
}

// readBody 读取至多 limit 字节并放回请求体
func readBody(c *gin.Context, limit int64) ([]byte, error) {
	if c.Request.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(nethttp.MaxBytesReader(c.Writer, c.Request.Body, limit))
	if err != nil {
		return nil, err
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}
