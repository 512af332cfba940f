package middleware

import (
	"bytes"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/kochabx/gmkit/core/crypto/sm2"
	"github.com/kochabx/gmkit/errors"
	"github.com/kochabx/gmkit/log"
	"github.com/kochabx/gmkit/transport/http"
)

// ErrDecryptFailed 统一的解密失败响应，不区分编码错误与完整性错误
var ErrDecryptFailed = errors.BadRequest("decrypt request body failed")

const defaultMaxCipherBody = 4 << 20

// Decryptor 将密文还原为明文
type Decryptor interface {
	Decrypt(ciphertext []byte) ([]byte, error)
}

type DecryptorFunc func(ciphertext []byte) ([]byte, error)

func (f DecryptorFunc) Decrypt(ciphertext []byte) ([]byte, error) {
	return f(ciphertext)
}

// CryptoConfig 请求体解密中间件配置
type CryptoConfig struct {
	Decryptor    Decryptor         // 必需
	Encoding     http.BodyEncoding // 默认 base64
	MaxBody      int64             // 编码后请求体上限，默认 4MB
	SkipPaths    []string
	SkipFunc     func(*gin.Context) bool
	ErrorHandler func(*gin.Context, error)
	Logger       *log.Logger
}

// SM2Decryptor 以 64 位 hex 私钥解密 mode 排列的密文
func SM2Decryptor(engine *sm2.Engine, privateKeyHex string, mode sm2.CipherMode, opts ...sm2.Option) (Decryptor, error) {
	priv, err := sm2.NewPrivateKeyFromHex(privateKeyHex)
	if err != nil {
		return nil, err
	}
	opts = append([]sm2.Option{sm2.WithMode(mode)}, opts...)
	return DecryptorFunc(func(ciphertext []byte) ([]byte, error) {
		return engine.Decrypt(priv, ciphertext, opts...)
	}), nil
}

func MustSM2Decryptor(engine *sm2.Engine, privateKeyHex string, mode sm2.CipherMode, opts ...sm2.Option) Decryptor {
	d, err := SM2Decryptor(engine, privateKeyHex, mode, opts...)
	if err != nil {
		panic(err)
	}
	return d
}

// Crypto 解密请求体并替换为明文，空请求体直接放行
func Crypto(cfg CryptoConfig) gin.HandlerFunc {
	if cfg.Decryptor == nil {
		panic("middleware: Decryptor is required")
	}
	if cfg.MaxBody <= 0 {
		cfg.MaxBody = defaultMaxCipherBody
	}
	if cfg.Logger == nil {
		cfg.Logger = log.G
	}
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c *gin.Context, _ error) {
			http.GinJSONE(c, http.StatusBadRequest, ErrDecryptFailed)
			c.Abort()
		}
	}

	matcher := NewPathMatcher(cfg.SkipPaths)

	return func(c *gin.Context) {
		if shouldSkip(c, matcher, cfg.SkipFunc) {
			c.Next()
			return
		}

		body, err := readBody(c, cfg.MaxBody)
		if err != nil {
			cfg.Logger.Warn().Err(err).Str("path", c.Request.URL.Path).Msg("crypto: read body failed")
			cfg.ErrorHandler(c, err)
			return
		}
		if len(body) == 0 {
			c.Next()
			return
		}

		ciphertext, err := cfg.Encoding.Decode(body)
		if err != nil {
			cfg.Logger.Warn().Err(err).Str("path", c.Request.URL.Path).Msg("crypto: decode body failed")
			cfg.ErrorHandler(c, err)
			return
		}

		plaintext, err := cfg.Decryptor.Decrypt(ciphertext)
		if err != nil {
			// 只记录错误类型，不记录密文
			cfg.Logger.Warn().
				Str("kind", string(errors.FromError(err).Kind())).
				Str("path", c.Request.URL.Path).
				Msg("crypto: decrypt failed")
			cfg.ErrorHandler(c, err)
			return
		}

		c.Request.Body = io.NopCloser(bytes.NewReader(plaintext))
		c.Request.ContentLength = int64(len(plaintext))
		c.Next()
	}
}
