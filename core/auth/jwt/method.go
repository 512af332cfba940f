package jwt

import (
	"crypto/rand"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kochabx/gmkit/core/crypto/sm2"
)

// SM2Method 实现 jwt.SigningMethod，签名为 64 字节 r || s
type SM2Method struct {
	Name   string
	UserID []byte
}

// SigningMethodSM2 使用默认用户 ID 的 SM2 签名方法
var SigningMethodSM2 = &SM2Method{Name: "SM2"}

func init() {
	jwt.RegisterSigningMethod(SigningMethodSM2.Alg(), func() jwt.SigningMethod {
		return SigningMethodSM2
	})
}

func (m *SM2Method) Alg() string {
	return m.Name
}

func (m *SM2Method) options() []sm2.Option {
	if len(m.UserID) == 0 {
		return nil
	}
	return []sm2.Option{sm2.WithUserID(m.UserID)}
}

// Sign 签名，key 必须为 *sm2.PrivateKey
func (m *SM2Method) Sign(signingString string, key any) ([]byte, error) {
	priv, ok := key.(*sm2.PrivateKey)
	if !ok {
		return nil, jwt.ErrInvalidKeyType
	}
	return sm2.SignBytes(rand.Reader, priv, []byte(signingString), m.options()...)
}

// Verify 验签，key 可以为 *sm2.PublicKey 或 *sm2.PrecomputedKey
func (m *SM2Method) Verify(signingString string, sig []byte, key any) error {
	var ok bool
	switch k := key.(type) {
	case *sm2.PrecomputedKey:
		ok = k.VerifyBytes([]byte(signingString), sig, m.options()...)
	case *sm2.PublicKey:
		ok = sm2.VerifyBytes(k, []byte(signingString), sig, m.options()...)
	default:
		return jwt.ErrInvalidKeyType
	}
	if !ok {
		return jwt.ErrSignatureInvalid
	}
	return nil
}
