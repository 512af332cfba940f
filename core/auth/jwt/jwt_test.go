package jwt

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kochabx/gmkit/core/crypto/sm2"
	"github.com/kochabx/gmkit/errors"
)

// UserClaims 自定义 Claims 示例
type UserClaims struct {
	RegisteredClaims
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func newKeyPair(t *testing.T) *sm2.KeyPairHex {
	t.Helper()
	pair, err := sm2.Default().GenerateKeyPairHex()
	require.NoError(t, err)
	return pair
}

func TestBasicAuthenticator(t *testing.T) {
	ctx := context.Background()
	pair := newKeyPair(t)

	auth, err := NewBasicAuthenticator(
		WithPrivateKey(pair.PrivateKey),
		WithIssuer("gmkit"),
		WithTokenTTL(time.Hour, 7*24*time.Hour),
	)
	require.NoError(t, err)

	claims := &UserClaims{UserID: 12345, Username: "john_doe", Role: "user"}
	claims.Subject = "user123"

	tokenPair, err := auth.Generate(ctx, claims)
	require.NoError(t, err)
	assert.Equal(t, int64(3600), tokenPair.ExpiresIn)
	assert.Len(t, strings.Split(tokenPair.AccessToken, "."), 3)

	verified := &UserClaims{}
	require.NoError(t, auth.Verify(ctx, tokenPair.AccessToken, verified))
	assert.Equal(t, claims.UserID, verified.UserID)
	assert.Equal(t, "john_doe", verified.Username)
	assert.Equal(t, "user123", verified.Subject)
	assert.Equal(t, "gmkit", verified.Issuer)
	assert.NotEmpty(t, verified.ID)

	refreshed := &UserClaims{}
	newPair, err := auth.Refresh(ctx, tokenPair.RefreshToken, refreshed)
	require.NoError(t, err)
	assert.NotEqual(t, tokenPair.AccessToken, newPair.AccessToken)
	assert.Equal(t, "john_doe", refreshed.Username)
}

func TestTokenUse(t *testing.T) {
	ctx := context.Background()
	auth, err := NewBasicAuthenticator(WithPrivateKey(newKeyPair(t).PrivateKey))
	require.NoError(t, err)

	tokens, err := auth.Generate(ctx, &RegisteredClaims{})
	require.NoError(t, err)

	err = auth.Verify(ctx, tokens.RefreshToken, &RegisteredClaims{})
	assert.True(t, errors.Is(err, ErrTokenUse), "refresh token must not grant access: %v", err)

	_, err = auth.Refresh(ctx, tokens.AccessToken, &RegisteredClaims{})
	assert.True(t, errors.Is(err, ErrTokenUse), "access token must not refresh: %v", err)

	// 无 use 头部的外部 token
	priv, err := sm2.NewPrivateKeyFromHex(auth.config.PrivateKey)
	require.NoError(t, err)
	bare, err := jwt.NewWithClaims(SigningMethodSM2, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString(priv)
	require.NoError(t, err)
	assert.True(t, errors.Is(auth.Verify(ctx, bare, &RegisteredClaims{}), ErrTokenUse))
}

func TestSigningMethodSM2(t *testing.T) {
	pair := newKeyPair(t)
	priv, err := sm2.NewPrivateKeyFromHex(pair.PrivateKey)
	require.NoError(t, err)

	token := jwt.NewWithClaims(SigningMethodSM2, jwt.MapClaims{"sub": "alice"})
	signed, err := token.SignedString(priv)
	require.NoError(t, err)

	parsed, err := jwt.Parse(signed, func(tok *jwt.Token) (any, error) {
		assert.Equal(t, "SM2", tok.Header["alg"])
		return priv.PublicKey(), nil
	})
	require.NoError(t, err)
	assert.True(t, parsed.Valid)

	_, err = SigningMethodSM2.Sign("x", "not a key")
	assert.ErrorIs(t, err, jwt.ErrInvalidKeyType)
	assert.ErrorIs(t, SigningMethodSM2.Verify("x", make([]byte, 64), []byte("key")), jwt.ErrInvalidKeyType)
	assert.ErrorIs(t, SigningMethodSM2.Verify("x", make([]byte, 64), priv.PublicKey()), jwt.ErrSignatureInvalid)
}

func TestVerifyOnly(t *testing.T) {
	ctx := context.Background()
	pair := newKeyPair(t)

	issuer, err := NewBasicAuthenticator(WithPrivateKey(pair.PrivateKey), WithUserID("issuer@example.com"))
	require.NoError(t, err)
	tokens, err := issuer.Generate(ctx, &RegisteredClaims{}, WithTTL(time.Minute, 0))
	require.NoError(t, err)
	assert.Equal(t, int64(60), tokens.ExpiresIn)
	require.NoError(t, issuer.Verify(ctx, tokens.AccessToken, &RegisteredClaims{}), "自定义用户 ID 的签发方可验证自身 token")

	compressed, err := sm2.Default().CompressPublicKeyHex(pair.PublicKey)
	require.NoError(t, err)
	verifier, err := NewBasicAuthenticator(WithPublicKey(compressed), WithUserID("issuer@example.com"))
	require.NoError(t, err)
	require.NoError(t, verifier.Verify(ctx, tokens.AccessToken, &RegisteredClaims{}))

	_, err = verifier.Generate(ctx, &RegisteredClaims{})
	assert.True(t, errors.Is(err, ErrSigningKeyMissing))

	other, err := NewBasicAuthenticator(WithPublicKey(pair.PublicKey))
	require.NoError(t, err)
	err = other.Verify(ctx, tokens.AccessToken, &RegisteredClaims{})
	assert.True(t, errors.Is(err, ErrInvalidSignature), "user id mismatch must fail: %v", err)
}

func TestVerifyErrors(t *testing.T) {
	ctx := context.Background()
	pair := newKeyPair(t)
	auth, err := NewBasicAuthenticator(WithPrivateKey(pair.PrivateKey), WithAudience("api"))
	require.NoError(t, err)

	expired := &jwt.RegisteredClaims{}
	tokens, err := auth.Generate(ctx, expired)
	require.NoError(t, err)

	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	priv, _ := sm2.NewPrivateKeyFromHex(pair.PrivateKey)
	stale, err := jwt.NewWithClaims(SigningMethodSM2, expired).SignedString(priv)
	require.NoError(t, err)

	err = auth.Verify(ctx, stale, &RegisteredClaims{})
	assert.True(t, errors.Is(err, ErrExpiredToken), "got %v", err)
	assert.Equal(t, 401, errors.Code(err))

	require.NoError(t, auth.Verify(ctx, tokens.AccessToken, &RegisteredClaims{}))

	parts := strings.Split(tokens.AccessToken, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]
	assert.Error(t, auth.Verify(ctx, tampered, &RegisteredClaims{}))

	hs, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{}).SignedString([]byte("secret"))
	require.NoError(t, err)
	assert.Error(t, auth.Verify(ctx, hs, &RegisteredClaims{}))
	assert.Error(t, auth.Verify(ctx, "garbage", &RegisteredClaims{}))
}

func TestConfigErrors(t *testing.T) {
	_, err := NewBasicAuthenticator()
	assert.True(t, errors.Is(err, ErrConfigInvalid))

	_, err = NewBasicAuthenticator(WithPublicKey("04abcd"))
	assert.True(t, errors.Is(err, ErrConfigInvalid))

	a, b := newKeyPair(t), newKeyPair(t)
	_, err = NewBasicAuthenticator(WithPrivateKey(a.PrivateKey), WithPublicKey(b.PublicKey))
	assert.True(t, errors.Is(err, ErrConfigInvalid))

	_, err = NewBasicAuthenticator(WithPrivateKey(a.PrivateKey), WithTokenTTL(time.Hour, time.Minute))
	assert.True(t, errors.Is(err, ErrConfigInvalid), "refresh ttl must exceed access ttl")
}
