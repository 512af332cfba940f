package jwt

import "github.com/kochabx/gmkit/errors"

var (
	ErrInvalidToken     = errors.Unauthorized("jwt: invalid token")
	ErrExpiredToken     = errors.Unauthorized("jwt: token expired")
	ErrInvalidSignature = errors.Unauthorized("jwt: invalid signature")
	ErrInvalidClaims    = errors.Unauthorized("jwt: invalid claims")
	ErrTokenUse         = errors.Unauthorized("jwt: wrong token use")

	ErrConfigInvalid     = errors.Internal("jwt: invalid configuration")
	ErrSigningKeyMissing = errors.Internal("jwt: private key not configured")
)
