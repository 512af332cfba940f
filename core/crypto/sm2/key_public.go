package sm2

import (
	"crypto/subtle"
	"encoding/hex"

	"github.com/kochabx/gmkit/core/crypto/sm2/internal/curve"
)

// PublicKey is an SM2 public key: a validated curve point other than the
// point at infinity.
type PublicKey struct {
	point *curve.Point
	x, y  []byte
}

func newPublicKey(p *curve.Point) (*PublicKey, error) {
	x, y, err := p.BytesXY()
	if err != nil {
		return nil, ErrInvalidPublicKey.WithCause(err)
	}
	return &PublicKey{point: p, x: x, y: y}, nil
}

// NewPublicKey parses an uncompressed (0x04) or compressed (0x02, 0x03)
// public key and checks that it lies on the curve.
func NewPublicKey(b []byte) (*PublicKey, error) {
	p, err := curve.NewPoint().SetBytes(b)
	if err != nil {
		return nil, ErrInvalidPublicKey.WithCause(err)
	}
	return newPublicKey(p)
}

// NewPublicKeyFromHex parses a hex encoded public key.
func NewPublicKeyFromHex(s string) (*PublicKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidPublicKey.WithCause(ErrDecode.WithCause(err))
	}
	return NewPublicKey(b)
}

// ValidatePublicKey reports whether b encodes a point on the curve. It
// never returns an error.
func ValidatePublicKey(b []byte) bool {
	_, err := NewPublicKey(b)
	return err == nil
}

// ComparePublicKeys reports whether a and b, in any accepted encoding,
// name the same point. Invalid encodings compare unequal.
func ComparePublicKeys(a, b []byte) bool {
	ka, err := NewPublicKey(a)
	if err != nil {
		return false
	}
	kb, err := NewPublicKey(b)
	if err != nil {
		return false
	}
	return ka.Equal(kb)
}

// CompressPublicKey re-encodes a public key in the 33-byte compressed form.
func CompressPublicKey(b []byte) ([]byte, error) {
	pub, err := NewPublicKey(b)
	if err != nil {
		return nil, err
	}
	return pub.Bytes(true), nil
}

// Bytes returns the public key in encoded format.
// If compressed is true, returns 33 bytes (0x02/0x03 + X).
// If compressed is false, returns 65 bytes (0x04 + X + Y).
func (pub *PublicKey) Bytes(compressed bool) []byte {
	if compressed {
		return pub.point.BytesCompressed()
	}
	return pub.point.Bytes()
}

// Hex returns the public key in hexadecimal encoding.
func (pub *PublicKey) Hex(compressed bool) string {
	return hex.EncodeToString(pub.Bytes(compressed))
}

// X returns the 32-byte affine x-coordinate.
func (pub *PublicKey) X() []byte {
	return append([]byte(nil), pub.x...)
}

// Y returns the 32-byte affine y-coordinate.
func (pub *PublicKey) Y() []byte {
	return append([]byte(nil), pub.y...)
}

// Validate re-checks that the key is a finite point on the curve.
func (pub *PublicKey) Validate() error {
	if pub == nil || pub.point == nil {
		return ErrPublicKeyEmpty
	}
	if pub.point.IsInfinity() == 1 {
		return ErrInvalidPublicKey
	}
	if _, err := curve.NewPoint().SetBytes(pub.point.Bytes()); err != nil {
		return ErrInvalidPublicKey.WithCause(err)
	}
	return nil
}

// Equal reports whether pub and other are the same point.
func (pub *PublicKey) Equal(other *PublicKey) bool {
	if pub == nil || other == nil {
		return pub == other
	}
	eqX := subtle.ConstantTimeCompare(pub.x, other.x)
	eqY := subtle.ConstantTimeCompare(pub.y, other.y)
	return eqX&eqY == 1
}
