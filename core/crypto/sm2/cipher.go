package sm2

import (
	"io"

	"github.com/kochabx/gmkit/core/crypto/sm2/internal/bytesutil"
	"github.com/kochabx/gmkit/core/crypto/sm2/internal/curve"
	"github.com/kochabx/gmkit/core/crypto/sm2/internal/field"
	"github.com/kochabx/gmkit/errors"
)

// scalarMultFunc computes k·P for a fixed public point P.
type scalarMultFunc func(k []byte) (*curve.Point, error)

func (pub *PublicKey) scalarMult(k []byte) (*curve.Point, error) {
	return curve.NewPoint().ScalarMult(pub.point, k)
}

// Encrypt encrypts msg to pub.
//
// The encryption process:
//  1. Draw k in [1, n-1] and compute C1 = k·G
//  2. Compute (x2, y2) = k·P, redrawing k if it is the point at infinity
//  3. Derive t = KDF(x2 || y2, len(msg)), redrawing k if t is all zero
//  4. C2 = msg XOR t, C3 = H(x2 || msg || y2)
//  5. Return C1 || C3 || C2 (or C1 || C2 || C3, or the ASN.1 form)
//
// An empty message is valid and produces an empty C2.
func Encrypt(random io.Reader, pub *PublicKey, msg []byte, opts ...Option) ([]byte, error) {
	if pub == nil || pub.point == nil {
		return nil, ErrPublicKeyEmpty
	}
	return encrypt(random, pub.scalarMult, msg, newOptions(opts))
}

func encrypt(random io.Reader, mulP scalarMultFunc, msg []byte, o *Options) ([]byte, error) {
	if !o.Mode.Valid() {
		return nil, ErrUnknownCipherMode
	}

	for retry := 0; retry < maxRetries; retry++ {
		k, err := randomScalar(random)
		if err != nil {
			return nil, ErrEncryptionFailed.WithCause(err)
		}
		kb := field.N.Bytes(k)
		field.N.Zero(k)

		c1, err := curve.NewPoint().ScalarBaseMult(kb)
		if err != nil {
			bytesutil.Wipe(kb)
			return nil, ErrEncryptionFailed.WithCause(err)
		}
		shared, err := mulP(kb)
		bytesutil.Wipe(kb)
		if err != nil {
			return nil, ErrEncryptionFailed.WithCause(err)
		}
		if shared.IsInfinity() == 1 {
			continue
		}

		x2, y2, _ := shared.BytesXY()
		c2, c3, err := seal(o.Hash, x2, y2, msg)
		bytesutil.Wipe(x2)
		bytesutil.Wipe(y2)
		if err == errZeroMask {
			continue
		}
		if err != nil {
			return nil, ErrEncryptionFailed.WithCause(err)
		}

		x1, y1, _ := c1.BytesXY()
		return encodeCiphertext(o, x1, y1, c2, c3)
	}
	return nil, ErrEncryptionFailed.WithCause(ErrRetriesExhausted)
}

// errZeroMask signals an all-zero KDF output; the caller redraws k.
var errZeroMask = ErrKeyDerivationFailed.WithMetadata(map[string]string{"reason": "zero mask"})

// seal returns C2 = msg XOR KDF(x2 || y2) and C3 = H(x2 || msg || y2).
func seal(h HashFunc, x2, y2, msg []byte) (c2, c3 []byte, err error) {
	t, err := deriveMask(h, x2, y2, len(msg))
	if err != nil {
		return nil, nil, err
	}
	defer bytesutil.Wipe(t)

	c2 = make([]byte, len(msg))
	bytesutil.XOR(c2, msg, t)
	return c2, checkValue(h, x2, msg, y2), nil
}

func deriveMask(h HashFunc, x2, y2 []byte, length int) ([]byte, error) {
	z := getBuffer(2 * KeySize)
	defer putBuffer(z)
	z = append(z, x2...)
	z = append(z, y2...)

	t, err := KDF(h, z, length)
	if err != nil {
		return nil, err
	}
	if length > 0 && bytesutil.AllZero(t) {
		return nil, errZeroMask
	}
	return t, nil
}

func checkValue(h HashFunc, x2, msg, y2 []byte) []byte {
	md := h()
	md.Write(x2)
	md.Write(msg)
	md.Write(y2)
	return md.Sum(nil)
}

// Decrypt decrypts a ciphertext produced by Encrypt with the same options.
//
// Malformed layouts and undecodable C1 coordinates fail with ErrDecode or
// ErrCiphertextTooShort, a C1 off the curve with ErrInvalidCiphertext and a C3 mismatch with ErrIntegrity.
// No plaintext is returned on any failure.
func Decrypt(priv *PrivateKey, ciphertext []byte, opts ...Option) ([]byte, error) {
	if priv == nil || priv.destroyed {
		return nil, ErrPrivateKeyEmpty
	}
	o := newOptions(opts)
	if !o.Mode.Valid() {
		return nil, ErrUnknownCipherMode
	}

	parts, err := decodeCiphertext(o, ciphertext)
	if err != nil {
		return nil, err
	}

	c1, err := curve.NewPoint().SetBytes(parts.c1)
	switch {
	case errors.Is(err, curve.ErrInvalidEncoding):
		// a coordinate outside [0, p)
		return nil, ErrDecode.WithCause(err)
	case err != nil:
		return nil, ErrInvalidCiphertext.WithCause(err)
	}

	d := field.N.Bytes(&priv.d)
	shared, err := curve.NewPoint().ScalarMult(c1, d)
	bytesutil.Wipe(d)
	if err != nil {
		return nil, ErrInvalidCiphertext.WithCause(err)
	}
	x2, y2, err := shared.BytesXY()
	if err != nil {
		return nil, ErrInvalidCiphertext.WithCause(err)
	}
	defer bytesutil.Wipe(x2)
	defer bytesutil.Wipe(y2)

	t, err := deriveMask(o.Hash, x2, y2, len(parts.c2))
	if err != nil {
		return nil, ErrInvalidCiphertext.WithCause(err)
	}
	defer bytesutil.Wipe(t)

	msg := make([]byte, len(parts.c2))
	bytesutil.XOR(msg, parts.c2, t)

	if !constantTimeEqual(checkValue(o.Hash, x2, msg, y2), parts.c3) {
		bytesutil.Wipe(msg)
		return nil, ErrIntegrity
	}
	return msg, nil
}
