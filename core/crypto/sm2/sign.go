package sm2

import (
	"encoding/binary"
	"io"

	"github.com/kochabx/gmkit/core/crypto/sm2/internal/bytesutil"
	"github.com/kochabx/gmkit/core/crypto/sm2/internal/curve"
	"github.com/kochabx/gmkit/core/crypto/sm2/internal/field"
)

// CalculateZA returns H(ENTL || ID || a || b || Gx || Gy || Px || Py),
// where ENTL is the 16-bit big-endian bit length of uid.
func CalculateZA(h HashFunc, pub *PublicKey, uid []byte) ([]byte, error) {
	if pub == nil {
		return nil, ErrPublicKeyEmpty
	}
	if len(uid) > maxUserIDLength {
		return nil, ErrUserIDTooLong
	}
	if h == nil {
		h = DefaultHash
	}

	var entl [2]byte
	binary.BigEndian.PutUint16(entl[:], uint16(len(uid)*8))

	md := h()
	md.Write(entl[:])
	md.Write(uid)
	md.Write(curve.A())
	md.Write(curve.B())
	md.Write(curve.Gx())
	md.Write(curve.Gy())
	md.Write(pub.x)
	md.Write(pub.y)
	return md.Sum(nil), nil
}

// messageDigest returns e as a scalar: the caller's digest when Prehashed
// is set, H(ZA || msg) otherwise.
func messageDigest(o *Options, pub *PublicKey, msg []byte) (*field.Element, error) {
	var e field.Element
	if o.Prehashed {
		return field.N.SetBytesReduced(&e, msg), nil
	}

	za, err := CalculateZA(o.Hash, pub, o.UserID)
	if err != nil {
		return nil, err
	}
	md := o.Hash()
	md.Write(za)
	md.Write(msg)
	return field.N.SetBytesReduced(&e, md.Sum(nil)), nil
}

// Sign signs msg with priv.
//
// The signing process:
//  1. e = H(ZA || msg), or msg itself with WithPrehashed
//  2. Draw k in [1, n-1], (x1, y1) = k·G
//  3. r = (e + x1) mod n, redraw k if r = 0 or r + k = n
//  4. s = (1+d)^-1 · (k - r·d) mod n, redraw k if s = 0
func Sign(random io.Reader, priv *PrivateKey, msg []byte, opts ...Option) (*Signature, error) {
	if priv == nil || priv.destroyed {
		return nil, ErrPrivateKeyEmpty
	}
	o := newOptions(opts)
	pub := o.PublicKey
	if pub == nil {
		pub = priv.publicKey
	}

	e, err := messageDigest(o, pub, msg)
	if err != nil {
		return nil, err
	}

	var k field.Element
	for retry := 0; retry < maxRetries; retry++ {
		sig, ok, err := signAttempt(random, priv, e, &k)
		if err != nil {
			return nil, err
		}
		if ok {
			return sig, nil
		}
	}
	return nil, ErrRetriesExhausted
}

// signAttempt draws k into the caller's element and signs once. k is zero
// again when it returns; ok is false when k must be redrawn.
func signAttempt(random io.Reader, priv *PrivateKey, e, k *field.Element) (sig *Signature, ok bool, err error) {
	f := field.N
	defer f.Zero(k)
	if err = readScalar(random, k); err != nil {
		return nil, false, err
	}

	kb := f.Bytes(k)
	p, err := curve.NewPoint().ScalarBaseMult(kb)
	bytesutil.Wipe(kb)
	if err != nil {
		return nil, false, err
	}
	x1, _, err := p.BytesXY()
	if err != nil {
		return nil, false, nil
	}

	sig = &Signature{}
	f.SetBytesReduced(&sig.r, x1)
	f.Add(&sig.r, &sig.r, e)

	var rk field.Element
	f.Add(&rk, &sig.r, k)
	if f.IsZero(&sig.r)|f.IsZero(&rk) == 1 {
		return nil, false, nil
	}

	var rd field.Element
	defer f.Zero(&rd)
	f.Mul(&rd, &sig.r, &priv.d)
	f.Sub(&sig.s, k, &rd)
	f.Mul(&sig.s, &sig.s, &priv.dPlus1Inv)
	if f.IsZero(&sig.s) == 1 {
		return nil, false, nil
	}
	return sig, true, nil
}

// Verify reports whether sig is a valid signature of msg by pub. It never
// fails with an error; malformed keys or out-of-range signatures are false.
func Verify(pub *PublicKey, msg []byte, sig *Signature, opts ...Option) bool {
	if pub == nil || pub.point == nil {
		return false
	}
	return verify(pub, pub.scalarMult, msg, sig, newOptions(opts))
}

func verify(pub *PublicKey, mulP scalarMultFunc, msg []byte, sig *Signature, o *Options) bool {
	if sig == nil {
		return false
	}
	f := field.N
	if f.IsZero(&sig.r)|f.IsZero(&sig.s) == 1 {
		return false
	}

	zaKey := pub
	if o.PublicKey != nil {
		zaKey = o.PublicKey
	}
	e, err := messageDigest(o, zaKey, msg)
	if err != nil {
		return false
	}

	var t field.Element
	f.Add(&t, &sig.r, &sig.s)
	if f.IsZero(&t) == 1 {
		return false
	}

	sG, err := curve.NewPoint().ScalarBaseMult(f.Bytes(&sig.s))
	if err != nil {
		return false
	}
	tP, err := mulP(f.Bytes(&t))
	if err != nil {
		return false
	}
	x1, _, err := sG.Add(sG, tP).BytesXY()
	if err != nil {
		return false
	}

	var rr field.Element
	f.SetBytesReduced(&rr, x1)
	f.Add(&rr, &rr, e)
	return f.Equal(&rr, &sig.r) == 1
}

// SignBytes signs msg and encodes the signature as selected by the options
// (raw r || s by default, DER with WithDER).
func SignBytes(random io.Reader, priv *PrivateKey, msg []byte, opts ...Option) ([]byte, error) {
	sig, err := Sign(random, priv, msg, opts...)
	if err != nil {
		return nil, err
	}
	return encodeSignatureWith(newOptions(opts), sig)
}

// VerifyBytes parses an encoded signature as selected by the options and
// verifies it. Unparseable signatures are false.
func VerifyBytes(pub *PublicKey, msg, sig []byte, opts ...Option) bool {
	o := newOptions(opts)
	parsed, err := parseSignatureWith(o, sig)
	if err != nil {
		return false
	}
	if pub == nil || pub.point == nil {
		return false
	}
	return verify(pub, pub.scalarMult, msg, parsed, o)
}
