package sm2

import (
	"encoding/hex"
	"math/big"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"

	"github.com/kochabx/gmkit/core/crypto/sm2/internal/field"
)

// Signature is an SM2 signature (r, s) with 1 <= r, s <= n-1.
type Signature struct {
	r, s field.Element
}

// R returns r as 32 big-endian bytes.
func (sig *Signature) R() []byte {
	return field.N.Bytes(&sig.r)
}

// S returns s as 32 big-endian bytes.
func (sig *Signature) S() []byte {
	return field.N.Bytes(&sig.s)
}

// Bytes returns the raw 64-byte r || s encoding.
func (sig *Signature) Bytes() []byte {
	out := make([]byte, SignatureSize)
	field.N.FillBytes(out[:KeySize], &sig.r)
	field.N.FillBytes(out[KeySize:], &sig.s)
	return out
}

// Hex returns the raw encoding as 128 hex digits.
func (sig *Signature) Hex() string {
	return hex.EncodeToString(sig.Bytes())
}

// ASN1 returns the DER encoding SEQUENCE { r INTEGER, s INTEGER }.
func (sig *Signature) ASN1() ([]byte, error) {
	var b cryptobyte.Builder
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1BigInt(new(big.Int).SetBytes(sig.R()))
		b.AddASN1BigInt(new(big.Int).SetBytes(sig.S()))
	})
	return b.Bytes()
}

// NewSignature builds a signature from 32-byte r and s, checking that both
// lie in [1, n-1].
func NewSignature(r, s []byte) (*Signature, error) {
	sig := &Signature{}
	if _, ok := field.N.SetBytes(&sig.r, r); !ok || field.N.IsZero(&sig.r) == 1 {
		return nil, ErrInvalidSignature.WithMetadata(map[string]string{"field": "r"})
	}
	if _, ok := field.N.SetBytes(&sig.s, s); !ok || field.N.IsZero(&sig.s) == 1 {
		return nil, ErrInvalidSignature.WithMetadata(map[string]string{"field": "s"})
	}
	return sig, nil
}

// ParseSignature parses the raw 64-byte r || s encoding.
func ParseSignature(b []byte) (*Signature, error) {
	if len(b) != SignatureSize {
		return nil, ErrInvalidSignature.WithMetadata(map[string]string{"field": "length"})
	}
	return NewSignature(b[:KeySize], b[KeySize:])
}

// ParseSignatureASN1 parses a DER signature. Trailing data is rejected.
func ParseSignatureASN1(der []byte) (*Signature, error) {
	var (
		inner cryptobyte.String
		r, s  = new(big.Int), new(big.Int)
	)
	input := cryptobyte.String(der)
	if !input.ReadASN1(&inner, asn1.SEQUENCE) || !input.Empty() ||
		!inner.ReadASN1Integer(r) ||
		!inner.ReadASN1Integer(s) ||
		!inner.Empty() {
		return nil, ErrInvalidSignature.WithMetadata(map[string]string{"field": "asn1"})
	}
	rb, okR := bigToFixed(r)
	sb, okS := bigToFixed(s)
	if !okR || !okS {
		return nil, ErrInvalidSignature.WithMetadata(map[string]string{"field": "asn1 range"})
	}
	return NewSignature(rb, sb)
}

// parseSignatureWith picks the encoding from the options.
func parseSignatureWith(o *Options, b []byte) (*Signature, error) {
	if o.DER {
		return ParseSignatureASN1(b)
	}
	return ParseSignature(b)
}

// encodeSignatureWith picks the encoding from the options.
func encodeSignatureWith(o *Options, sig *Signature) ([]byte, error) {
	if o.DER {
		return sig.ASN1()
	}
	return sig.Bytes(), nil
}
