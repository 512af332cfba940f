package sm2

import (
	"encoding/hex"
	"io"

	"github.com/kochabx/gmkit/core/crypto/sm2/internal/curve"
)

// PrecomputedKey is a public key with a fixed-base comb table of its point.
// Verification and encryption with it skip every doubling of the variable
// point multiplication. The table is built once and never modified, so a
// PrecomputedKey may be shared between goroutines.
type PrecomputedKey struct {
	*PublicKey
	table *curve.Table
}

// Precompute builds the comb table for pub (about 92 KiB).
func Precompute(pub *PublicKey) (*PrecomputedKey, error) {
	if pub == nil || pub.point == nil {
		return nil, ErrPublicKeyEmpty
	}
	return &PrecomputedKey{PublicKey: pub, table: curve.NewTable(pub.point)}, nil
}

func (pk *PrecomputedKey) scalarMult(k []byte) (*curve.Point, error) {
	return pk.table.ScalarMult(curve.NewPoint(), k)
}

// Verify is Verify with the precomputed table.
func (pk *PrecomputedKey) Verify(msg []byte, sig *Signature, opts ...Option) bool {
	return verify(pk.PublicKey, pk.scalarMult, msg, sig, newOptions(opts))
}

// VerifyBytes is VerifyBytes with the precomputed table.
func (pk *PrecomputedKey) VerifyBytes(msg, sig []byte, opts ...Option) bool {
	o := newOptions(opts)
	parsed, err := parseSignatureWith(o, sig)
	if err != nil {
		return false
	}
	return verify(pk.PublicKey, pk.scalarMult, msg, parsed, o)
}

// Encrypt is Encrypt with the precomputed table.
func (pk *PrecomputedKey) Encrypt(random io.Reader, msg []byte, opts ...Option) ([]byte, error) {
	return encrypt(random, pk.scalarMult, msg, newOptions(opts))
}

// VerifyHex verifies a hex encoded signature. Malformed hex yields false.
func (pk *PrecomputedKey) VerifyHex(msg []byte, signatureHex string, opts ...Option) bool {
	raw, err := hex.DecodeString(signatureHex)
	if err != nil {
		return false
	}
	return pk.VerifyBytes(msg, raw, opts...)
}
