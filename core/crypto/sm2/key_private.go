package sm2

import (
	"crypto"
	"crypto/subtle"
	"encoding/hex"
	"io"

	"github.com/kochabx/gmkit/core/crypto/sm2/internal/bytesutil"
	"github.com/kochabx/gmkit/core/crypto/sm2/internal/curve"
	"github.com/kochabx/gmkit/core/crypto/sm2/internal/field"
)

// PrivateKey is an SM2 private key d in [1, n-2] with its public key and
// the cached inverse (1+d)^-1 mod n used by every signature.
//
// It implements crypto.Signer and crypto.Decrypter.
type PrivateKey struct {
	publicKey *PublicKey
	d         field.Element
	dPlus1Inv field.Element
	destroyed bool
}

// PublicKey returns the public key corresponding to this private key.
func (priv *PrivateKey) PublicKey() *PublicKey {
	return priv.publicKey
}

// Public implements crypto.Signer.
func (priv *PrivateKey) Public() crypto.PublicKey {
	return priv.publicKey
}

// Bytes returns the 32-byte big-endian private scalar.
func (priv *PrivateKey) Bytes() []byte {
	return field.N.Bytes(&priv.d)
}

// Hex returns the private key in hexadecimal encoding, 64 digits.
func (priv *PrivateKey) Hex() string {
	b := priv.Bytes()
	defer bytesutil.Wipe(b)
	return hex.EncodeToString(b)
}

// Equal compares two private keys in constant time.
func (priv *PrivateKey) Equal(other *PrivateKey) bool {
	if priv == nil || other == nil {
		return priv == other
	}
	return field.N.Equal(&priv.d, &other.d) == 1
}

// Destroy clears the private scalar. The key must not be used afterwards.
func (priv *PrivateKey) Destroy() {
	field.N.Zero(&priv.d)
	field.N.Zero(&priv.dPlus1Inv)
	priv.destroyed = true
}

// newPrivateKey validates d and fills the derived values.
func newPrivateKey(d *field.Element) (*PrivateKey, error) {
	var dPlus1, one field.Element
	field.N.One(&one)
	field.N.Add(&dPlus1, d, &one)

	// d = 0 and d = n-1 are excluded; the latter has no (1+d)^-1.
	if field.N.IsZero(d)|field.N.IsZero(&dPlus1) == 1 {
		return nil, ErrInvalidPrivateKey
	}

	scalar := field.N.Bytes(d)
	defer bytesutil.Wipe(scalar)
	p, err := curve.NewPoint().ScalarBaseMult(scalar)
	if err != nil {
		return nil, ErrInvalidPrivateKey.WithCause(err)
	}
	pub, err := newPublicKey(p)
	if err != nil {
		return nil, err
	}

	priv := &PrivateKey{publicKey: pub, d: *d}
	field.N.Inverse(&priv.dPlus1Inv, &dPlus1)
	return priv, nil
}

// NewPrivateKey builds a private key from its big-endian encoding. Shorter
// inputs are left-padded with zeros.
func NewPrivateKey(b []byte) (*PrivateKey, error) {
	padded, ok := bytesutil.ZeroPad(b, KeySize)
	if !ok {
		return nil, ErrInvalidPrivateKey
	}
	var d field.Element
	if _, ok := field.N.SetBytes(&d, padded); !ok {
		return nil, ErrInvalidPrivateKey
	}
	return newPrivateKey(&d)
}

// NewPrivateKeyFromHex parses a hex encoded private key.
func NewPrivateKeyFromHex(s string) (*PrivateKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidPrivateKey.WithCause(ErrDecode.WithCause(err))
	}
	defer bytesutil.Wipe(b)
	return NewPrivateKey(b)
}

// randomScalar draws a uniform scalar in [1, n-1] by rejection sampling.
func randomScalar(random io.Reader) (*field.Element, error) {
	var k field.Element
	if err := readScalar(random, &k); err != nil {
		return nil, err
	}
	return &k, nil
}

// readScalar fills k with a uniform scalar in [1, n-1] by rejection sampling.
func readScalar(random io.Reader, k *field.Element) error {
	var buf [KeySize]byte
	defer bytesutil.Wipe(buf[:])

	for i := 0; i < 4*maxRetries; i++ {
		if _, err := io.ReadFull(random, buf[:]); err != nil {
			return ErrRetriesExhausted.WithCause(err)
		}
		if _, ok := field.N.SetBytes(k, buf[:]); ok && field.N.IsZero(k) == 0 {
			return nil
		}
	}
	return ErrRetriesExhausted
}

// GenerateKey generates a new key pair with d uniform in [1, n-2].
func GenerateKey(random io.Reader) (*PrivateKey, error) {
	for i := 0; i < maxRetries; i++ {
		d, err := randomScalar(random)
		if err != nil {
			return nil, err
		}
		priv, err := newPrivateKey(d)
		if err == nil {
			return priv, nil
		}
	}
	return nil, ErrRetriesExhausted
}

// Sign implements crypto.Signer. The input is the message itself, not a
// pre-computed digest, unless opts carries WithPrehashed. The signature is
// DER encoded unless opts is a *SignerOpts without WithDER.
func (priv *PrivateKey) Sign(random io.Reader, msg []byte, opts crypto.SignerOpts) ([]byte, error) {
	options := []Option{WithDER()}
	if so, ok := opts.(*SignerOpts); ok {
		options = so.Options
	}
	o := newOptions(options)
	sig, err := Sign(random, priv, msg, options...)
	if err != nil {
		return nil, err
	}
	if o.DER {
		return sig.ASN1()
	}
	return sig.Bytes(), nil
}

// Decrypt implements crypto.Decrypter. opts may be a *DecrypterOpts; the
// default layout is C1C3C2.
func (priv *PrivateKey) Decrypt(_ io.Reader, ciphertext []byte, opts crypto.DecrypterOpts) ([]byte, error) {
	var options []Option
	if do, ok := opts.(*DecrypterOpts); ok {
		options = do.Options
	}
	return Decrypt(priv, ciphertext, options...)
}

// SignerOpts carries per-call options through crypto.Signer.
type SignerOpts struct {
	Options []Option
}

// HashFunc returns zero: SM2 hashes the message itself.
func (*SignerOpts) HashFunc() crypto.Hash {
	return 0
}

// DecrypterOpts carries per-call options through crypto.Decrypter.
type DecrypterOpts struct {
	Options []Option
}

func constantTimeEqual(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
