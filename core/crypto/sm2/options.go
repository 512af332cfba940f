package sm2

import (
	"hash"
	"strings"

	"github.com/emmansun/gmsm/sm3"
)

// HashFunc returns a fresh hash. Every digest in the package (ZA, e, the
// KDF and C3) is taken with it.
type HashFunc func() hash.Hash

// DefaultHash is SM3.
var DefaultHash HashFunc = sm3.New

// CipherMode selects the order of the ciphertext components. The numeric
// values are part of the wire contract with existing JavaScript clients.
type CipherMode int

const (
	// C1C2C3 is the layout of the original GB/T 32918 draft.
	C1C2C3 CipherMode = 0
	// C1C3C2 is the standard layout and the default.
	C1C3C2 CipherMode = 1
)

// String returns the layout name.
func (m CipherMode) String() string {
	switch m {
	case C1C2C3:
		return "C1C2C3"
	case C1C3C2:
		return "C1C3C2"
	}
	return "unknown"
}

// Valid reports whether m is one of the two defined layouts.
func (m CipherMode) Valid() bool {
	return m == C1C2C3 || m == C1C3C2
}

// ParseCipherMode parses "C1C3C2" or "C1C2C3" (case-insensitive).
func ParseCipherMode(s string) (CipherMode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "C1C3C2", "1":
		return C1C3C2, nil
	case "C1C2C3", "0":
		return C1C2C3, nil
	}
	return 0, ErrUnknownCipherMode.WithMetadata(map[string]string{"mode": s})
}

// Options collects the per-call settings for encryption and signatures.
type Options struct {
	UserID    []byte
	Prehashed bool
	PublicKey *PublicKey
	DER       bool
	Mode      CipherMode
	ASN1      bool
	C1Tag     bool
	Hash      HashFunc
}

// Option configures a single operation.
type Option func(*Options)

func newOptions(opts []Option) *Options {
	o := &Options{
		UserID: defaultUserID,
		Mode:   C1C3C2,
		Hash:   DefaultHash,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithUserID sets the signer identity used in ZA.
func WithUserID(uid []byte) Option {
	return func(o *Options) {
		o.UserID = uid
	}
}

// WithPrehashed makes Sign and Verify treat the message as the digest e.
// ZA is not computed; inputs longer than 32 bytes are truncated.
func WithPrehashed() Option {
	return func(o *Options) {
		o.Prehashed = true
	}
}

// WithPublicKey supplies the signer's public key for ZA so that Sign does
// not need the one cached on the private key.
func WithPublicKey(pub *PublicKey) Option {
	return func(o *Options) {
		o.PublicKey = pub
	}
}

// WithDER selects the ASN.1 DER signature encoding.
func WithDER() Option {
	return func(o *Options) {
		o.DER = true
	}
}

// WithMode sets the ciphertext layout.
func WithMode(mode CipherMode) Option {
	return func(o *Options) {
		o.Mode = mode
	}
}

// WithASN1 selects the GM/T 0009 ASN.1 ciphertext encoding. The layout
// mode is ignored when it is set.
func WithASN1() Option {
	return func(o *Options) {
		o.ASN1 = true
	}
}

// WithC1Tag keeps the 0x04 tag in front of C1.
func WithC1Tag() Option {
	return func(o *Options) {
		o.C1Tag = true
	}
}

// WithHashFunc replaces SM3.
func WithHashFunc(h HashFunc) Option {
	return func(o *Options) {
		if h != nil {
			o.Hash = h
		}
	}
}
