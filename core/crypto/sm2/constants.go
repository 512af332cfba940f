package sm2

import (
	"github.com/kochabx/gmkit/core/crypto/sm2/internal/curve"
)

// Sizes of encoded values
const (
	// KeySize is the size in bytes of a private key and of each coordinate
	KeySize = curve.CoordinateSize

	// PublicKeySize is the size of an uncompressed public key
	// Format: [tag:1][X:32][Y:32]
	PublicKeySize = curve.UncompressedSize

	// CompressedPublicKeySize is the size of a compressed public key
	// Format: [tag:1][X:32]
	CompressedPublicKeySize = curve.CompressedSize

	// DigestSize is the SM3 output size
	DigestSize = 32

	// SignatureSize is the size of a raw r||s signature
	SignatureSize = 2 * KeySize
)

// Ciphertext format parameters
const (
	// c1Size is C1 without the 0x04 tag: [X:32][Y:32]
	c1Size = 2 * KeySize

	// MinCiphertextSize is the smallest plain ciphertext, one with an empty C2
	MinCiphertextSize = c1Size + DigestSize
)

const (
	// maxUserIDLength keeps ENTL, the bit length of the id, within 16 bits
	maxUserIDLength = 0xffff / 8

	// maxRetries bounds the loops that redraw the ephemeral scalar
	maxRetries = 16
)

// defaultUserID is "1234567812345678"
var defaultUserID = []byte{0x31, 0x32, 0x33, 0x34, 0x35, 0x36, 0x37, 0x38, 0x31, 0x32, 0x33, 0x34, 0x35, 0x36, 0x37, 0x38}

// DefaultUserID returns a copy of the default signer identity.
func DefaultUserID() []byte {
	return append([]byte(nil), defaultUserID...)
}
