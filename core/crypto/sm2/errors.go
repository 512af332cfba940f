package sm2

import (
	"github.com/kochabx/gmkit/errors"
)

// Key-related errors
var (
	// ErrInvalidPrivateKey indicates a private key outside [1, n-2] or of bad length
	ErrInvalidPrivateKey = errors.InvalidKey("sm2: invalid private key")

	// ErrInvalidPublicKey indicates a public key that is malformed or not on the curve
	ErrInvalidPublicKey = errors.InvalidKey("sm2: invalid public key")

	// ErrPrivateKeyEmpty indicates that the private key is nil
	ErrPrivateKeyEmpty = errors.InvalidKey("sm2: private key is empty")

	// ErrPublicKeyEmpty indicates that the public key is nil
	ErrPublicKeyEmpty = errors.InvalidKey("sm2: public key is empty")

	// ErrUserIDTooLong indicates a user id whose bit length does not fit ENTL
	ErrUserIDTooLong = errors.InvalidKey("sm2: user id too long")
)

// Decoding errors
var (
	// ErrDecode indicates malformed hex or structural input
	ErrDecode = errors.Decode("sm2: malformed input")

	// ErrCiphertextTooShort indicates a ciphertext shorter than C1 plus C3
	ErrCiphertextTooShort = errors.Decode("sm2: ciphertext too short")

	// ErrInvalidSignature indicates a signature that cannot be parsed or is out of range
	ErrInvalidSignature = errors.Decode("sm2: invalid signature encoding")

	// ErrUnknownCipherMode indicates a cipher mode outside C1C3C2 and C1C2C3
	ErrUnknownCipherMode = errors.Decode("sm2: unknown cipher mode")
)

// Encryption/Decryption errors
var (
	// ErrInvalidCiphertext indicates a C1 that is not a valid curve point
	ErrInvalidCiphertext = errors.InvalidCiphertext("sm2: invalid ciphertext")

	// ErrIntegrity indicates that the recomputed C3 did not match
	ErrIntegrity = errors.Integrity("sm2: ciphertext integrity check failed")

	// ErrEncryptionFailed indicates a general encryption failure
	ErrEncryptionFailed = errors.Encrypt("sm2: encryption failed")
)

// Derivation and randomness errors
var (
	// ErrKeyDerivationFailed indicates a KDF length that cannot be produced
	ErrKeyDerivationFailed = errors.Derive("sm2: key derivation failed")

	// ErrRetriesExhausted indicates that no usable random scalar was drawn
	ErrRetriesExhausted = errors.Range("sm2: random scalar retries exhausted")
)
