// Package bytesutil holds small byte helpers shared by the sm2 package.
package bytesutil

import "crypto/subtle"

// ZeroPad pads the byte slice to the specified length by prepending zeros.
// It reports false when b is longer than length.
func ZeroPad(b []byte, length int) ([]byte, bool) {
	if len(b) > length {
		return nil, false
	}
	if len(b) == length {
		return b, true
	}
	result := make([]byte, length)
	copy(result[length-len(b):], b)
	return result, true
}

// XOR sets dst[i] = a[i] ^ b[i] for i < len(dst). a and b must be at least
// len(dst) long.
func XOR(dst, a, b []byte) {
	subtle.XORBytes(dst, a[:len(dst)], b[:len(dst)])
}

// AllZero reports whether every byte of b is zero, in time that depends
// only on len(b).
func AllZero(b []byte) bool {
	var acc byte
	for _, v := range b {
		acc |= v
	}
	return subtle.ConstantTimeByteEq(acc, 0) == 1
}

// Wipe overwrites b with zeros.
func Wipe(b []byte) {
	clear(b)
}
