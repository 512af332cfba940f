package sm2

import (
	"encoding/binary"
	"strconv"
)

// KDF derives length bytes from z: the concatenation of H(z || ct) for a
// 32-bit big-endian counter ct starting at 1, truncated to length.
func KDF(h HashFunc, z []byte, length int) ([]byte, error) {
	if h == nil {
		h = DefaultHash
	}
	md := h()
	size := md.Size()
	if length < 0 || uint64(length) > uint64(size)*0xffffffff {
		return nil, ErrKeyDerivationFailed.WithMetadata(map[string]string{"length": strconv.Itoa(length)})
	}

	out := make([]byte, 0, length+size)
	var ct [4]byte
	for counter := uint32(1); len(out) < length; counter++ {
		binary.BigEndian.PutUint32(ct[:], counter)
		md.Reset()
		md.Write(z)
		md.Write(ct[:])
		out = md.Sum(out)
	}
	clear(out[length:])
	return out[:length], nil
}
