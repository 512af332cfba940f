package sm2

import (
	"math/big"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"

	"github.com/kochabx/gmkit/core/crypto/sm2/internal/bytesutil"
	"github.com/kochabx/gmkit/core/crypto/sm2/internal/curve"
)

// ciphertextParts holds a split ciphertext. c1 is always the tagged
// 65-byte uncompressed point.
type ciphertextParts struct {
	c1, c2, c3 []byte
}

func encodeCiphertext(o *Options, x1, y1, c2, c3 []byte) ([]byte, error) {
	if o.ASN1 {
		return encodeCiphertextASN1(x1, y1, c2, c3)
	}

	c1Len := c1Size
	if o.C1Tag {
		c1Len++
	}
	totalSize := c1Len + len(c2) + len(c3)

	result := getBuffer(totalSize)
	defer putBuffer(result)

	if o.C1Tag {
		result = append(result, curve.TagUncompressed)
	}
	result = append(result, x1...)
	result = append(result, y1...)
	switch o.Mode {
	case C1C2C3:
		result = append(result, c2...)
		result = append(result, c3...)
	default:
		result = append(result, c3...)
		result = append(result, c2...)
	}

	out := make([]byte, totalSize)
	copy(out, result)
	return out, nil
}

func decodeCiphertext(o *Options, ciphertext []byte) (*ciphertextParts, error) {
	if o.ASN1 {
		return decodeCiphertextASN1(ciphertext)
	}

	offset := 0
	if o.C1Tag {
		if len(ciphertext) == 0 || ciphertext[0] != curve.TagUncompressed {
			return nil, ErrDecode.WithMetadata(map[string]string{"field": "c1"})
		}
		offset = 1
	}
	if len(ciphertext)-offset < MinCiphertextSize {
		return nil, ErrCiphertextTooShort
	}

	c1 := make([]byte, 0, PublicKeySize)
	c1 = append(c1, curve.TagUncompressed)
	c1 = append(c1, ciphertext[offset:offset+c1Size]...)
	rest := ciphertext[offset+c1Size:]

	parts := &ciphertextParts{c1: c1}
	switch o.Mode {
	case C1C2C3:
		parts.c2 = rest[:len(rest)-DigestSize]
		parts.c3 = rest[len(rest)-DigestSize:]
	default:
		parts.c3 = rest[:DigestSize]
		parts.c2 = rest[DigestSize:]
	}
	return parts, nil
}

// encodeCiphertextASN1 writes
//
//	SM2Cipher ::= SEQUENCE {
//	    XCoordinate INTEGER,
//	    YCoordinate INTEGER,
//	    HASH        OCTET STRING,
//	    CipherText  OCTET STRING }
func encodeCiphertextASN1(x1, y1, c2, c3 []byte) ([]byte, error) {
	var b cryptobyte.Builder
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1BigInt(new(big.Int).SetBytes(x1))
		b.AddASN1BigInt(new(big.Int).SetBytes(y1))
		b.AddASN1OctetString(c3)
		b.AddASN1OctetString(c2)
	})
	out, err := b.Bytes()
	if err != nil {
		return nil, ErrEncryptionFailed.WithCause(err)
	}
	return out, nil
}

func decodeCiphertextASN1(der []byte) (*ciphertextParts, error) {
	var (
		inner  cryptobyte.String
		x, y   = new(big.Int), new(big.Int)
		c2, c3 []byte
	)
	input := cryptobyte.String(der)
	if !input.ReadASN1(&inner, asn1.SEQUENCE) || !input.Empty() ||
		!inner.ReadASN1Integer(x) ||
		!inner.ReadASN1Integer(y) ||
		!inner.ReadASN1Bytes(&c3, asn1.OCTET_STRING) ||
		!inner.ReadASN1Bytes(&c2, asn1.OCTET_STRING) ||
		!inner.Empty() {
		return nil, ErrDecode.WithMetadata(map[string]string{"field": "asn1 ciphertext"})
	}
	if len(c3) != DigestSize {
		return nil, ErrDecode.WithMetadata(map[string]string{"field": "c3"})
	}

	xb, okX := bigToFixed(x)
	yb, okY := bigToFixed(y)
	if !okX || !okY {
		return nil, ErrInvalidCiphertext
	}
	c1 := make([]byte, 0, PublicKeySize)
	c1 = append(c1, curve.TagUncompressed)
	c1 = append(c1, xb...)
	c1 = append(c1, yb...)
	return &ciphertextParts{c1: c1, c2: c2, c3: c3}, nil
}

// bigToFixed encodes a non-negative integer of at most 256 bits as 32 bytes.
func bigToFixed(v *big.Int) ([]byte, bool) {
	if v.Sign() < 0 {
		return nil, false
	}
	return bytesutil.ZeroPad(v.Bytes(), KeySize)
}
