// Package curve implements the SM2 elliptic curve y² = x³ - 3x + b over the
// prime field P, using homogeneous projective coordinates and the complete
// addition formulas of Renes, Costello and Batina for a = -3. The formulas
// have no exceptional cases, so the identity needs no special handling.
package curve

import (
	"encoding/hex"

	"github.com/kochabx/gmkit/core/crypto/sm2/internal/field"
	"github.com/kochabx/gmkit/errors"
)

// Encoding tags.
const (
	TagCompressedEven = 0x02
	TagCompressedOdd  = 0x03
	TagUncompressed   = 0x04

	CoordinateSize   = field.Size
	UncompressedSize = 1 + 2*CoordinateSize
	CompressedSize   = 1 + CoordinateSize
)

var (
	// ErrInvalidEncoding reports a point encoding with a bad length, tag or
	// out-of-range coordinate, or a compressed x with no matching y.
	ErrInvalidEncoding = errors.Decode("sm2: invalid point encoding")
	// ErrNotOnCurve reports coordinates that do not satisfy the curve equation.
	ErrNotOnCurve = errors.InvalidKey("sm2: point not on curve")
	// ErrInfinity reports an operation that needs an affine point.
	ErrInfinity = errors.Range("sm2: point at infinity")
	// ErrScalarLength reports a scalar that is not exactly 32 bytes.
	ErrScalarLength = errors.Range("sm2: invalid scalar length")
)

var (
	curveB  field.Element
	genX    field.Element
	genY    field.Element
	bytesA  []byte
	bytesB  []byte
	bytesGx []byte
	bytesGy []byte
)

func mustElement(s string) (field.Element, []byte) {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	var e field.Element
	if _, ok := field.P.SetBytes(&e, b); !ok {
		panic("curve: constant out of range " + s)
	}
	return e, b
}

func init() {
	_, bytesA = mustElement("FFFFFFFEFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFF00000000FFFFFFFFFFFFFFFC")
	curveB, bytesB = mustElement("28E9FA9E9D9F5E344D5A9E4BCF6509A7F39789F515AB8F92DDBCBD414D940E93")
	genX, bytesGx = mustElement("32C4AE2C1F1981195F9904466A39C9948FE30BBFF2660BE1715A4589334C74C7")
	genY, bytesGy = mustElement("BC3736A2F4F6779C59BDCEE36B692153D0A9877CC62A474002DF32E52139F0A0")
}

// A returns the 32-byte encoding of the curve coefficient a.
func A() []byte { return clone(bytesA) }

// B returns the 32-byte encoding of the curve coefficient b.
func B() []byte { return clone(bytesB) }

// Gx returns the 32-byte x-coordinate of the base point.
func Gx() []byte { return clone(bytesGx) }

// Gy returns the 32-byte y-coordinate of the base point.
func Gy() []byte { return clone(bytesGy) }

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}

// Point is a projective point (X:Y:Z) representing (X/Z, Y/Z). The zero
// value is not valid, use NewPoint.
type Point struct {
	x, y, z field.Element
}

// NewPoint returns the point at infinity.
func NewPoint() *Point {
	p := &Point{}
	field.P.One(&p.y)
	return p
}

// NewGenerator returns the base point G.
func NewGenerator() *Point {
	p := &Point{x: genX, y: genY}
	field.P.One(&p.z)
	return p
}

// Set sets p = q.
func (p *Point) Set(q *Point) *Point {
	*p = *q
	return p
}

// polynomial returns x³ - 3x + b.
func polynomial(y2, x *field.Element) *field.Element {
	f := field.P
	var threeX field.Element
	f.Square(y2, x)
	f.Mul(y2, y2, x)

	f.Add(&threeX, x, x)
	f.Add(&threeX, &threeX, x)
	f.Sub(y2, y2, &threeX)
	return f.Add(y2, y2, &curveB)
}

// IsOnCurve reports whether the affine coordinates satisfy the curve equation.
func IsOnCurve(x, y *field.Element) bool {
	var rhs, lhs field.Element
	polynomial(&rhs, x)
	field.P.Square(&lhs, y)
	return field.P.Equal(&lhs, &rhs) == 1
}

// SetBytes decodes an uncompressed (0x04) or compressed (0x02, 0x03) point.
// The point at infinity has no accepted encoding. On error p is unchanged.
func (p *Point) SetBytes(b []byte) (*Point, error) {
	f := field.P
	switch {
	case len(b) == UncompressedSize && b[0] == TagUncompressed:
		var x, y field.Element
		if _, ok := f.SetBytes(&x, b[1:1+CoordinateSize]); !ok {
			return p, ErrInvalidEncoding
		}
		if _, ok := f.SetBytes(&y, b[1+CoordinateSize:]); !ok {
			return p, ErrInvalidEncoding
		}
		if !IsOnCurve(&x, &y) {
			return p, ErrNotOnCurve
		}
		p.x, p.y = x, y
		f.One(&p.z)
		return p, nil

	case len(b) == CompressedSize && (b[0] == TagCompressedEven || b[0] == TagCompressedOdd):
		var x, y, negY, y2 field.Element
		if _, ok := f.SetBytes(&x, b[1:]); !ok {
			return p, ErrInvalidEncoding
		}
		polynomial(&y2, &x)
		if _, ok := f.Sqrt(&y, &y2); !ok {
			return p, ErrInvalidEncoding
		}
		f.Neg(&negY, &y)
		wantOdd := int(b[0] & 1)
		field.Select(&y, &negY, &y, f.IsOdd(&y)^wantOdd)
		p.x, p.y = x, y
		f.One(&p.z)
		return p, nil
	}
	return p, ErrInvalidEncoding
}

// Affine returns the affine coordinates of p as canonical elements.
func (p *Point) Affine() (x, y field.Element, err error) {
	f := field.P
	if f.IsZero(&p.z) == 1 {
		return x, y, ErrInfinity
	}
	var zinv field.Element
	f.Inverse(&zinv, &p.z)
	f.Mul(&x, &p.x, &zinv)
	f.Mul(&y, &p.y, &zinv)
	return x, y, nil
}

// Bytes returns the 65-byte uncompressed encoding of p, or the single byte
// 0x00 for the point at infinity.
func (p *Point) Bytes() []byte {
	x, y, err := p.Affine()
	if err != nil {
		return []byte{0}
	}
	out := make([]byte, UncompressedSize)
	out[0] = TagUncompressed
	field.P.FillBytes(out[1:], &x)
	field.P.FillBytes(out[1+CoordinateSize:], &y)
	return out
}

// BytesCompressed returns the 33-byte compressed encoding of p, or the
// single byte 0x00 for the point at infinity.
func (p *Point) BytesCompressed() []byte {
	x, y, err := p.Affine()
	if err != nil {
		return []byte{0}
	}
	out := make([]byte, CompressedSize)
	out[0] = TagCompressedEven | byte(field.P.IsOdd(&y))
	field.P.FillBytes(out[1:], &x)
	return out
}

// BytesXY returns the two 32-byte affine coordinates of p.
func (p *Point) BytesXY() (x, y []byte, err error) {
	ex, ey, err := p.Affine()
	if err != nil {
		return nil, nil, err
	}
	return field.P.Bytes(&ex), field.P.Bytes(&ey), nil
}

// IsInfinity returns 1 if p is the point at infinity and 0 otherwise.
func (p *Point) IsInfinity() int {
	return field.P.IsZero(&p.z)
}

// Equal returns 1 if p and q represent the same point and 0 otherwise.
func (p *Point) Equal(q *Point) int {
	f := field.P
	var l, r field.Element
	f.Mul(&l, &p.x, &q.z)
	f.Mul(&r, &q.x, &p.z)
	eqX := f.Equal(&l, &r)
	f.Mul(&l, &p.y, &q.z)
	f.Mul(&r, &q.y, &p.z)
	return eqX & f.Equal(&l, &r)
}

// Negate sets p = -q.
func (p *Point) Negate(q *Point) *Point {
	p.x = q.x
	field.P.Neg(&p.y, &q.y)
	p.z = q.z
	return p
}

// Select sets p = a if cond == 1 and p = b if cond == 0.
func (p *Point) Select(a, b *Point, cond int) *Point {
	field.Select(&p.x, &a.x, &b.x, cond)
	field.Select(&p.y, &a.y, &b.y, cond)
	field.Select(&p.z, &a.z, &b.z, cond)
	return p
}

// Add sets p = p1 + p2.
func (p *Point) Add(p1, p2 *Point) *Point {
	f := field.P
	var t0, t1, t2, t3, t4, x3, y3, z3 field.Element

	f.Mul(&t0, &p1.x, &p2.x)
	f.Mul(&t1, &p1.y, &p2.y)
	f.Mul(&t2, &p1.z, &p2.z)
	f.Add(&t3, &p1.x, &p1.y)
	f.Add(&t4, &p2.x, &p2.y)
	f.Mul(&t3, &t3, &t4)
	f.Add(&t4, &t0, &t1)
	f.Sub(&t3, &t3, &t4)
	f.Add(&t4, &p1.y, &p1.z)
	f.Add(&x3, &p2.y, &p2.z)
	f.Mul(&t4, &t4, &x3)
	f.Add(&x3, &t1, &t2)
	f.Sub(&t4, &t4, &x3)
	f.Add(&x3, &p1.x, &p1.z)
	f.Add(&y3, &p2.x, &p2.z)
	f.Mul(&x3, &x3, &y3)
	f.Add(&y3, &t0, &t2)
	f.Sub(&y3, &x3, &y3)
	f.Mul(&z3, &curveB, &t2)
	f.Sub(&x3, &y3, &z3)
	f.Add(&z3, &x3, &x3)
	f.Add(&x3, &x3, &z3)
	f.Sub(&z3, &t1, &x3)
	f.Add(&x3, &t1, &x3)
	f.Mul(&y3, &curveB, &y3)
	f.Add(&t1, &t2, &t2)
	f.Add(&t2, &t1, &t2)
	f.Sub(&y3, &y3, &t2)
	f.Sub(&y3, &y3, &t0)
	f.Add(&t1, &y3, &y3)
	f.Add(&y3, &t1, &y3)
	f.Add(&t1, &t0, &t0)
	f.Add(&t0, &t1, &t0)
	f.Sub(&t0, &t0, &t2)
	f.Mul(&t1, &t4, &y3)
	f.Mul(&t2, &t0, &y3)
	f.Mul(&y3, &x3, &z3)
	f.Add(&y3, &y3, &t2)
	f.Mul(&x3, &x3, &t3)
	f.Sub(&x3, &x3, &t1)
	f.Mul(&z3, &z3, &t4)
	f.Mul(&t1, &t3, &t0)
	f.Add(&z3, &z3, &t1)

	p.x, p.y, p.z = x3, y3, z3
	return p
}

// Double sets p = 2q.
func (p *Point) Double(q *Point) *Point {
	f := field.P
	var t0, t1, t2, t3, x3, y3, z3 field.Element

	f.Square(&t0, &q.x)
	f.Square(&t1, &q.y)
	f.Square(&t2, &q.z)
	f.Mul(&t3, &q.x, &q.y)
	f.Add(&t3, &t3, &t3)
	f.Mul(&z3, &q.x, &q.z)
	f.Add(&z3, &z3, &z3)
	f.Mul(&y3, &curveB, &t2)
	f.Sub(&y3, &y3, &z3)
	f.Add(&x3, &y3, &y3)
	f.Add(&y3, &x3, &y3)
	f.Sub(&x3, &t1, &y3)
	f.Add(&y3, &t1, &y3)
	f.Mul(&y3, &x3, &y3)
	f.Mul(&x3, &x3, &t3)
	f.Add(&t3, &t2, &t2)
	f.Add(&t2, &t2, &t3)
	f.Mul(&z3, &curveB, &z3)
	f.Sub(&z3, &z3, &t2)
	f.Sub(&z3, &z3, &t0)
	f.Add(&t3, &z3, &z3)
	f.Add(&z3, &z3, &t3)
	f.Add(&t3, &t0, &t0)
	f.Add(&t0, &t3, &t0)
	f.Sub(&t0, &t0, &t2)
	f.Mul(&t0, &t0, &z3)
	f.Add(&y3, &y3, &t0)
	f.Mul(&t0, &q.y, &q.z)
	f.Add(&t0, &t0, &t0)
	f.Mul(&z3, &t0, &z3)
	f.Sub(&x3, &x3, &z3)
	f.Mul(&z3, &t0, &t1)
	f.Add(&z3, &z3, &z3)
	f.Add(&z3, &z3, &z3)

	p.x, p.y, p.z = x3, y3, z3
	return p
}
