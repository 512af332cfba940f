// Package field implements constant-time arithmetic modulo the two 256-bit
// moduli used by SM2: the curve prime p and the group order n.
//
// Elements are four 64-bit little-endian limbs kept in Montgomery form
// (x·R mod m, R = 2^256). Every operation runs the same instruction
// sequence regardless of operand values; carries and comparisons are
// turned into masks instead of branches.
package field

import (
	"encoding/binary"
	"math/big"
	"math/bits"
)

// Size is the byte length of a canonical encoding.
const Size = 32

// Element is a field element in Montgomery form. The zero value is zero.
// An Element carries no reference to its Field, callers must not mix
// elements of P and N.
type Element struct {
	l [4]uint64
}

// Field is an odd 256-bit modulus with its Montgomery constants.
type Field struct {
	m   [4]uint64
	inv uint64    // -m^-1 mod 2^64
	one [4]uint64 // R mod m
	rr  [4]uint64 // R^2 mod m

	invExp  [4]uint64 // m-2
	sqrtExp [4]uint64 // (m+1)/4
}

var (
	// P is the SM2 prime field.
	P = mustNew("FFFFFFFEFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFF00000000FFFFFFFFFFFFFFFF")
	// N is the scalar field, the order of the base point.
	N = mustNew("FFFFFFFEFFFFFFFFFFFFFFFFFFFFFFFF7203DF6B21C6052B53BBF40939D54123")
)

func mustNew(hexModulus string) *Field {
	m, ok := new(big.Int).SetString(hexModulus, 16)
	if !ok || m.Bit(0) == 0 || m.BitLen() != 256 {
		panic("field: invalid modulus " + hexModulus)
	}
	f := &Field{}
	f.m = toLimbs(m)

	// Newton iteration doubles the number of correct low bits each step.
	m0 := f.m[0]
	inv := uint64(1)
	for i := 0; i < 6; i++ {
		inv *= 2 - m0*inv
	}
	f.inv = -inv

	r := new(big.Int).Lsh(big.NewInt(1), 256)
	f.one = toLimbs(new(big.Int).Mod(r, m))
	f.rr = toLimbs(new(big.Int).Mod(new(big.Int).Mul(r, r), m))
	f.invExp = toLimbs(new(big.Int).Sub(m, big.NewInt(2)))
	f.sqrtExp = toLimbs(new(big.Int).Rsh(new(big.Int).Add(m, big.NewInt(1)), 2))
	return f
}

func toLimbs(x *big.Int) [4]uint64 {
	var buf [Size]byte
	x.FillBytes(buf[:])
	return limbsFromBytes(buf[:])
}

func limbsFromBytes(b []byte) [4]uint64 {
	return [4]uint64{
		binary.BigEndian.Uint64(b[24:32]),
		binary.BigEndian.Uint64(b[16:24]),
		binary.BigEndian.Uint64(b[8:16]),
		binary.BigEndian.Uint64(b[0:8]),
	}
}

// Modulus returns the 32-byte big-endian encoding of m.
func (f *Field) Modulus() []byte {
	out := make([]byte, Size)
	putLimbs(out, &f.m)
	return out
}

func putLimbs(out []byte, l *[4]uint64) {
	binary.BigEndian.PutUint64(out[0:8], l[3])
	binary.BigEndian.PutUint64(out[8:16], l[2])
	binary.BigEndian.PutUint64(out[16:24], l[1])
	binary.BigEndian.PutUint64(out[24:32], l[0])
}

// mask returns all ones when b == 1 and zero when b == 0.
func mask(b uint64) uint64 {
	return -b
}

// sub returns x - y and the final borrow.
func sub(x, y *[4]uint64) (d [4]uint64, borrow uint64) {
	d[0], borrow = bits.Sub64(x[0], y[0], 0)
	d[1], borrow = bits.Sub64(x[1], y[1], borrow)
	d[2], borrow = bits.Sub64(x[2], y[2], borrow)
	d[3], borrow = bits.Sub64(x[3], y[3], borrow)
	return d, borrow
}

// reduce returns t (with extra high word hi) minus m if t >= m, else t.
// Valid whenever t < 2m.
func (f *Field) reduce(t *[4]uint64, hi uint64) [4]uint64 {
	d, b := sub(t, &f.m)
	_, b = bits.Sub64(hi, 0, b)
	keep := mask(b)
	return [4]uint64{
		t[0]&keep | d[0]&^keep,
		t[1]&keep | d[1]&^keep,
		t[2]&keep | d[2]&^keep,
		t[3]&keep | d[3]&^keep,
	}
}

// montMul sets z = x·y·R^-1 mod m (CIOS).
func (f *Field) montMul(z, x, y *[4]uint64) {
	var t [6]uint64
	for i := 0; i < 4; i++ {
		var c, cc uint64
		for j := 0; j < 4; j++ {
			hi, lo := bits.Mul64(x[j], y[i])
			lo, cc = bits.Add64(lo, t[j], 0)
			hi += cc
			lo, cc = bits.Add64(lo, c, 0)
			hi += cc
			t[j] = lo
			c = hi
		}
		t[4], cc = bits.Add64(t[4], c, 0)
		t[5] = cc

		q := t[0] * f.inv
		hi, lo := bits.Mul64(q, f.m[0])
		_, cc = bits.Add64(lo, t[0], 0)
		c = hi + cc
		for j := 1; j < 4; j++ {
			hi, lo = bits.Mul64(q, f.m[j])
			lo, cc = bits.Add64(lo, t[j], 0)
			hi += cc
			lo, cc = bits.Add64(lo, c, 0)
			hi += cc
			t[j-1] = lo
			c = hi
		}
		t[3], cc = bits.Add64(t[4], c, 0)
		t[4] = t[5] + cc
	}
	r := [4]uint64{t[0], t[1], t[2], t[3]}
	*z = f.reduce(&r, t[4])
}

// Zero sets z = 0.
func (f *Field) Zero(z *Element) *Element {
	z.l = [4]uint64{}
	return z
}

// One sets z = 1.
func (f *Field) One(z *Element) *Element {
	z.l = f.one
	return z
}

// SetUint64 sets z = v mod m.
func (f *Field) SetUint64(z *Element, v uint64) *Element {
	z.l = [4]uint64{v}
	f.montMul(&z.l, &z.l, &f.rr)
	return z
}

// Set sets z = x.
func (f *Field) Set(z, x *Element) *Element {
	z.l = x.l
	return z
}

// SetBytes sets z to the big-endian value b, which must be exactly Size
// bytes and strictly less than m. On failure z is left unchanged.
func (f *Field) SetBytes(z *Element, b []byte) (*Element, bool) {
	if len(b) != Size {
		return z, false
	}
	l := limbsFromBytes(b)
	if _, borrow := sub(&l, &f.m); borrow == 0 {
		return z, false
	}
	f.montMul(&z.l, &l, &f.rr)
	return z, true
}

// SetBytesReduced sets z = b mod m for a big-endian b of at most Size bytes.
// Both SM2 moduli exceed 2^255, so a single conditional subtraction suffices.
func (f *Field) SetBytesReduced(z *Element, b []byte) *Element {
	var buf [Size]byte
	if len(b) > Size {
		b = b[:Size]
	}
	copy(buf[Size-len(b):], b)
	l := limbsFromBytes(buf[:])
	l = f.reduce(&l, 0)
	f.montMul(&z.l, &l, &f.rr)
	return z
}

// Bytes returns the canonical 32-byte big-endian encoding of x.
func (f *Field) Bytes(x *Element) []byte {
	out := make([]byte, Size)
	f.FillBytes(out, x)
	return out
}

// FillBytes writes the canonical encoding of x into out[:Size].
func (f *Field) FillBytes(out []byte, x *Element) {
	var l [4]uint64
	one := [4]uint64{1}
	f.montMul(&l, &x.l, &one)
	putLimbs(out[:Size], &l)
}

// Add sets z = x + y mod m.
func (f *Field) Add(z, x, y *Element) *Element {
	var t [4]uint64
	var c uint64
	t[0], c = bits.Add64(x.l[0], y.l[0], 0)
	t[1], c = bits.Add64(x.l[1], y.l[1], c)
	t[2], c = bits.Add64(x.l[2], y.l[2], c)
	t[3], c = bits.Add64(x.l[3], y.l[3], c)
	z.l = f.reduce(&t, c)
	return z
}

// Sub sets z = x - y mod m.
func (f *Field) Sub(z, x, y *Element) *Element {
	d, b := sub(&x.l, &y.l)
	mm := mask(b)
	var c uint64
	z.l[0], c = bits.Add64(d[0], f.m[0]&mm, 0)
	z.l[1], c = bits.Add64(d[1], f.m[1]&mm, c)
	z.l[2], c = bits.Add64(d[2], f.m[2]&mm, c)
	z.l[3], _ = bits.Add64(d[3], f.m[3]&mm, c)
	return z
}

// Neg sets z = -x mod m.
func (f *Field) Neg(z, x *Element) *Element {
	var zero Element
	return f.Sub(z, &zero, x)
}

// Mul sets z = x·y mod m.
func (f *Field) Mul(z, x, y *Element) *Element {
	f.montMul(&z.l, &x.l, &y.l)
	return z
}

// Square sets z = x² mod m.
func (f *Field) Square(z, x *Element) *Element {
	f.montMul(&z.l, &x.l, &x.l)
	return z
}

// exp sets z = x^e for a public exponent e.
func (f *Field) exp(z, x *Element, e *[4]uint64) *Element {
	var r Element
	base := *x
	f.One(&r)
	for i := 3; i >= 0; i-- {
		for j := 63; j >= 0; j-- {
			f.Square(&r, &r)
			if (e[i]>>uint(j))&1 == 1 {
				f.Mul(&r, &r, &base)
			}
		}
	}
	*z = r
	return z
}

// Inverse sets z = x^-1 mod m via Fermat's little theorem. The inverse of
// zero is zero.
func (f *Field) Inverse(z, x *Element) *Element {
	return f.exp(z, x, &f.invExp)
}

// Sqrt sets z to a square root of x and reports whether one exists. It is
// only meaningful for moduli congruent to 3 mod 4, which holds for P.
func (f *Field) Sqrt(z, x *Element) (*Element, bool) {
	var r, check Element
	f.exp(&r, x, &f.sqrtExp)
	f.Square(&check, &r)
	if f.Equal(&check, x) != 1 {
		return z, false
	}
	*z = r
	return z, true
}

// IsZero returns 1 if x == 0 and 0 otherwise.
func (f *Field) IsZero(x *Element) int {
	acc := x.l[0] | x.l[1] | x.l[2] | x.l[3]
	return int(1 ^ ((acc | -acc) >> 63))
}

// Equal returns 1 if x == y and 0 otherwise.
func (f *Field) Equal(x, y *Element) int {
	acc := (x.l[0] ^ y.l[0]) | (x.l[1] ^ y.l[1]) | (x.l[2] ^ y.l[2]) | (x.l[3] ^ y.l[3])
	return int(1 ^ ((acc | -acc) >> 63))
}

// IsOdd returns the low bit of the canonical value of x.
func (f *Field) IsOdd(x *Element) int {
	var l [4]uint64
	one := [4]uint64{1}
	f.montMul(&l, &x.l, &one)
	return int(l[0] & 1)
}

// Select sets z = a if cond == 1 and z = b if cond == 0.
func Select(z, a, b *Element, cond int) *Element {
	m := mask(uint64(cond))
	z.l[0] = a.l[0]&m | b.l[0]&^m
	z.l[1] = a.l[1]&m | b.l[1]&^m
	z.l[2] = a.l[2]&m | b.l[2]&^m
	z.l[3] = a.l[3]&m | b.l[3]&^m
	return z
}

// Limbs returns the canonical value of x as little-endian limbs. The scalar
// multiplication code reads digits from it.
func (f *Field) Limbs(x *Element) [4]uint64 {
	var l [4]uint64
	one := [4]uint64{1}
	f.montMul(&l, &x.l, &one)
	return l
}
