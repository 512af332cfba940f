package curve

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kochabx/gmkit/core/crypto/sm2/internal/field"
	"github.com/kochabx/gmkit/errors"
)

// reference affine arithmetic on math/big

var (
	refP = new(big.Int).SetBytes(field.P.Modulus())
	refN = new(big.Int).SetBytes(field.N.Modulus())
	// a = p - 3, independent of the package init order
	refA = new(big.Int).Sub(refP, big.NewInt(3))
)

type refPoint struct{ x, y *big.Int } // nil x means infinity

func refAdd(p, q refPoint) refPoint {
	if p.x == nil {
		return q
	}
	if q.x == nil {
		return p
	}
	var lambda *big.Int
	if p.x.Cmp(q.x) == 0 {
		if new(big.Int).Mod(new(big.Int).Add(p.y, q.y), refP).Sign() == 0 {
			return refPoint{}
		}
		num := new(big.Int).Mul(big.NewInt(3), new(big.Int).Mul(p.x, p.x))
		num.Add(num, refA)
		den := new(big.Int).Lsh(p.y, 1)
		lambda = num.Mul(num, den.ModInverse(den, refP))
	} else {
		num := new(big.Int).Sub(q.y, p.y)
		den := new(big.Int).Sub(q.x, p.x)
		den.Mod(den, refP)
		lambda = num.Mul(num, den.ModInverse(den, refP))
	}
	lambda.Mod(lambda, refP)
	x := new(big.Int).Mul(lambda, lambda)
	x.Sub(x, p.x).Sub(x, q.x).Mod(x, refP)
	y := new(big.Int).Sub(p.x, x)
	y.Mul(y, lambda).Sub(y, p.y).Mod(y, refP)
	return refPoint{x, y}
}

func refMul(k *big.Int, p refPoint) refPoint {
	r := refPoint{}
	for i := k.BitLen() - 1; i >= 0; i-- {
		r = refAdd(r, r)
		if k.Bit(i) == 1 {
			r = refAdd(r, p)
		}
	}
	return r
}

func refGenerator() refPoint {
	return refPoint{new(big.Int).SetBytes(Gx()), new(big.Int).SetBytes(Gy())}
}

func scalarBytes(k *big.Int) []byte {
	b := make([]byte, ScalarSize)
	k.FillBytes(b)
	return b
}

func assertMatches(t *testing.T, want refPoint, got *Point) {
	t.Helper()
	if want.x == nil {
		assert.Equal(t, 1, got.IsInfinity())
		return
	}
	x, y, err := got.BytesXY()
	require.NoError(t, err)
	assert.Zero(t, want.x.Cmp(new(big.Int).SetBytes(x)), "x mismatch")
	assert.Zero(t, want.y.Cmp(new(big.Int).SetBytes(y)), "y mismatch")
}

func TestGeneratorOnCurve(t *testing.T) {
	g := NewGenerator()
	x, y, err := g.Affine()
	require.NoError(t, err)
	assert.True(t, IsOnCurve(&x, &y))
}

func TestCoefficients(t *testing.T) {
	assert.Equal(t, refA.FillBytes(make([]byte, 32)), A())
	assert.Equal(t, byte(0x28), B()[0])
}

func TestAddDoubleMatchReference(t *testing.T) {
	g := NewGenerator()
	ref := refGenerator()

	p := NewPoint().Double(g)
	assertMatches(t, refAdd(ref, ref), p)

	p3 := NewPoint().Add(p, g)
	assertMatches(t, refAdd(refAdd(ref, ref), ref), p3)

	// complete formulas: P + P through Add equals Double
	assert.Equal(t, 1, NewPoint().Add(g, g).Equal(p))

	// identity handling
	inf := NewPoint()
	assert.Equal(t, 1, NewPoint().Add(g, inf).Equal(g))
	assert.Equal(t, 1, NewPoint().Add(inf, inf).IsInfinity())
	assert.Equal(t, 1, NewPoint().Add(g, NewPoint().Negate(g)).IsInfinity())
	assert.Equal(t, 0, g.Equal(inf))
}

func TestScalarMultMatchesReference(t *testing.T) {
	ref := refGenerator()
	g := NewGenerator()
	for i := 0; i < 10; i++ {
		k, err := rand.Int(rand.Reader, refN)
		require.NoError(t, err)
		want := refMul(k, ref)

		byWindow, err := NewPoint().ScalarMult(g, scalarBytes(k))
		require.NoError(t, err)
		assertMatches(t, want, byWindow)

		byTable, err := NewPoint().ScalarBaseMult(scalarBytes(k))
		require.NoError(t, err)
		assertMatches(t, want, byTable)
	}
}

func TestScalarMultEdgeScalars(t *testing.T) {
	g := NewGenerator()

	zero, err := NewPoint().ScalarBaseMult(make([]byte, ScalarSize))
	require.NoError(t, err)
	assert.Equal(t, 1, zero.IsInfinity())

	order, err := NewPoint().ScalarMult(g, scalarBytes(refN))
	require.NoError(t, err)
	assert.Equal(t, 1, order.IsInfinity(), "n·G must be infinity")

	nMinus1 := new(big.Int).Sub(refN, big.NewInt(1))
	neg, err := NewPoint().ScalarBaseMult(scalarBytes(nMinus1))
	require.NoError(t, err)
	assert.Equal(t, 1, neg.Equal(NewPoint().Negate(g)))

	_, err = NewPoint().ScalarMult(g, []byte{1})
	assert.True(t, errors.Is(err, ErrScalarLength))
}

func TestTableForArbitraryPoint(t *testing.T) {
	k, err := rand.Int(rand.Reader, refN)
	require.NoError(t, err)
	q, err := NewPoint().ScalarBaseMult(scalarBytes(k))
	require.NoError(t, err)

	table := NewTable(q)
	s, err := rand.Int(rand.Reader, refN)
	require.NoError(t, err)

	viaTable, err := table.ScalarMult(NewPoint(), scalarBytes(s))
	require.NoError(t, err)
	viaWindow, err := NewPoint().ScalarMult(q, scalarBytes(s))
	require.NoError(t, err)
	assert.Equal(t, 1, viaTable.Equal(viaWindow))
}

func TestEncodingRoundTrip(t *testing.T) {
	k, err := rand.Int(rand.Reader, refN)
	require.NoError(t, err)
	p, err := NewPoint().ScalarBaseMult(scalarBytes(k))
	require.NoError(t, err)

	full := p.Bytes()
	require.Len(t, full, UncompressedSize)
	compressed := p.BytesCompressed()
	require.Len(t, compressed, CompressedSize)

	fromFull, err := NewPoint().SetBytes(full)
	require.NoError(t, err)
	fromCompressed, err := NewPoint().SetBytes(compressed)
	require.NoError(t, err)

	assert.Equal(t, 1, fromFull.Equal(p))
	assert.Equal(t, 1, fromCompressed.Equal(p))
	assert.Equal(t, full, fromCompressed.Bytes())
}

func TestSetBytesRejects(t *testing.T) {
	g := NewGenerator().Bytes()

	offCurve := append([]byte(nil), g...)
	offCurve[64] ^= 0x01
	_, err := NewPoint().SetBytes(offCurve)
	assert.True(t, errors.Is(err, ErrNotOnCurve))

	badTag := append([]byte(nil), g...)
	badTag[0] = 0x05
	_, err = NewPoint().SetBytes(badTag)
	assert.True(t, errors.Is(err, ErrInvalidEncoding))

	_, err = NewPoint().SetBytes(g[:64])
	assert.True(t, errors.Is(err, ErrInvalidEncoding))

	_, err = NewPoint().SetBytes([]byte{0})
	assert.True(t, errors.Is(err, ErrInvalidEncoding))

	// x = p is out of range
	outOfRange := append([]byte{TagCompressedEven}, field.P.Modulus()...)
	_, err = NewPoint().SetBytes(outOfRange)
	assert.True(t, errors.Is(err, ErrInvalidEncoding))
}

func TestInfinityEncoding(t *testing.T) {
	inf := NewPoint()
	assert.Equal(t, []byte{0}, inf.Bytes())
	assert.Equal(t, []byte{0}, inf.BytesCompressed())
	_, _, err := inf.BytesXY()
	assert.True(t, errors.Is(err, ErrInfinity))
}

func BenchmarkScalarMult(b *testing.B) {
	g := NewGenerator()
	k := scalarBytes(new(big.Int).Sub(refN, big.NewInt(12345)))
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = NewPoint().ScalarMult(g, k)
	}
}

func BenchmarkScalarBaseMult(b *testing.B) {
	k := scalarBytes(new(big.Int).Sub(refN, big.NewInt(12345)))
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = NewPoint().ScalarBaseMult(k)
	}
}
