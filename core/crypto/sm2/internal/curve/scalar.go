package curve

import (
	"crypto/subtle"
	"sync"
)

// ScalarSize is the byte length of a scalar accepted by the multiplication
// routines.
const ScalarSize = 32

// window holds [1]Q ... [15]Q for a 4-bit fixed window.
type window [15]Point

func newWindow(q *Point) *window {
	w := new(window)
	w[0].Set(q)
	for i := 1; i < 15; i += 2 {
		w[i].Double(&w[i/2])
		w[i+1].Add(&w[i], q)
	}
	return w
}

// selectInto sets out = [n]Q, touching every entry. n must be below 16.
func (w *window) selectInto(out *Point, n uint8) {
	out.Set(NewPoint())
	for i := uint8(1); i < 16; i++ {
		cond := subtle.ConstantTimeByteEq(i, n)
		out.Select(&w[i-1], out, cond)
	}
}

// ScalarMult sets p = scalar·q, where scalar is a 32-byte big-endian
// integer. The sequence of field operations does not depend on the scalar.
func (p *Point) ScalarMult(q *Point, scalar []byte) (*Point, error) {
	if len(scalar) != ScalarSize {
		return p, ErrScalarLength
	}
	w := newWindow(q)

	acc := NewPoint()
	t := NewPoint()
	for i, b := range scalar {
		if i != 0 {
			acc.Double(acc)
			acc.Double(acc)
			acc.Double(acc)
			acc.Double(acc)
		}
		w.selectInto(t, b>>4)
		acc.Add(acc, t)

		acc.Double(acc)
		acc.Double(acc)
		acc.Double(acc)
		acc.Double(acc)
		w.selectInto(t, b&0x0f)
		acc.Add(acc, t)
	}
	return p.Set(acc), nil
}

// Table is a fixed-base comb table: row i holds [1..15]·16^i·Q. A scalar
// multiplication with it needs one constant-time lookup and one addition
// per 4-bit digit and no doublings.
type Table [2 * ScalarSize]window

// NewTable precomputes the comb table of q.
func NewTable(q *Point) *Table {
	t := new(Table)
	base := NewPoint().Set(q)
	for i := range t {
		t[i][0].Set(base)
		for j := 1; j < 15; j++ {
			t[i][j].Add(&t[i][j-1], base)
		}
		base.Double(&t[i][7])
	}
	return t
}

// ScalarMult sets p = scalar·Q for the point the table was built from.
func (t *Table) ScalarMult(p *Point, scalar []byte) (*Point, error) {
	if len(scalar) != ScalarSize {
		return p, ErrScalarLength
	}
	acc := NewPoint()
	s := NewPoint()
	row := 0
	for i := ScalarSize - 1; i >= 0; i-- {
		b := scalar[i]
		t[row].selectInto(s, b&0x0f)
		acc.Add(acc, s)
		t[row+1].selectInto(s, b>>4)
		acc.Add(acc, s)
		row += 2
	}
	return p.Set(acc), nil
}

var (
	baseTable     *Table
	baseTableOnce sync.Once
)

func generatorTable() *Table {
	baseTableOnce.Do(func() {
		baseTable = NewTable(NewGenerator())
	})
	return baseTable
}

// ScalarBaseMult sets p = scalar·G using the shared base point table.
func (p *Point) ScalarBaseMult(scalar []byte) (*Point, error) {
	return generatorTable().ScalarMult(p, scalar)
}
