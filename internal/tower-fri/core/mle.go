package core

import (
	"errors"
	"fmt"
	"math/bits"
)

// ErrInvalidDomain is returned when an evaluation table is not a
// power of two in length.
var ErrInvalidDomain = errors.New("evaluation domain size must be a power of two")

// MLE is a multilinear polynomial in its evaluation representation: entry i
// holds the value at the Boolean point whose bits are the bits of i, least
// significant bit first (variable 0 varies fastest).
type MLE struct {
	evals []Element
	vars  int
	level Level
}

// NewMLE builds a multilinear polynomial from a table of evaluations over
// the Boolean hypercube. The table length must be a power of two and all
// entries must share one tower level.
func NewMLE(evals []Element) (*MLE, error) {
	n := len(evals)
	if n == 0 || n&(n-1) != 0 {
		return nil, fmt.Errorf("%w: got length %d", ErrInvalidDomain, n)
	}
	level := evals[0].Level()
	for i, e := range evals {
		if e.Level() != level {
			return nil, fmt.Errorf("evaluation %d has level %d, want %d", i, e.Level(), level)
		}
	}
	cp := make([]Element, n)
	copy(cp, evals)
	return &MLE{evals: cp, vars: bits.TrailingZeros(uint(n)), level: level}, nil
}

// NewMLEFromPacked builds a multilinear polynomial from packed lanes,
// unpacking them in order.
func NewMLEFromPacked(lanes []Packed) (*MLE, error) {
	if len(lanes) == 0 {
		return nil, fmt.Errorf("%w: got no lanes", ErrInvalidDomain)
	}
	level := lanes[0].Level()
	evals := make([]Element, 0, len(lanes)*LaneCount(level))
	for i, lane := range lanes {
		if lane.Level() != level {
			return nil, fmt.Errorf("lane %d has level %d, want %d", i, lane.Level(), level)
		}
		evals = append(evals, lane.Unpack()...)
	}
	return NewMLE(evals)
}

// Vars returns the number of variables.
func (m *MLE) Vars() int {
	return m.vars
}

// Level returns the tower level of the evaluation table.
func (m *MLE) Level() Level {
	return m.level
}

// Evals returns the underlying evaluation table. Callers must not modify it.
func (m *MLE) Evals() []Element {
	return m.evals
}

// Embed lifts every evaluation into a higher tower level.
func (m *MLE) Embed(target Level) (*MLE, error) {
	evals := make([]Element, len(m.evals))
	for i, e := range m.evals {
		lifted, err := e.Embed(target)
		if err != nil {
			return nil, err
		}
		evals[i] = lifted
	}
	return &MLE{evals: evals, vars: m.vars, level: target}, nil
}

// FoldLo fixes the lowest variable to r, halving the table:
// out[i] = (1-r)*evals[2i] + r*evals[2i+1].
func (m *MLE) FoldLo(r Element) (*MLE, error) {
	if m.vars == 0 {
		return nil, errors.New("cannot fold a constant polynomial")
	}
	if r.Level() != m.level {
		return nil, fmt.Errorf("challenge level %d does not match table level %d", r.Level(), m.level)
	}
	half := len(m.evals) / 2
	out := make([]Element, half)
	for i := 0; i < half; i++ {
		even, odd := m.evals[2*i], m.evals[2*i+1]
		out[i] = even.Add(r.Mul(even.Add(odd)))
	}
	return &MLE{evals: out, vars: m.vars - 1, level: m.level}, nil
}

// Evaluate computes the polynomial at an arbitrary point by folding one
// variable at a time.
func (m *MLE) Evaluate(point []Element) (Element, error) {
	if len(point) != m.vars {
		return Element{}, fmt.Errorf("expected %d coordinates, got %d", m.vars, len(point))
	}
	cur := m
	for _, r := range point {
		next, err := cur.FoldLo(r)
		if err != nil {
			return Element{}, err
		}
		cur = next
	}
	return cur.evals[0], nil
}

// EqTable is the evaluation table of the equality indicator
// eq(x, p) = prod_j (x_j*p_j + (1-x_j)(1-p_j)) for a fixed point p.
type EqTable struct {
	evals []Element
	vars  int
	level Level
}

// NewEqTable builds the equality table for a point by repeated doubling.
// Coordinate j of the point controls bit j of the table index, matching
// the variable order of MLE tables.
func NewEqTable(point []Element) (*EqTable, error) {
	level := MaxLevel
	if len(point) > 0 {
		level = point[0].Level()
	}
	evals := make([]Element, 1, 1<<len(point))
	evals[0] = One(level)
	for j, p := range point {
		if p.Level() != level {
			return nil, fmt.Errorf("coordinate %d has level %d, want %d", j, p.Level(), level)
		}
		half := len(evals)
		evals = evals[:2*half:cap(evals)]
		for i := 0; i < half; i++ {
			hi := evals[i].Mul(p)
			evals[i+half] = hi
			evals[i] = evals[i].Add(hi)
		}
	}
	return &EqTable{evals: evals, vars: len(point), level: level}, nil
}

// Vars returns the number of variables.
func (t *EqTable) Vars() int {
	return t.vars
}

// At returns the table entry at index i.
func (t *EqTable) At(i int) Element {
	return t.evals[i]
}

// FoldLo fixes the lowest variable to r, exactly as MLE.FoldLo.
func (t *EqTable) FoldLo(r Element) (*EqTable, error) {
	if t.vars == 0 {
		return nil, errors.New("cannot fold a constant table")
	}
	if r.Level() != t.level {
		return nil, fmt.Errorf("challenge level %d does not match table level %d", r.Level(), t.level)
	}
	half := len(t.evals) / 2
	out := make([]Element, half)
	for i := 0; i < half; i++ {
		even, odd := t.evals[2*i], t.evals[2*i+1]
		out[i] = even.Add(r.Mul(even.Add(odd)))
	}
	return &EqTable{evals: out, vars: t.vars - 1, level: t.level}, nil
}

// EvalEqPoints evaluates eq(a, b) = prod_j (a_j*b_j + (1+a_j)(1+b_j))
// directly from two coordinate vectors.
func EvalEqPoints(a, b []Element) (Element, error) {
	if len(a) != len(b) {
		return Element{}, fmt.Errorf("coordinate counts differ: %d vs %d", len(a), len(b))
	}
	level := MaxLevel
	if len(a) > 0 {
		level = a[0].Level()
	}
	acc := One(level)
	for j := range a {
		one := One(level)
		term := a[j].Mul(b[j]).Add(one.Add(a[j]).Mul(one.Add(b[j])))
		acc = acc.Mul(term)
	}
	return acc, nil
}
