package protocols

import (
	"github.com/meridian-zk/tower-fri/internal/tower-fri/core"
)

// Univariate is a polynomial in one variable in coefficient form,
// lowest degree first.
type Univariate struct {
	Coeffs []core.Element `cbor:"1,keyasint"`
}

// Evaluate computes the polynomial at x by Horner's rule.
func (u Univariate) Evaluate(x core.Element) core.Element {
	if len(u.Coeffs) == 0 {
		return core.Zero(x.Level())
	}
	acc := u.Coeffs[len(u.Coeffs)-1]
	for i := len(u.Coeffs) - 2; i >= 0; i-- {
		acc = acc.Mul(x).Add(u.Coeffs[i])
	}
	return acc
}

// sumcheckRound produces the degree-2 round polynomial
//
//	g(X) = sum_x f(X, x) * eq(X, x)
//
// over the remaining hypercube, where both tables interpolate linearly in
// their lowest variable. Only the evaluations at 0 and infinity (the
// leading coefficient) are computed directly; g(1) follows from the sum
// rule g(0) + g(1) = claim, so a dishonest claim surfaces as a mismatch in
// the verifier's replay rather than a silently consistent polynomial.
func sumcheckRound(f *core.MLE, eq *core.EqTable, claim core.Element) Univariate {
	level := f.Level()
	evalAt0 := core.Zero(level)
	evalAtInf := core.Zero(level)
	evals := f.Evals()
	for i := 0; i < len(evals)/2; i++ {
		fEven, fOdd := evals[2*i], evals[2*i+1]
		eqEven, eqOdd := eq.At(2*i), eq.At(2*i+1)
		evalAt0 = evalAt0.Add(fEven.Mul(eqEven))
		evalAtInf = evalAtInf.Add(fEven.Add(fOdd).Mul(eqEven.Add(eqOdd)))
	}
	evalAt1 := claim.Add(evalAt0)
	// c1 = g(0) + g(1) + c2 in characteristic 2.
	c1 := evalAt0.Add(evalAt1).Add(evalAtInf)
	return Univariate{Coeffs: []core.Element{evalAt0, c1, evalAtInf}}
}
