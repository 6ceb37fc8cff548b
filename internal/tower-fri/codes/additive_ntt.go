// Package codes implements the additive-NTT Reed-Solomon code over the
// top tower field used to encode polynomial evaluation tables, together
// with the randomized fold that halves a codeword per protocol round.
package codes

import (
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/meridian-zk/tower-fri/internal/tower-fri/core"
	"github.com/meridian-zk/tower-fri/internal/tower-fri/utils"
)

// ErrInvalidLength is returned when a message or codeword length is not a
// power of two or exceeds the configured domain.
var ErrInvalidLength = errors.New("length must be a power of two within the domain")

// AdditiveNTT evaluates polynomials written in the novel polynomial basis
// over F2-linear subspaces of GF(2^128).
//
// The subspace polynomials are W_0(x) = x and
// W_{i+1}(x) = W_i(x)^2 + W_i(beta_i)*W_i(x), normalized so that the
// twiddle of round i at basis bit b is What_i(beta_b) = W_i(beta_b)/W_i(beta_i).
// Rounds vanish on progressively larger subspaces, which is what makes the
// butterfly twiddle constant across each block.
type AdditiveNTT struct {
	logDomain int
	twiddles  [][]core.Element
}

// NewAdditiveNTT precomputes twiddle tables for codewords of length up to
// 2^logDomain.
func NewAdditiveNTT(logDomain int) (*AdditiveNTT, error) {
	if logDomain < 1 || logDomain > 128 {
		return nil, fmt.Errorf("log domain %d out of range [1, 128]", logDomain)
	}

	// basis[b] starts as beta_b and carries W_i(beta_b) across iterations.
	basis := make([]core.Element, logDomain)
	for b := range basis {
		var hi, lo uint64
		if b < 64 {
			lo = 1 << uint(b)
		} else {
			hi = 1 << uint(b-64)
		}
		e, err := core.New(core.MaxLevel, hi, lo)
		if err != nil {
			return nil, err
		}
		basis[b] = e
	}

	twiddles := make([][]core.Element, logDomain)
	for i := 0; i < logDomain; i++ {
		norm := basis[i]
		normInv, err := norm.Inverse()
		if err != nil {
			return nil, fmt.Errorf("degenerate subspace basis at round %d: %w", i, err)
		}
		row := make([]core.Element, logDomain)
		for b := range basis {
			row[b] = basis[b].Mul(normInv)
		}
		twiddles[i] = row
		for b := range basis {
			basis[b] = basis[b].Mul(basis[b].Add(norm))
		}
	}

	return &AdditiveNTT{logDomain: logDomain, twiddles: twiddles}, nil
}

// LogDomain returns the maximum supported log codeword length.
func (n *AdditiveNTT) LogDomain() int {
	return n.logDomain
}

// Encode maps a message of length 2^m to a codeword of length 2^(m+logRate)
// by evaluating its novel-basis polynomial on 2^logRate cosets.
func (n *AdditiveNTT) Encode(msg []core.Element, logRate int) ([]core.Element, error) {
	return n.encodeAtRound(msg, logRate, 0)
}

// encodeAtRound is Encode shifted by a round offset: it encodes the message
// as it stands after `round` protocol folds, using twiddle rows and columns
// displaced by the offset. encodeAtRound(msg, r, 0) is the plain encoding,
// and folding commutes with it round by round.
func (n *AdditiveNTT) encodeAtRound(msg []core.Element, logRate, round int) ([]core.Element, error) {
	m := len(msg)
	if !utils.IsPowerOfTwo(m) {
		return nil, fmt.Errorf("%w: message length %d", ErrInvalidLength, m)
	}
	if logRate < 1 {
		return nil, fmt.Errorf("log rate must be positive, got %d", logRate)
	}
	logMsg := utils.Log2(m)
	logCode := logMsg + logRate
	if logCode+round > n.logDomain {
		return nil, fmt.Errorf("%w: codeword of 2^%d symbols at round %d exceeds domain 2^%d",
			ErrInvalidLength, logCode, round, n.logDomain)
	}
	for i, e := range msg {
		if e.Level() != core.MaxLevel {
			return nil, fmt.Errorf("message symbol %d has level %d, want %d", i, e.Level(), core.MaxLevel)
		}
	}

	code := make([]core.Element, m<<uint(logRate))
	for c := 0; c < 1<<uint(logRate); c++ {
		copy(code[c*m:(c+1)*m], msg)
	}

	// Coset chunks are independent: every butterfly block fits inside one
	// chunk, and the chunk's base bits only shift its twiddles.
	var group errgroup.Group
	group.SetLimit(runtime.NumCPU())
	for c := 0; c < 1<<uint(logRate); c++ {
		chunk := code[c*m : (c+1)*m]
		chunkBase := c * m
		group.Go(func() error {
			for i := logMsg - 1; i >= 0; i-- {
				blockSize := 1 << uint(i+1)
				for base := 0; base < m; base += blockSize {
					t := n.blockTwiddle(i+round, chunkBase+base, i+1, round)
					half := blockSize / 2
					for j := 0; j < half; j++ {
						u, v := chunk[base+j], chunk[base+j+half]
						u = u.Add(t.Mul(v))
						chunk[base+j] = u
						chunk[base+j+half] = u.Add(v)
					}
				}
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return code, nil
}

// blockTwiddle accumulates the round-row twiddle for a butterfly block:
// the XOR of What_row(beta_{b+offset}) over the set bits b >= lowBit of the
// block base.
func (n *AdditiveNTT) blockTwiddle(row, base, lowBit, offset int) core.Element {
	t := core.Zero(core.MaxLevel)
	for b := lowBit; base>>uint(b) != 0; b++ {
		if base>>uint(b)&1 == 1 {
			t = t.Add(n.twiddles[row][b+offset])
		}
	}
	return t
}

// FoldPair combines one adjacent codeword pair under challenge r: an
// inverse butterfly recovers the pair's message-side values and the result
// is their multilinear combination (1+r)*x0 + r*x1. The verifier applies
// the identical computation to opened leaves.
func (n *AdditiveNTT) FoldPair(round, pairIdx int, even, odd, r core.Element) core.Element {
	t := core.Zero(core.MaxLevel)
	for b := 0; pairIdx>>uint(b) != 0; b++ {
		if pairIdx>>uint(b)&1 == 1 {
			t = t.Add(n.twiddles[round][b+1+round])
		}
	}
	sum := even.Add(odd)
	x0 := even.Add(t.Mul(sum))
	return x0.Add(r.Mul(x0.Add(sum)))
}

// Fold halves a codeword: entry i of the result combines entries 2i and
// 2i+1 of the input under challenge r. Folding the encoding of a message
// yields the encoding of the message with its lowest variable fixed to r.
func (n *AdditiveNTT) Fold(code []core.Element, round int, r core.Element) ([]core.Element, error) {
	c := len(code)
	if c < 2 || !utils.IsPowerOfTwo(c) {
		return nil, fmt.Errorf("%w: codeword length %d", ErrInvalidLength, c)
	}
	logCode := utils.Log2(c)
	if round < 0 || logCode+round > n.logDomain {
		return nil, fmt.Errorf("%w: round %d for codeword of 2^%d symbols", ErrInvalidLength, round, logCode)
	}
	out := make([]core.Element, c/2)
	for i := range out {
		out[i] = n.FoldPair(round, i, code[2*i], code[2*i+1], r)
	}
	return out, nil
}

// Decode inverts Encode by running the inverse transform on coset chunk 0,
// recovering the original message exactly.
func (n *AdditiveNTT) Decode(code []core.Element, logRate int) ([]core.Element, error) {
	c := len(code)
	if !utils.IsPowerOfTwo(c) {
		return nil, fmt.Errorf("%w: codeword length %d", ErrInvalidLength, c)
	}
	logCode := utils.Log2(c)
	if logRate < 1 || logRate > logCode {
		return nil, fmt.Errorf("log rate %d out of range [1, %d]", logRate, logCode)
	}
	if logCode > n.logDomain {
		return nil, fmt.Errorf("%w: codeword of 2^%d symbols exceeds domain 2^%d", ErrInvalidLength, logCode, n.logDomain)
	}

	logMsg := logCode - logRate
	msg := make([]core.Element, 1<<uint(logMsg))
	copy(msg, code[:len(msg)])
	for i := 0; i < logMsg; i++ {
		blockSize := 1 << uint(i+1)
		for base := 0; base < len(msg); base += blockSize {
			t := n.blockTwiddle(i, base, i+1, 0)
			half := blockSize / 2
			for j := 0; j < half; j++ {
				u, v := msg[base+j], msg[base+j+half]
				v = u.Add(v)
				msg[base+j] = u.Add(t.Mul(v))
				msg[base+j+half] = v
			}
		}
	}
	return msg, nil
}
