package protocols

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-zk/tower-fri/internal/tower-fri/core"
)

// cloneProof deep-copies the parts corruption tests mutate.
func cloneProof(p *EvalProof) *EvalProof {
	out := &EvalProof{FinalValue: p.FinalValue}
	out.RoundRoots = make([][]byte, len(p.RoundRoots))
	for i, root := range p.RoundRoots {
		out.RoundRoots[i] = append([]byte(nil), root...)
	}
	out.RoundPolys = make([]Univariate, len(p.RoundPolys))
	for i, g := range p.RoundPolys {
		out.RoundPolys[i] = Univariate{Coeffs: append([]core.Element(nil), g.Coeffs...)}
	}
	out.Queries = make([]QueryProof, len(p.Queries))
	for qi, q := range p.Queries {
		rounds := make([]QueryRound, len(q.Rounds))
		for ri, qr := range q.Rounds {
			rounds[ri] = QueryRound{
				Even:     qr.Even,
				Odd:      qr.Odd,
				EvenPath: clonePaths(qr.EvenPath),
				OddPath:  clonePaths(qr.OddPath),
			}
		}
		out.Queries[qi] = QueryProof{Rounds: rounds}
	}
	return out
}

func clonePaths(path [][]byte) [][]byte {
	out := make([][]byte, len(path))
	for i, d := range path {
		out[i] = append([]byte(nil), d...)
	}
	return out
}

func requireVerifyError(t *testing.T, err error, kind error) *VerifyError {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, kind)
	var vErr *VerifyError
	require.True(t, errors.As(err, &vErr))
	return vErr
}

func TestVerifyRejectsCorruptedProofs(t *testing.T) {
	cfg := testConfig()
	com, point, value, proof := proveRandom(t, cfg, 4, cfg.BaseLevel)
	one := core.One(core.MaxLevel)

	require.NoError(t, Verify(cfg, com, point, value, proof), "sanity")

	t.Run("wrong claimed value", func(t *testing.T) {
		vErr := requireVerifyError(t,
			Verify(cfg, com, point, value.Add(one), proof), ErrEvaluationMismatch)
		assert.Equal(t, 0, vErr.Round, "the first round polynomial no longer sums to the claim")
	})

	t.Run("tampered round polynomial", func(t *testing.T) {
		bad := cloneProof(proof)
		bad.RoundPolys[2].Coeffs[1] = bad.RoundPolys[2].Coeffs[1].Add(one)
		vErr := requireVerifyError(t, Verify(cfg, com, point, value, bad), ErrEvaluationMismatch)
		assert.Equal(t, 2, vErr.Round)
	})

	t.Run("tampered final value", func(t *testing.T) {
		bad := cloneProof(proof)
		bad.FinalValue = bad.FinalValue.Add(one)
		vErr := requireVerifyError(t, Verify(cfg, com, point, value, bad), ErrEvaluationMismatch)
		assert.Equal(t, 4, vErr.Round, "the closing check fails after the last round")
	})

	t.Run("tampered opened symbol", func(t *testing.T) {
		bad := cloneProof(proof)
		bad.Queries[0].Rounds[0].Even = bad.Queries[0].Rounds[0].Even.Add(one)
		vErr := requireVerifyError(t, Verify(cfg, com, point, value, bad), ErrMerkleMismatch)
		assert.Equal(t, 0, vErr.Round)
		assert.Equal(t, 0, vErr.Query)
	})

	t.Run("tampered authentication path", func(t *testing.T) {
		bad := cloneProof(proof)
		bad.Queries[1].Rounds[2].OddPath[0][0] ^= 1
		vErr := requireVerifyError(t, Verify(cfg, com, point, value, bad), ErrMerkleMismatch)
		assert.Equal(t, 2, vErr.Round)
		assert.Equal(t, 1, vErr.Query)
	})

	t.Run("tampered round root", func(t *testing.T) {
		bad := cloneProof(proof)
		bad.RoundRoots[0][0] ^= 1
		vErr := requireVerifyError(t, Verify(cfg, com, point, value, bad), ErrEvaluationMismatch)
		assert.Equal(t, 2, vErr.Round,
			"the transcript diverges at the next challenge, so the following round polynomial no longer matches the claim")
	})

	t.Run("tampered commitment root", func(t *testing.T) {
		badCom := *com
		badCom.Root = append([]byte(nil), com.Root...)
		badCom.Root[0] ^= 1
		assert.Error(t, Verify(cfg, &badCom, point, value, proof))
	})
}

func TestVerifyRejectsMalformedProofs(t *testing.T) {
	cfg := testConfig()
	com, point, value, proof := proveRandom(t, cfg, 3, cfg.BaseLevel)

	t.Run("missing proof", func(t *testing.T) {
		assert.ErrorIs(t, Verify(cfg, com, point, value, nil), ErrMalformedProof)
	})
	t.Run("missing commitment", func(t *testing.T) {
		assert.ErrorIs(t, Verify(cfg, nil, point, value, proof), ErrMalformedProof)
	})
	t.Run("wrong point length", func(t *testing.T) {
		assert.ErrorIs(t, Verify(cfg, com, point[:2], value, proof), ErrMalformedProof)
	})
	t.Run("truncated round polynomials", func(t *testing.T) {
		bad := cloneProof(proof)
		bad.RoundPolys = bad.RoundPolys[:2]
		assert.ErrorIs(t, Verify(cfg, com, point, value, bad), ErrMalformedProof)
	})
	t.Run("quadratic coefficient missing", func(t *testing.T) {
		bad := cloneProof(proof)
		bad.RoundPolys[1].Coeffs = bad.RoundPolys[1].Coeffs[:2]
		assert.ErrorIs(t, Verify(cfg, com, point, value, bad), ErrMalformedProof)
	})
	t.Run("missing query", func(t *testing.T) {
		bad := cloneProof(proof)
		bad.Queries = bad.Queries[:len(bad.Queries)-1]
		assert.ErrorIs(t, Verify(cfg, com, point, value, bad), ErrMalformedProof)
	})
	t.Run("truncated path", func(t *testing.T) {
		bad := cloneProof(proof)
		bad.Queries[0].Rounds[1].EvenPath = bad.Queries[0].Rounds[1].EvenPath[:1]
		assert.ErrorIs(t, Verify(cfg, com, point, value, bad), ErrMalformedProof)
	})
	t.Run("inconsistent commitment depth", func(t *testing.T) {
		badCom := *com
		badCom.Depth = com.Depth + 1
		assert.ErrorIs(t, Verify(cfg, &badCom, point, value, proof), ErrMalformedProof)
	})
	t.Run("config log rate disagrees", func(t *testing.T) {
		assert.ErrorIs(t, Verify(cfg.WithLogRate(3), com, point, value, proof), ErrMalformedProof)
	})
}

// dishonestProve commits honestly but swaps in a tampered first-round
// codeword, committing to it with a genuine tree and patching the final
// value so every transcript check still passes. Only the cross-round
// query check can catch this.
func dishonestProve(t *testing.T, cfg *Config, poly *core.MLE, point []core.Element) (*Commitment, core.Element, *EvalProof) {
	t.Helper()
	state, err := Commit(cfg, poly, zerolog.Nop())
	require.NoError(t, err)
	n := state.poly.Vars()
	require.GreaterOrEqual(t, n, 2)

	eq, err := core.NewEqTable(point)
	require.NoError(t, err)
	value := core.Zero(core.MaxLevel)
	for i, e := range state.poly.Evals() {
		value = value.Add(e.Mul(eq.At(i)))
	}
	state.channel.AbsorbElements(point)
	state.channel.AbsorbElement(value)

	mle := state.poly
	claim := value
	codewords := [][]core.Element{state.code}
	trees := []*core.MerkleTree{state.tree}
	challenges := make([]core.Element, 0, n)
	proof := &EvalProof{}
	one := core.One(core.MaxLevel)

	for round := 0; round < n; round++ {
		g := sumcheckRound(mle, eq, claim)
		state.channel.AbsorbElements(g.Coeffs)
		r := state.channel.SqueezeChallenge()
		challenges = append(challenges, r)
		claim = g.Evaluate(r)

		mle, err = mle.FoldLo(r)
		require.NoError(t, err)
		eq, err = eq.FoldLo(r)
		require.NoError(t, err)
		folded, err := state.ntt.Fold(codewords[round], round, r)
		require.NoError(t, err)
		if round == 0 {
			for i := range folded {
				folded[i] = folded[i].Add(one)
			}
		}
		codewords = append(codewords, folded)
		proof.RoundPolys = append(proof.RoundPolys, g)
		if round+1 < n {
			tree, err := core.NewMerkleTree(state.newHash, folded)
			require.NoError(t, err)
			trees = append(trees, tree)
			proof.RoundRoots = append(proof.RoundRoots, tree.Root())
			state.channel.Absorb(tree.Root())
		}
	}

	eqVal, err := core.EvalEqPoints(challenges, point)
	require.NoError(t, err)
	eqInv, err := eqVal.Inverse()
	require.NoError(t, err)
	proof.FinalValue = claim.Mul(eqInv)
	state.channel.AbsorbElement(proof.FinalValue)

	pairBound := uint64(1) << uint(n+cfg.LogRate-1)
	indices, err := state.channel.SqueezeIndices(cfg.NumQueries, pairBound)
	require.NoError(t, err)
	proof.Queries = make([]QueryProof, len(indices))
	for qi, idx := range indices {
		rounds := make([]QueryRound, n)
		cur := int(idx)
		for round := 0; round < n; round++ {
			evenPath, err := trees[round].Path(2 * cur)
			require.NoError(t, err)
			oddPath, err := trees[round].Path(2*cur + 1)
			require.NoError(t, err)
			rounds[round] = QueryRound{
				Even:     codewords[round][2*cur],
				Odd:      codewords[round][2*cur+1],
				EvenPath: evenPath,
				OddPath:  oddPath,
			}
			cur >>= 1
		}
		proof.Queries[qi] = QueryProof{Rounds: rounds}
	}
	return state.Commitment(), value, proof
}

func TestVerifyCatchesDishonestFolding(t *testing.T) {
	cfg := testConfig()
	poly := randomPoly(t, 3, core.MaxLevel)
	point := randomPoint(t, 3)

	com, value, proof := dishonestProve(t, cfg, poly, point)
	vErr := requireVerifyError(t, Verify(cfg, com, point, value, proof), ErrFoldInconsistency)
	assert.Equal(t, 1, vErr.Round,
		"the tampered codeword authenticates but disagrees with the fold of the committed one")
}

func TestVerifyErrorFormatting(t *testing.T) {
	err := &VerifyError{Kind: ErrMerkleMismatch, Round: 2, Query: 5, Msg: "boom"}
	assert.Contains(t, err.Error(), "round 2")
	assert.Contains(t, err.Error(), "query 5")
	assert.Contains(t, err.Error(), "boom")
	assert.ErrorIs(t, err, ErrMerkleMismatch)

	shapeless := malformed("short")
	assert.NotContains(t, shapeless.Error(), "round")
	assert.ErrorIs(t, shapeless, ErrMalformedProof)
}
