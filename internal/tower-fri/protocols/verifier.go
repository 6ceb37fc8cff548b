package protocols

import (
	"bytes"
	"errors"
	"fmt"
	"hash"

	"github.com/meridian-zk/tower-fri/internal/tower-fri/codes"
	"github.com/meridian-zk/tower-fri/internal/tower-fri/core"
	"github.com/meridian-zk/tower-fri/internal/tower-fri/utils"
)

// Verifier rejection kinds. VerifyError unwraps to one of these so callers
// can classify failures with errors.Is.
var (
	ErrMalformedProof     = errors.New("malformed proof")
	ErrEvaluationMismatch = errors.New("evaluation mismatch")
	ErrMerkleMismatch     = errors.New("merkle path mismatch")
	ErrFoldInconsistency  = errors.New("fold inconsistency")
)

// VerifyError reports why a proof was rejected and where: the round and,
// for query failures, the query position. Round and Query are -1 when not
// applicable.
type VerifyError struct {
	Kind  error
	Round int
	Query int
	Msg   string
}

func (e *VerifyError) Error() string {
	s := e.Kind.Error()
	if e.Round >= 0 {
		s = fmt.Sprintf("%s at round %d", s, e.Round)
	}
	if e.Query >= 0 {
		s = fmt.Sprintf("%s (query %d)", s, e.Query)
	}
	if e.Msg != "" {
		s = fmt.Sprintf("%s: %s", s, e.Msg)
	}
	return s
}

func (e *VerifyError) Unwrap() error {
	return e.Kind
}

func malformed(msg string) *VerifyError {
	return &VerifyError{Kind: ErrMalformedProof, Round: -1, Query: -1, Msg: msg}
}

// Verify checks an evaluation proof against a commitment, a point and a
// claimed value. The transcript is replayed deterministically; the first
// failed check rejects the proof.
func Verify(cfg *Config, com *Commitment, point []core.Element, claimed core.Element, proof *EvalProof) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if com == nil || proof == nil {
		return malformed("missing commitment or proof")
	}
	n := com.Vars
	if n < 0 || com.LogRate != cfg.LogRate {
		return malformed("commitment parameters disagree with config")
	}
	if com.Depth != n+cfg.LogRate {
		return malformed("commitment depth disagrees with parameters")
	}
	if len(point) != n {
		return malformed(fmt.Sprintf("expected %d coordinates, got %d", n, len(point)))
	}
	if err := validateShape(cfg, n, point, claimed, proof); err != nil {
		return err
	}

	newHash, err := core.NewHasher(cfg.HashFunction)
	if err != nil {
		return err
	}
	ntt, err := codes.NewAdditiveNTT(n + cfg.LogRate)
	if err != nil {
		return err
	}

	if n == 0 {
		return verifyConstant(cfg, com, claimed, proof, ntt, newHash)
	}

	channel, err := utils.NewChannel(newHash, []byte(cfg.Seed))
	if err != nil {
		return err
	}
	absorbCommitment(channel, com)
	channel.AbsorbElements(point)
	channel.AbsorbElement(claimed)

	zero := core.Zero(core.MaxLevel)
	one := core.One(core.MaxLevel)
	claim := claimed
	challenges := make([]core.Element, 0, n)
	for round := 0; round < n; round++ {
		g := proof.RoundPolys[round]
		if !g.Evaluate(zero).Add(g.Evaluate(one)).Equal(claim) {
			return &VerifyError{Kind: ErrEvaluationMismatch, Round: round, Query: -1,
				Msg: "round polynomial sum disagrees with running claim"}
		}
		channel.AbsorbElements(g.Coeffs)
		r := channel.SqueezeChallenge()
		claim = g.Evaluate(r)
		challenges = append(challenges, r)
		if round+1 < n {
			channel.Absorb(proof.RoundRoots[round])
		}
	}
	channel.AbsorbElement(proof.FinalValue)

	eqVal, err := core.EvalEqPoints(challenges, point)
	if err != nil {
		return err
	}
	if !claim.Equal(proof.FinalValue.Mul(eqVal)) {
		return &VerifyError{Kind: ErrEvaluationMismatch, Round: n, Query: -1,
			Msg: "final constant disagrees with accumulated claim"}
	}

	pairBound := uint64(1) << uint(n+cfg.LogRate-1)
	indices, err := channel.SqueezeIndices(cfg.NumQueries, pairBound)
	if err != nil {
		return err
	}
	if len(proof.Queries) != len(indices) {
		return malformed(fmt.Sprintf("expected %d queries, got %d", len(indices), len(proof.Queries)))
	}

	for qi, idx := range indices {
		if err := verifyQuery(cfg, com, proof, ntt, newHash, challenges, qi, int(idx)); err != nil {
			return err
		}
	}
	return nil
}

// validateShape rejects structurally broken proofs before any transcript
// work, so shape errors never masquerade as cryptographic failures.
func validateShape(cfg *Config, n int, point []core.Element, claimed core.Element, proof *EvalProof) error {
	for i, p := range point {
		if p.Level() != core.MaxLevel {
			return malformed(fmt.Sprintf("coordinate %d has level %d", i, p.Level()))
		}
	}
	if claimed.Level() != core.MaxLevel {
		return malformed("claimed value is not a top-level element")
	}
	if proof.FinalValue.Level() != core.MaxLevel {
		return malformed("final value is not a top-level element")
	}
	if len(proof.RoundPolys) != n {
		return malformed(fmt.Sprintf("expected %d round polynomials, got %d", n, len(proof.RoundPolys)))
	}
	wantRoots := 0
	if n > 1 {
		wantRoots = n - 1
	}
	if len(proof.RoundRoots) != wantRoots {
		return malformed(fmt.Sprintf("expected %d round roots, got %d", wantRoots, len(proof.RoundRoots)))
	}
	for i, g := range proof.RoundPolys {
		if len(g.Coeffs) != 3 {
			return malformed(fmt.Sprintf("round %d polynomial has %d coefficients, want 3", i, len(g.Coeffs)))
		}
		for _, coeff := range g.Coeffs {
			if coeff.Level() != core.MaxLevel {
				return malformed(fmt.Sprintf("round %d polynomial has a non-top-level coefficient", i))
			}
		}
	}
	for qi, q := range proof.Queries {
		if len(q.Rounds) != n {
			return malformed(fmt.Sprintf("query %d has %d rounds, want %d", qi, len(q.Rounds), n))
		}
		for round, qr := range q.Rounds {
			wantDepth := n + cfg.LogRate - round
			if len(qr.EvenPath) != wantDepth || len(qr.OddPath) != wantDepth {
				return malformed(fmt.Sprintf("query %d round %d has paths of depth %d/%d, want %d",
					qi, round, len(qr.EvenPath), len(qr.OddPath), wantDepth))
			}
			if qr.Even.Level() != core.MaxLevel || qr.Odd.Level() != core.MaxLevel {
				return malformed(fmt.Sprintf("query %d round %d opens non-top-level symbols", qi, round))
			}
		}
	}
	return nil
}

// verifyConstant handles zero-variable commitments: the codeword is fully
// determined by the final value, so it is re-encoded and the tree rebuilt.
func verifyConstant(cfg *Config, com *Commitment, claimed core.Element, proof *EvalProof,
	ntt *codes.AdditiveNTT, newHash func() hash.Hash) error {
	code, err := ntt.Encode([]core.Element{proof.FinalValue}, cfg.LogRate)
	if err != nil {
		return err
	}
	tree, err := core.NewMerkleTree(newHash, code)
	if err != nil {
		return err
	}
	if !bytes.Equal(tree.Root(), com.Root) {
		return &VerifyError{Kind: ErrMerkleMismatch, Round: -1, Query: -1,
			Msg: "re-encoded constant does not match commitment root"}
	}
	if !claimed.Equal(proof.FinalValue) {
		return &VerifyError{Kind: ErrEvaluationMismatch, Round: -1, Query: -1,
			Msg: "claimed value differs from committed constant"}
	}
	return nil
}

// verifyQuery walks one sampled position through every round: both pair
// members must authenticate against that round's root, each round's opened
// pair must contain the previous round's fold, and the last fold must
// equal the final constant.
func verifyQuery(cfg *Config, com *Commitment, proof *EvalProof, ntt *codes.AdditiveNTT,
	newHash func() hash.Hash, challenges []core.Element, qi, idx int) error {
	n := len(challenges)
	cur := idx
	var prevFold core.Element
	for round := 0; round < n; round++ {
		qr := proof.Queries[qi].Rounds[round]
		root := com.Root
		if round > 0 {
			root = proof.RoundRoots[round-1]
		}
		if !core.VerifyPath(newHash, root, 2*cur, qr.Even, qr.EvenPath) ||
			!core.VerifyPath(newHash, root, 2*cur+1, qr.Odd, qr.OddPath) {
			return &VerifyError{Kind: ErrMerkleMismatch, Round: round, Query: qi,
				Msg: "authentication path does not match root"}
		}
		if round > 0 {
			// The previous fold landed at position idx>>(round-1) of this
			// round's codeword, so its low bit selects the pair member.
			opened := qr.Even
			if (idx>>uint(round-1))&1 == 1 {
				opened = qr.Odd
			}
			if !opened.Equal(prevFold) {
				return &VerifyError{Kind: ErrFoldInconsistency, Round: round, Query: qi,
					Msg: "opened symbol disagrees with previous round's fold"}
			}
		}
		prevFold = ntt.FoldPair(round, cur, qr.Even, qr.Odd, challenges[round])
		cur >>= 1
	}
	if !prevFold.Equal(proof.FinalValue) {
		return &VerifyError{Kind: ErrFoldInconsistency, Round: n - 1, Query: qi,
			Msg: "last fold disagrees with final constant"}
	}
	return nil
}
