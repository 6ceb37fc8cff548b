package protocols

import (
	"fmt"
	"hash"
	"time"

	"github.com/rs/zerolog"

	"github.com/meridian-zk/tower-fri/internal/tower-fri/codes"
	"github.com/meridian-zk/tower-fri/internal/tower-fri/core"
	"github.com/meridian-zk/tower-fri/internal/tower-fri/utils"
)

// ProverState carries a commitment and everything needed to open it:
// the embedded evaluation table, the encoded codeword, its Merkle tree
// and the transcript advanced past the commitment.
type ProverState struct {
	cfg        *Config
	ntt        *codes.AdditiveNTT
	newHash    func() hash.Hash
	channel    *utils.Channel
	commitment *Commitment
	poly       *core.MLE
	code       []core.Element
	tree       *core.MerkleTree
	logger     zerolog.Logger
}

// Commit encodes a multilinear polynomial's evaluation table, commits to
// the codeword with a Merkle tree and binds the commitment into a fresh
// transcript. The polynomial may live at any tower level; it is embedded
// into the top field before encoding.
func Commit(cfg *Config, poly *core.MLE, logger zerolog.Logger) (*ProverState, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if poly == nil {
		return nil, fmt.Errorf("%w: no polynomial", core.ErrInvalidDomain)
	}

	start := time.Now()
	embedded, err := poly.Embed(core.MaxLevel)
	if err != nil {
		return nil, err
	}

	ntt, err := codes.NewAdditiveNTT(embedded.Vars() + cfg.LogRate)
	if err != nil {
		return nil, err
	}
	code, err := ntt.Encode(embedded.Evals(), cfg.LogRate)
	if err != nil {
		return nil, err
	}

	newHash, err := core.NewHasher(cfg.HashFunction)
	if err != nil {
		return nil, err
	}
	tree, err := core.NewMerkleTree(newHash, code)
	if err != nil {
		return nil, err
	}

	channel, err := utils.NewChannel(newHash, []byte(cfg.Seed))
	if err != nil {
		return nil, err
	}
	commitment := &Commitment{
		Root:    tree.Root(),
		Depth:   tree.Depth(),
		Vars:    embedded.Vars(),
		LogRate: cfg.LogRate,
		Level:   poly.Level(),
	}
	absorbCommitment(channel, commitment)

	logger.Debug().
		Int("vars", embedded.Vars()).
		Int("log_rate", cfg.LogRate).
		Dur("elapsed", time.Since(start)).
		Msg("committed polynomial")

	return &ProverState{
		cfg:        cfg,
		ntt:        ntt,
		newHash:    newHash,
		channel:    channel,
		commitment: commitment,
		poly:       embedded,
		code:       code,
		tree:       tree,
		logger:     logger,
	}, nil
}

// Commitment returns the commitment bound into the transcript.
func (s *ProverState) Commitment() *Commitment {
	return s.commitment
}

// Prove produces an evaluation proof for the committed polynomial at the
// given point. Each round emits a sumcheck univariate, draws a challenge,
// folds the evaluation table, the equality table and the codeword in
// lockstep, and commits to the folded codeword. Query openings across all
// rounds are collected at the end. Consumes the transcript: call once per
// commitment.
func (s *ProverState) Prove(point []core.Element) (*EvalProof, error) {
	n := s.poly.Vars()
	if len(point) != n {
		return nil, fmt.Errorf("expected %d coordinates, got %d", n, len(point))
	}
	for i, p := range point {
		if p.Level() != core.MaxLevel {
			return nil, fmt.Errorf("coordinate %d has level %d, want %d", i, p.Level(), core.MaxLevel)
		}
	}

	start := time.Now()
	eq, err := core.NewEqTable(point)
	if err != nil {
		return nil, err
	}
	value := core.Zero(core.MaxLevel)
	for i, e := range s.poly.Evals() {
		value = value.Add(e.Mul(eq.At(i)))
	}
	s.channel.AbsorbElements(point)
	s.channel.AbsorbElement(value)

	poly := s.poly
	claim := value
	codewords := [][]core.Element{s.code}
	trees := []*core.MerkleTree{s.tree}
	proof := &EvalProof{
		RoundRoots: make([][]byte, 0, max(n-1, 0)),
		RoundPolys: make([]Univariate, 0, n),
	}

	for round := 0; round < n; round++ {
		roundStart := time.Now()
		g := sumcheckRound(poly, eq, claim)
		s.channel.AbsorbElements(g.Coeffs)
		r := s.channel.SqueezeChallenge()
		claim = g.Evaluate(r)

		if poly, err = poly.FoldLo(r); err != nil {
			return nil, err
		}
		if eq, err = eq.FoldLo(r); err != nil {
			return nil, err
		}
		folded, err := s.ntt.Fold(codewords[round], round, r)
		if err != nil {
			return nil, err
		}
		codewords = append(codewords, folded)

		proof.RoundPolys = append(proof.RoundPolys, g)
		if round+1 < n {
			tree, err := core.NewMerkleTree(s.newHash, folded)
			if err != nil {
				return nil, err
			}
			trees = append(trees, tree)
			proof.RoundRoots = append(proof.RoundRoots, tree.Root())
			s.channel.Absorb(tree.Root())
		}
		s.logger.Debug().
			Int("round", round).
			Dur("elapsed", time.Since(roundStart)).
			Msg("fold round complete")
	}

	proof.FinalValue = codewords[n][0]
	s.channel.AbsorbElement(proof.FinalValue)

	if n > 0 {
		pairBound := uint64(1) << uint(n+s.cfg.LogRate-1)
		indices, err := s.channel.SqueezeIndices(s.cfg.NumQueries, pairBound)
		if err != nil {
			return nil, err
		}
		proof.Queries = make([]QueryProof, len(indices))
		for qi, idx := range indices {
			rounds := make([]QueryRound, n)
			cur := int(idx)
			for round := 0; round < n; round++ {
				evenPath, err := trees[round].Path(2 * cur)
				if err != nil {
					return nil, err
				}
				oddPath, err := trees[round].Path(2*cur + 1)
				if err != nil {
					return nil, err
				}
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
	}

	s.logger.Debug().
		Int("vars", n).
		Int("queries", len(proof.Queries)).
		Dur("elapsed", time.Since(start)).
		Msg("evaluation proof complete")
	return proof, nil
}
