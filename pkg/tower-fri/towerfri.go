package towerfri

import (
	"github.com/rs/zerolog"

	"github.com/meridian-zk/tower-fri/internal/tower-fri/codes"
	"github.com/meridian-zk/tower-fri/internal/tower-fri/core"
	"github.com/meridian-zk/tower-fri/internal/tower-fri/protocols"
)

// Re-exported types. See the internal packages for method documentation.
type (
	Element     = core.Element
	Level       = core.Level
	MLE         = core.MLE
	Config      = protocols.Config
	Commitment  = protocols.Commitment
	EvalProof   = protocols.EvalProof
	VerifyError = protocols.VerifyError
)

// MaxLevel is the top of the field tower, GF(2^128).
const MaxLevel = core.MaxLevel

// Re-exported error values for classification with errors.Is.
var (
	ErrDivisionByZero     = core.ErrDivisionByZero
	ErrInvalidDomain      = core.ErrInvalidDomain
	ErrInvalidLength      = codes.ErrInvalidLength
	ErrMalformedProof     = protocols.ErrMalformedProof
	ErrEvaluationMismatch = protocols.ErrEvaluationMismatch
	ErrMerkleMismatch     = protocols.ErrMerkleMismatch
	ErrFoldInconsistency  = protocols.ErrFoldInconsistency
)

// DefaultConfig returns the production protocol parameters.
func DefaultConfig() *Config {
	return protocols.DefaultConfig()
}

// NewElement creates a tower field element from its raw representation.
func NewElement(level Level, hi, lo uint64) (Element, error) {
	return core.New(level, hi, lo)
}

// RandomElement samples a uniform element at the given level.
func RandomElement(level Level) (Element, error) {
	return core.Random(level)
}

// NewMLE builds a multilinear polynomial from its evaluations over the
// Boolean hypercube. The length must be a power of two.
func NewMLE(evals []Element) (*MLE, error) {
	return core.NewMLE(evals)
}

// Commit produces a binding commitment to the polynomial.
func Commit(cfg *Config, poly *MLE) (*Commitment, error) {
	state, err := protocols.Commit(cfg, poly, zerolog.Nop())
	if err != nil {
		return nil, err
	}
	return state.Commitment(), nil
}

// Prove evaluates the polynomial at the point and produces a proof for
// that evaluation against the commitment Commit yields for the same
// polynomial and config. Point coordinates at lower tower levels are
// embedded into the top field.
func Prove(cfg *Config, poly *MLE, point []Element) (Element, *EvalProof, error) {
	lifted, err := liftPoint(point)
	if err != nil {
		return Element{}, nil, err
	}
	state, err := protocols.Commit(cfg, poly, zerolog.Nop())
	if err != nil {
		return Element{}, nil, err
	}
	value, err := evaluate(poly, lifted)
	if err != nil {
		return Element{}, nil, err
	}
	proof, err := state.Prove(lifted)
	if err != nil {
		return Element{}, nil, err
	}
	return value, proof, nil
}

// Verify checks an evaluation proof. A nil return means the proof is
// accepted; rejections are *VerifyError values wrapping one of the
// exported error kinds.
func Verify(cfg *Config, com *Commitment, point []Element, claimed Element, proof *EvalProof) error {
	lifted, err := liftPoint(point)
	if err != nil {
		return err
	}
	liftedClaim, err := claimed.Embed(core.MaxLevel)
	if err != nil {
		return err
	}
	return protocols.Verify(cfg, com, lifted, liftedClaim, proof)
}

func liftPoint(point []Element) ([]Element, error) {
	lifted := make([]Element, len(point))
	for i, p := range point {
		e, err := p.Embed(core.MaxLevel)
		if err != nil {
			return nil, err
		}
		lifted[i] = e
	}
	return lifted, nil
}

func evaluate(poly *MLE, point []Element) (Element, error) {
	embedded, err := poly.Embed(core.MaxLevel)
	if err != nil {
		return Element{}, err
	}
	return embedded.Evaluate(point)
}
