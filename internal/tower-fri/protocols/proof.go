package protocols

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/meridian-zk/tower-fri/internal/tower-fri/core"
	"github.com/meridian-zk/tower-fri/internal/tower-fri/utils"
)

// Commitment binds a multilinear polynomial: the Merkle root of its
// encoded evaluation table plus the parameters needed to interpret it.
type Commitment struct {
	Root    []byte     `cbor:"1,keyasint"`
	Depth   int        `cbor:"2,keyasint"`
	Vars    int        `cbor:"3,keyasint"`
	LogRate int        `cbor:"4,keyasint"`
	Level   core.Level `cbor:"5,keyasint"`
}

// commitmentWire strips the marshaling methods so the CBOR encoder walks
// the struct fields instead of calling MarshalBinary back.
type commitmentWire Commitment

// MarshalBinary serializes the commitment as CBOR.
func (c *Commitment) MarshalBinary() ([]byte, error) {
	return cbor.Marshal((*commitmentWire)(c))
}

// UnmarshalBinary deserializes a CBOR commitment.
func (c *Commitment) UnmarshalBinary(data []byte) error {
	return cbor.Unmarshal(data, (*commitmentWire)(c))
}

// QueryRound is one round of a query opening: both members of the fold
// pair with their authentication paths.
type QueryRound struct {
	Even     core.Element `cbor:"1,keyasint"`
	Odd      core.Element `cbor:"2,keyasint"`
	EvenPath [][]byte     `cbor:"3,keyasint"`
	OddPath  [][]byte     `cbor:"4,keyasint"`
}

// QueryProof opens one sampled position across every fold round.
type QueryProof struct {
	Rounds []QueryRound `cbor:"1,keyasint"`
}

// EvalProof attests that the committed polynomial evaluates to a claimed
// value at a point. RoundRoots commits the intermediate folded codewords
// (rounds 1 through n-1), RoundPolys carries the per-round sumcheck
// univariates, FinalValue is the fully folded constant and Queries are the
// spot-check openings.
type EvalProof struct {
	RoundRoots [][]byte     `cbor:"1,keyasint"`
	RoundPolys []Univariate `cbor:"2,keyasint"`
	FinalValue core.Element `cbor:"3,keyasint"`
	Queries    []QueryProof `cbor:"4,keyasint"`
}

// evalProofWire strips the marshaling methods, as commitmentWire does.
type evalProofWire EvalProof

// MarshalBinary serializes the proof as CBOR.
func (p *EvalProof) MarshalBinary() ([]byte, error) {
	return cbor.Marshal((*evalProofWire)(p))
}

// UnmarshalBinary deserializes a CBOR proof.
func (p *EvalProof) UnmarshalBinary(data []byte) error {
	return cbor.Unmarshal(data, (*evalProofWire)(p))
}

// absorbCommitment mixes the full commitment into the transcript. Prover
// and verifier must agree on this exact order.
func absorbCommitment(ch *utils.Channel, com *Commitment) {
	ch.Absorb(com.Root)
	ch.AbsorbUint64(uint64(com.Depth))
	ch.AbsorbUint64(uint64(com.Vars))
	ch.AbsorbUint64(uint64(com.LogRate))
	ch.AbsorbUint64(uint64(com.Level))
}
