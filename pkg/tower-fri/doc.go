// Package towerfri is the public interface to the tower-field polynomial
// commitment scheme.
//
// A prover commits to a multilinear polynomial given by its evaluations
// over the Boolean hypercube, then proves evaluations at arbitrary points
// of the top tower field GF(2^128). The commitment is the Merkle root of a
// Reed-Solomon encoding of the evaluation table under the additive NTT;
// evaluation proofs interleave a sumcheck with proximity folding and are
// checked non-interactively through a deterministic Fiat-Shamir
// transcript.
//
// Typical use:
//
//	cfg := towerfri.DefaultConfig()
//	com, _ := towerfri.Commit(cfg, poly)
//	value, proof, _ := towerfri.Prove(cfg, poly, point)
//	err := towerfri.Verify(cfg, com, point, value, proof)
package towerfri
