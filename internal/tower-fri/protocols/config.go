// Package protocols implements the polynomial commitment protocol: prover
// commitment and evaluation proof generation, and verifier replay.
package protocols

import (
	"fmt"

	"github.com/meridian-zk/tower-fri/internal/tower-fri/core"
)

// Config holds the protocol parameters shared by prover and verifier.
// Both sides must use identical values or verification fails.
type Config struct {
	// LogRate is the log2 of the Reed-Solomon blowup factor.
	LogRate int

	// NumQueries is the number of codeword positions spot-checked per proof.
	NumQueries int

	// BaseLevel is the tower level polynomials are sampled at by the
	// driver; commitments embed to the top level regardless.
	BaseLevel core.Level

	// HashFunction names the hash used for the Merkle tree and channel.
	HashFunction string

	// Seed initializes the Fiat-Shamir transcript.
	Seed string
}

// DefaultConfig returns production parameters: rate 1/4 and 144 queries.
func DefaultConfig() *Config {
	return &Config{
		LogRate:      2,
		NumQueries:   144,
		BaseLevel:    6,
		HashFunction: core.DefaultHashFunction,
		Seed:         "tower-fri/v1",
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.LogRate < 1 || c.LogRate > 8 {
		return fmt.Errorf("log rate %d out of range [1, 8]", c.LogRate)
	}
	if c.NumQueries < 1 {
		return fmt.Errorf("number of queries must be positive, got %d", c.NumQueries)
	}
	if c.BaseLevel > core.MaxLevel {
		return fmt.Errorf("base level %d exceeds maximum %d", c.BaseLevel, core.MaxLevel)
	}
	if _, err := core.NewHasher(c.HashFunction); err != nil {
		return err
	}
	if c.Seed == "" {
		return fmt.Errorf("transcript seed must not be empty")
	}
	return nil
}

// WithLogRate returns a copy of the config with the given log rate.
func (c *Config) WithLogRate(logRate int) *Config {
	out := *c
	out.LogRate = logRate
	return &out
}

// WithNumQueries returns a copy of the config with the given query count.
func (c *Config) WithNumQueries(numQueries int) *Config {
	out := *c
	out.NumQueries = numQueries
	return &out
}

// WithBaseLevel returns a copy of the config with the given base level.
func (c *Config) WithBaseLevel(level core.Level) *Config {
	out := *c
	out.BaseLevel = level
	return &out
}

// WithHashFunction returns a copy of the config with the given hash.
func (c *Config) WithHashFunction(name string) *Config {
	out := *c
	out.HashFunction = name
	return &out
}

// WithSeed returns a copy of the config with the given transcript seed.
func (c *Config) WithSeed(seed string) *Config {
	out := *c
	out.Seed = seed
	return &out
}
