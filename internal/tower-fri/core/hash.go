package core

import (
	"crypto/sha256"
	"fmt"
	"hash"

	"golang.org/x/crypto/sha3"
)

// DefaultHashFunction is used when no hash is configured.
const DefaultHashFunction = "keccak256"

// NewHasher returns a constructor for the named hash function.
// Supported names: "keccak256" (default), "sha3-256", "sha256".
func NewHasher(name string) (func() hash.Hash, error) {
	switch name {
	case "", DefaultHashFunction:
		return sha3.NewLegacyKeccak256, nil
	case "sha3-256":
		return sha3.New256, nil
	case "sha256":
		return sha256.New, nil
	default:
		return nil, fmt.Errorf("unsupported hash function: %q", name)
	}
}
