package core

import (
	"bytes"
	"fmt"
	"hash"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// MerkleTree commits to a vector of field elements. Each leaf is the hash
// of one element's canonical 16-byte encoding, so an authentication path
// has exactly log2(len(leaves)) siblings.
type MerkleTree struct {
	newHash func() hash.Hash
	levels  [][][]byte
}

// NewMerkleTree hashes the leaves in parallel and builds the tree bottom-up.
// The number of leaves must be a power of two.
func NewMerkleTree(newHash func() hash.Hash, leaves []Element) (*MerkleTree, error) {
	n := len(leaves)
	if n == 0 || n&(n-1) != 0 {
		return nil, fmt.Errorf("%w: got %d leaves", ErrInvalidDomain, n)
	}

	leafDigests := make([][]byte, n)
	var group errgroup.Group
	group.SetLimit(runtime.NumCPU())
	chunk := (n + runtime.NumCPU() - 1) / runtime.NumCPU()
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		start, end := start, end
		group.Go(func() error {
			h := newHash()
			for i := start; i < end; i++ {
				h.Reset()
				h.Write(leaves[i].Bytes())
				leafDigests[i] = h.Sum(nil)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	levels := [][][]byte{leafDigests}
	h := newHash()
	for len(levels[len(levels)-1]) > 1 {
		prev := levels[len(levels)-1]
		next := make([][]byte, len(prev)/2)
		for i := range next {
			h.Reset()
			h.Write(prev[2*i])
			h.Write(prev[2*i+1])
			next[i] = h.Sum(nil)
		}
		levels = append(levels, next)
	}

	return &MerkleTree{newHash: newHash, levels: levels}, nil
}

// Root returns a copy of the root digest.
func (t *MerkleTree) Root() []byte {
	root := t.levels[len(t.levels)-1][0]
	out := make([]byte, len(root))
	copy(out, root)
	return out
}

// Depth returns the number of siblings in an authentication path.
func (t *MerkleTree) Depth() int {
	return len(t.levels) - 1
}

// Path returns the authentication path for a leaf: the sibling digest at
// each level from the bottom up.
func (t *MerkleTree) Path(index int) ([][]byte, error) {
	if index < 0 || index >= len(t.levels[0]) {
		return nil, fmt.Errorf("leaf index %d out of range [0, %d)", index, len(t.levels[0]))
	}
	path := make([][]byte, 0, t.Depth())
	for lvl := 0; lvl < t.Depth(); lvl++ {
		sibling := t.levels[lvl][index^1]
		cp := make([]byte, len(sibling))
		copy(cp, sibling)
		path = append(path, cp)
		index >>= 1
	}
	return path, nil
}

// VerifyPath recomputes the root from a leaf and its authentication path
// and compares it against the expected root.
func VerifyPath(newHash func() hash.Hash, root []byte, index int, leaf Element, path [][]byte) bool {
	if index < 0 || index >= 1<<len(path) {
		return false
	}
	h := newHash()
	h.Write(leaf.Bytes())
	digest := h.Sum(nil)
	for _, sibling := range path {
		h.Reset()
		if index&1 == 0 {
			h.Write(digest)
			h.Write(sibling)
		} else {
			h.Write(sibling)
			h.Write(digest)
		}
		digest = h.Sum(nil)
		index >>= 1
	}
	return bytes.Equal(digest, root)
}
