package utils

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"math"

	"github.com/meridian-zk/tower-fri/internal/tower-fri/core"
)

// channelDomainSeparator prefixes the seed so transcripts from other
// protocols sharing a hash function cannot collide.
const channelDomainSeparator = "tower-fri/channel/v1"

// Channel is a deterministic Fiat-Shamir transcript. Absorbing chains the
// state through the hash; squeezing derives output from the state and a
// monotone draw counter, so repeated squeezes without intervening absorbs
// yield independent values.
type Channel struct {
	newHash func() hash.Hash
	state   []byte
	counter uint64
}

// NewChannel creates a transcript seeded with a protocol identifier.
func NewChannel(newHash func() hash.Hash, seed []byte) (*Channel, error) {
	if len(seed) == 0 {
		return nil, errors.New("channel seed must not be empty")
	}
	h := newHash()
	h.Write([]byte(channelDomainSeparator))
	h.Write(seed)
	return &Channel{newHash: newHash, state: h.Sum(nil)}, nil
}

// Absorb mixes data into the transcript state.
func (c *Channel) Absorb(data []byte) {
	h := c.newHash()
	h.Write(c.state)
	h.Write(data)
	c.state = h.Sum(nil)
}

// AbsorbUint64 mixes an integer in fixed-width little-endian form.
func (c *Channel) AbsorbUint64(v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	c.Absorb(buf[:])
}

// AbsorbElement mixes a field element's canonical bytes.
func (c *Channel) AbsorbElement(e core.Element) {
	c.Absorb(e.Bytes())
}

// AbsorbElements mixes a slice of field elements in order.
func (c *Channel) AbsorbElements(elems []core.Element) {
	for _, e := range elems {
		c.AbsorbElement(e)
	}
}

// squeeze hashes state || counter and advances the counter.
func (c *Channel) squeeze() []byte {
	h := c.newHash()
	h.Write(c.state)
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], c.counter)
	h.Write(buf[:])
	c.counter++
	return h.Sum(nil)
}

// SqueezeChallenge draws a uniform element of the top tower field.
func (c *Channel) SqueezeChallenge() core.Element {
	digest := c.squeeze()
	e, err := core.FromBytes(digest[:16])
	if err != nil {
		// Digests are always at least 16 bytes for the supported hashes.
		panic(fmt.Sprintf("challenge derivation: %v", err))
	}
	return e
}

// SqueezeIndex draws a uniform index below bound without modulo bias:
// power-of-two bounds are masked, other bounds use rejection sampling.
func (c *Channel) SqueezeIndex(bound uint64) (uint64, error) {
	if bound == 0 {
		return 0, errors.New("index bound must be positive")
	}
	if bound&(bound-1) == 0 {
		digest := c.squeeze()
		return binary.LittleEndian.Uint64(digest[:8]) & (bound - 1), nil
	}
	limit := (math.MaxUint64 / bound) * bound
	for {
		digest := c.squeeze()
		v := binary.LittleEndian.Uint64(digest[:8])
		if v < limit {
			return v % bound, nil
		}
	}
}

// SqueezeIndices draws count indices below bound. When the domain has no
// more than count positions it returns every index instead, so small
// instances are checked exhaustively.
func (c *Channel) SqueezeIndices(count int, bound uint64) ([]uint64, error) {
	if count <= 0 {
		return nil, errors.New("index count must be positive")
	}
	if bound == 0 {
		return nil, errors.New("index bound must be positive")
	}
	if bound <= uint64(count) {
		out := make([]uint64, bound)
		for i := range out {
			out[i] = uint64(i)
		}
		return out, nil
	}
	out := make([]uint64, count)
	for i := range out {
		idx, err := c.SqueezeIndex(bound)
		if err != nil {
			return nil, err
		}
		out[i] = idx
	}
	return out, nil
}
