package core

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

// Packed holds 128/2^k level-k elements side by side in a single 128-bit
// lane, for k <= 6. Addition on the whole lane is a pair of XORs; lane-wise
// multiplication matches the scalar path bit for bit.
type Packed struct {
	hi, lo uint64
	level  Level
}

// LaneCount returns how many level-k elements fit in one packed lane.
func LaneCount(level Level) int {
	return 128 >> uint(level)
}

// Pack gathers LaneCount(level) elements of the same level into one lane.
func Pack(level Level, elems []Element) (Packed, error) {
	if level >= MaxLevel {
		return Packed{}, fmt.Errorf("cannot pack level %d: lanes require a proper subfield", level)
	}
	if len(elems) != LaneCount(level) {
		return Packed{}, fmt.Errorf("expected %d elements for level %d, got %d", LaneCount(level), level, len(elems))
	}
	bits := uint(1) << level
	var hi, lo uint64
	for i, e := range elems {
		if e.level != level {
			return Packed{}, fmt.Errorf("element %d has level %d, want %d", i, e.level, level)
		}
		shift := uint(i) * bits
		if shift < 64 {
			lo |= e.lo << shift
		} else {
			hi |= e.lo << (shift - 64)
		}
	}
	return Packed{hi: hi, lo: lo, level: level}, nil
}

// RandomPacked fills a lane with uniformly random level-k elements.
func RandomPacked(level Level) (Packed, error) {
	if level >= MaxLevel {
		return Packed{}, fmt.Errorf("cannot pack level %d: lanes require a proper subfield", level)
	}
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return Packed{}, fmt.Errorf("failed to generate random lane: %w", err)
	}
	return Packed{
		lo:    binary.LittleEndian.Uint64(buf[0:8]),
		hi:    binary.LittleEndian.Uint64(buf[8:16]),
		level: level,
	}, nil
}

// Level returns the tower level of the packed elements.
func (p Packed) Level() Level {
	return p.level
}

// Lane extracts element i from the lane.
func (p Packed) Lane(i int) Element {
	if i < 0 || i >= LaneCount(p.level) {
		panic("lane index out of range")
	}
	bits := uint(1) << p.level
	mask := uint64(1)<<bits - 1
	if bits == 64 {
		mask = ^uint64(0)
	}
	shift := uint(i) * bits
	var v uint64
	if shift < 64 {
		v = p.lo >> shift
	} else {
		v = p.hi >> (shift - 64)
	}
	return Element{lo: v & mask, level: p.level}
}

// Unpack expands the lane back into individual elements.
func (p Packed) Unpack() []Element {
	out := make([]Element, LaneCount(p.level))
	for i := range out {
		out[i] = p.Lane(i)
	}
	return out
}

// Add performs lane-wise field addition, which is XOR on the whole lane.
func (p Packed) Add(other Packed) Packed {
	if p.level != other.level {
		panic("cannot add lanes from different tower levels")
	}
	return Packed{hi: p.hi ^ other.hi, lo: p.lo ^ other.lo, level: p.level}
}

// Mul performs lane-wise field multiplication.
func (p Packed) Mul(other Packed) Packed {
	if p.level != other.level {
		panic("cannot multiply lanes from different tower levels")
	}
	out := Packed{level: p.level}
	bits := uint(1) << p.level
	mask := uint64(1)<<bits - 1
	if bits == 64 {
		mask = ^uint64(0)
	}
	for i := 0; i < LaneCount(p.level); i++ {
		shift := uint(i) * bits
		var a, b uint64
		if shift < 64 {
			a = (p.lo >> shift) & mask
			b = (other.lo >> shift) & mask
		} else {
			a = (p.hi >> (shift - 64)) & mask
			b = (other.hi >> (shift - 64)) & mask
		}
		r := mul64(a, b, uint(p.level))
		if shift < 64 {
			out.lo |= r << shift
		} else {
			out.hi |= r << (shift - 64)
		}
	}
	return out
}
