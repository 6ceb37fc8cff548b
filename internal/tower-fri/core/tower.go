// Package core provides the binary tower field arithmetic, packed lanes,
// multilinear polynomials and Merkle commitments used by the FRI protocol.
package core

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
)

// Level identifies a field in the tower: level k is GF(2^(2^k)).
type Level uint8

// MaxLevel is the top of the tower, GF(2^128). All protocol challenges and
// codeword symbols live at this level.
const MaxLevel Level = 7

// ErrDivisionByZero is returned when inverting the additive identity.
var ErrDivisionByZero = errors.New("division by zero: additive identity has no inverse")

// Element is an element of a binary tower field.
//
// The tower is built as F_{2^{2^{k+1}}} = F_{2^{2^k}}[x_k]/(x_k^2 + x_k*x_{k-1} + 1)
// with x_{-1} = 1. A level-k element occupies the low 2^k bits of the
// 128-bit value; the subfield of a level sits on the low bits of the next,
// so embedding into a higher level is the identity on the value.
type Element struct {
	hi, lo uint64
	level  Level
}

// New creates a level-k element from its 128-bit representation.
// It fails if the level is out of range or the value does not fit in
// 2^k bits.
func New(level Level, hi, lo uint64) (Element, error) {
	if level > MaxLevel {
		return Element{}, fmt.Errorf("tower level %d exceeds maximum %d", level, MaxLevel)
	}
	if level < MaxLevel && hi != 0 {
		return Element{}, fmt.Errorf("value does not fit in level %d", level)
	}
	if level < 6 && lo>>(uint(1)<<level) != 0 {
		return Element{}, fmt.Errorf("value does not fit in level %d", level)
	}
	return Element{hi: hi, lo: lo, level: level}, nil
}

// FromUint64 creates a level-k element from a uint64 value.
func FromUint64(level Level, v uint64) (Element, error) {
	return New(level, 0, v)
}

// Zero returns the additive identity at the given level.
func Zero(level Level) Element {
	return Element{level: level}
}

// One returns the multiplicative identity at the given level.
func One(level Level) Element {
	return Element{lo: 1, level: level}
}

// Random generates a uniformly random element at the given level.
func Random(level Level) (Element, error) {
	if level > MaxLevel {
		return Element{}, fmt.Errorf("tower level %d exceeds maximum %d", level, MaxLevel)
	}
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return Element{}, fmt.Errorf("failed to generate random element: %w", err)
	}
	lo := binary.LittleEndian.Uint64(buf[0:8])
	hi := binary.LittleEndian.Uint64(buf[8:16])
	switch {
	case level == MaxLevel:
		return Element{hi: hi, lo: lo, level: level}, nil
	case level == 6:
		return Element{lo: lo, level: level}, nil
	default:
		return Element{lo: lo & ((uint64(1) << (uint(1) << level)) - 1), level: level}, nil
	}
}

// Level returns the tower level this element belongs to.
func (e Element) Level() Level {
	return e.level
}

// IsZero reports whether the element is the additive identity.
func (e Element) IsZero() bool {
	return e.hi == 0 && e.lo == 0
}

// IsOne reports whether the element is the multiplicative identity.
func (e Element) IsOne() bool {
	return e.hi == 0 && e.lo == 1
}

// Equal reports whether two elements have the same level and value.
func (e Element) Equal(other Element) bool {
	return e.level == other.level && e.hi == other.hi && e.lo == other.lo
}

// Add performs field addition (XOR in characteristic 2).
func (e Element) Add(other Element) Element {
	if e.level != other.level {
		panic("cannot add elements from different tower levels")
	}
	return Element{hi: e.hi ^ other.hi, lo: e.lo ^ other.lo, level: e.level}
}

// Mul performs field multiplication.
func (e Element) Mul(other Element) Element {
	if e.level != other.level {
		panic("cannot multiply elements from different tower levels")
	}
	if e.level == MaxLevel {
		hi, lo := mul128(e.hi, e.lo, other.hi, other.lo)
		return Element{hi: hi, lo: lo, level: e.level}
	}
	return Element{lo: mul64(e.lo, other.lo, uint(e.level)), level: e.level}
}

// Square returns the element multiplied by itself.
func (e Element) Square() Element {
	return e.Mul(e)
}

// Inverse returns the multiplicative inverse.
// It fails with ErrDivisionByZero on the additive identity.
func (e Element) Inverse() (Element, error) {
	if e.IsZero() {
		return Element{}, ErrDivisionByZero
	}
	if e.level == MaxLevel {
		hi, lo := inv128(e.hi, e.lo)
		return Element{hi: hi, lo: lo, level: e.level}, nil
	}
	return Element{lo: inv64(e.lo, uint(e.level)), level: e.level}, nil
}

// Embed lifts the element into a higher tower level. The embedding is a
// ring homomorphism: the smaller field occupies the low bits of the larger.
func (e Element) Embed(target Level) (Element, error) {
	if target > MaxLevel {
		return Element{}, fmt.Errorf("tower level %d exceeds maximum %d", target, MaxLevel)
	}
	if target < e.level {
		return Element{}, fmt.Errorf("cannot embed level %d into smaller level %d", e.level, target)
	}
	return Element{hi: e.hi, lo: e.lo, level: target}, nil
}

// Bytes returns the canonical 16-byte little-endian serialization.
// Elements are always serialized at full 128-bit width; lower-level
// elements embed on the low bytes.
func (e Element) Bytes() []byte {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:8], e.lo)
	binary.LittleEndian.PutUint64(buf[8:16], e.hi)
	return buf[:]
}

// FromBytes reconstructs a top-level element from 16 little-endian bytes.
func FromBytes(b []byte) (Element, error) {
	if len(b) != 16 {
		return Element{}, fmt.Errorf("expected 16 bytes, got %d", len(b))
	}
	return Element{
		lo:    binary.LittleEndian.Uint64(b[0:8]),
		hi:    binary.LittleEndian.Uint64(b[8:16]),
		level: MaxLevel,
	}, nil
}

// MarshalBinary implements encoding.BinaryMarshaler: one level byte
// followed by the canonical 16-byte value.
func (e Element) MarshalBinary() ([]byte, error) {
	out := make([]byte, 17)
	out[0] = byte(e.level)
	copy(out[1:], e.Bytes())
	return out, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (e *Element) UnmarshalBinary(data []byte) error {
	if len(data) != 17 {
		return fmt.Errorf("expected 17 bytes, got %d", len(data))
	}
	lo := binary.LittleEndian.Uint64(data[1:9])
	hi := binary.LittleEndian.Uint64(data[9:17])
	elem, err := New(Level(data[0]), hi, lo)
	if err != nil {
		return err
	}
	*e = elem
	return nil
}

// String returns the element as a hex string for logs and errors.
func (e Element) String() string {
	return hex.EncodeToString(e.Bytes())
}

// mul64 multiplies two level-k elements for k <= 6, operating on the low
// 2^k bits. The recursion splits a = aHi*x + aLo over the previous level
// and uses one Karatsuba product for the cross terms:
//
//	(aHi*x + aLo)(bHi*x + bLo) = x*(aHi*bLo + aLo*bHi + aHi*bHi*alpha) + (aLo*bLo + aHi*bHi)
//
// where x^2 = x*alpha + 1 and alpha is the generator of the previous level.
func mul64(a, b uint64, level uint) uint64 {
	if level == 0 {
		return a & b & 1
	}
	halfBits := uint(1) << (level - 1)
	mask := (uint64(1) << halfBits) - 1
	aLo, aHi := a&mask, a>>halfBits
	bLo, bHi := b&mask, b>>halfBits

	loProd := mul64(aLo, bLo, level-1)
	hiProd := mul64(aHi, bHi, level-1)
	mid := mul64(aLo^aHi, bLo^bHi, level-1)

	lo := loProd ^ hiProd
	hi := mid ^ lo ^ mulAlpha64(hiProd, level-1)
	return hi<<halfBits | lo
}

// mulAlpha64 multiplies a level-k element by the generator x_{k-1} of its
// own level. For k = 0 the generator degenerates to 1.
func mulAlpha64(a uint64, level uint) uint64 {
	if level == 0 {
		return a
	}
	halfBits := uint(1) << (level - 1)
	mask := (uint64(1) << halfBits) - 1
	aLo, aHi := a&mask, a>>halfBits

	hi := mulAlpha64(aHi, level-1) ^ aLo
	return hi<<halfBits | aHi
}

// inv64 inverts a nonzero level-k element for k <= 6 using the norm map
// down the tower: for a = aHi*x + aLo the conjugate is aHi*x + (aLo + aHi*alpha)
// and the norm N = aLo^2 + aLo*aHi*alpha + aHi^2 lies in the previous level,
// so a^-1 = conjugate(a) * N^-1.
func inv64(a uint64, level uint) uint64 {
	if level == 0 {
		return a
	}
	halfBits := uint(1) << (level - 1)
	mask := (uint64(1) << halfBits) - 1
	aLo, aHi := a&mask, a>>halfBits
	if aHi == 0 {
		return inv64(aLo, level-1)
	}

	aHiAlpha := mulAlpha64(aHi, level-1)
	norm := mul64(aLo, aLo^aHiAlpha, level-1) ^ mul64(aHi, aHi, level-1)
	normInv := inv64(norm, level-1)

	hi := mul64(aHi, normInv, level-1)
	lo := mul64(aLo^aHiAlpha, normInv, level-1)
	return hi<<halfBits | lo
}

// mul128 multiplies two level-7 elements represented as two 64-bit words,
// applying the same tower recursion one step above mul64.
func mul128(aHi, aLo, bHi, bLo uint64) (hi, lo uint64) {
	loProd := mul64(aLo, bLo, 6)
	hiProd := mul64(aHi, bHi, 6)
	mid := mul64(aLo^aHi, bLo^bHi, 6)

	lo = loProd ^ hiProd
	hi = mid ^ lo ^ mulAlpha64(hiProd, 6)
	return hi, lo
}

// inv128 inverts a nonzero level-7 element.
func inv128(aHi, aLo uint64) (hi, lo uint64) {
	if aHi == 0 {
		return 0, inv64(aLo, 6)
	}

	aHiAlpha := mulAlpha64(aHi, 6)
	norm := mul64(aLo, aLo^aHiAlpha, 6) ^ mul64(aHi, aHi, 6)
	normInv := inv64(norm, 6)

	hi = mul64(aHi, normInv, 6)
	lo = mul64(aLo^aHiAlpha, normInv, 6)
	return hi, lo
}
