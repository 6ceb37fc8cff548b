// Package utils provides the Fiat-Shamir channel and small numeric helpers
// shared across the protocol packages.
package utils

import "math/bits"

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Log2 returns floor(log2(n)) for positive n.
func Log2(n int) int {
	return bits.Len(uint(n)) - 1
}
