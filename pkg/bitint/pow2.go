/*
Package bitint provides bit manipulation functions for power-of-2 buffer
sizing and FFT index arithmetic.

Design Principles:
- Zero Allocations: All operations use stack memory only
- Predictable Performance: O(1) constant time operations
- Real-Time Safe: No locks, syscalls, or blocking operations

Usage:

	// Find next power of 2 for buffer sizing
	bufferSize := bitint.NextPowerOfTwo(1000) // Returns 1024

	// Verify FFT window size is valid
	isValid := bitint.IsPowerOfTwo(windowSize)

	// Reorder an index for a decimation-in-time FFT
	j := bitint.Reverse(3, 3) // Returns 6 (binary 011 -> 110)
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the next power of 2 >= size.
// The subtraction (size-1) is what preserves exact powers of 2:
// without it, bits.Len of an exact power would land one position
// higher and the result would be doubled.
//
// Examples:
//
//	Input  Output  Explanation
//	4      4      Already power of 2 (preserved)
//	5      8      Next power after 5
//	0      1      Handle zero case
//	-1     1      Handle negative case
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return int(1 << (bits.Len64(uint64(size - 1))))
}

// IsPowerOfTwo checks if n is a power of 2 using bit manipulation.
// The expression (n & (n-1)) == 0 works because powers of 2 have exactly
// one bit set, and subtracting 1 sets all lower bits.
//
// Examples:
//
//	Input  Output  Binary
//	8      true    1000 & 0111 = 0000
//	7      false   0111 & 0110 = 0110
//	0      false   Not positive
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// Log2 returns the base-2 logarithm of n for exact powers of 2.
// For n <= 0 it returns 0. Non-powers round down (Log2(6) == 2).
func Log2(n int) uint {
	if n <= 0 {
		return 0
	}
	return uint(bits.Len64(uint64(n))) - 1
}

// Reverse returns x with its low numBits bits reversed. This is the
// index permutation required before an in-place iterative
// decimation-in-time FFT.
//
// Examples:
//
//	Reverse(3, 3) == 6  // 011 -> 110
//	Reverse(1, 4) == 8  // 0001 -> 1000
//	Reverse(0, n) == 0  // for any n
func Reverse(x uint32, numBits uint) uint32 {
	return bits.Reverse32(x) >> (32 - numBits)
}
