package alloc

import "math/bits"

// IsPowerOfTwo reports whether n is a non-zero power of two.
func IsPowerOfTwo(n uint32) bool {
	return n != 0 && n&(n-1) == 0
}

// NextPowerOfTwo returns the smallest power of two >= n.
// NextPowerOfTwo(0) is 1. Returns 0 when the result does not fit in uint32.
func NextPowerOfTwo(n uint32) uint32 {
	if n <= 1 {
		return 1
	}
	shift := bits.Len32(n - 1)
	if shift >= 32 {
		return 0
	}
	return 1 << shift
}

// Order returns log2 of NextPowerOfTwo(n).
func Order(n uint32) uint8 {
	if n <= 1 {
		return 0
	}
	return uint8(bits.Len32(n - 1))
}

// blockSize returns the size of a block of the given order.
func blockSize(order uint8) uint32 {
	return 1 << order
}
