// Package util contains misc internal utilities.
package util

// GetBit returns the value of a given bit in a word
func GetBit(w uint32, bitIndex uint) bool {
	return w&(1<<bitIndex) != 0
}

// SetBit sets or clears a given bit in a word
func SetBit(w uint32, bitIndex uint, value bool) uint32 {
	if value {
		return w | 1<<bitIndex
	}
	return w &^ (1 << bitIndex)
}

// mask returns width ones, starting at bit 0
func mask(width uint) uint32 {
	if width >= 32 {
		return 0xFFFFFFFF
	}
	return 1<<width - 1
}

// GetField extracts the width bits of w starting at shift
func GetField(w uint32, shift, width uint) uint32 {
	return (w >> shift) & mask(width)
}

// SetField replaces the width bits of w starting at shift with v.
// bits of v above width are discarded, all other bits of w are unchanged
func SetField(w uint32, shift, width uint, v uint32) uint32 {
	m := mask(width) << shift
	return (w &^ m) | ((v << shift) & m)
}
