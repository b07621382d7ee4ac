// Constants
package internal

// Storage alignment unit used when neither the caller nor the volume gives us one.
// O_DIRECT wants offsets, lengths and buffer addresses on this boundary.
const DEFAULT_ALIGN	= 0x1000
// Smallest unit O_DIRECT will ever accept (logical sector)
const MIN_ALIGN		= 0x200

const RING_ENTRIES	= 0x80

// Rounds n up to the next multiple of unit. 0 stays 0.
func RoundUp(n int, unit int) int {
	if unit <= 0 { return n }
	return ((n + unit - 1) / unit) * unit
}

func IsPow2(n int) bool {
	return n > 0 && n&(n-1) == 0
}
