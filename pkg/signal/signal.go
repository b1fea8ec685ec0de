// Package signal maps a request size to a bounded signal level where each
// step up requires twice as many units.
package signal

import "math/bits"

const (
	MaxStrength        = 15
	SaturationQuantity = 16384
)

// Strength returns the signal level in [0, MaxStrength] for quantity.
func Strength(quantity int) int {
	if quantity <= 0 {
		return 0
	}
	if quantity >= SaturationQuantity {
		return MaxStrength
	}
	// bits.Len is floor(log2(q)) + 1 for q > 0
	return min(MaxStrength, bits.Len(uint(quantity)))
}
