// Package mathx provides small numeric helpers used when converting between
// physical units and converter codes
package mathx

import "math"

// IRound rounds x to the nearest integer, halves away from zero
func IRound(x float64) int {
	return int(math.Round(x))
}

// Scale linearly maps x from [0, fromMax] to [0, toMax]
func Scale(x, fromMax, toMax float64) float64 {
	return toMax * x / fromMax
}
