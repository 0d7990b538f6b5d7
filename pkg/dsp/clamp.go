package dsp

import "math"

// Clamp limits v to [lo, hi] and reports whether v was out of range.
// NaN clamps to lo.
func Clamp(v, lo, hi float64) (float64, bool) {
	switch {
	case math.IsNaN(v):
		return lo, true
	case v < lo:
		return lo, true
	case v > hi:
		return hi, true
	}
	return v, false
}
