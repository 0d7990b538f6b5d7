package dsp

import "math"

// ToFloat normalizes a sample to [-1, 1].
func ToFloat(s int16) float64 {
	return float64(s) / MaxSample
}

// FromFloat scales x by full scale and rounds to the nearest sample.
// Values beyond full scale saturate.
func FromFloat(x float64) int16 {
	return saturate(math.Round(x * MaxSample))
}

// Truncate converts an already scaled value to a sample, rounding toward
// zero and saturating at the int16 range.
func Truncate(x float64) int16 {
	return saturate(math.Trunc(x))
}

// Saturate clamps an integer sum to the int16 range.
func Saturate(v int) int16 {
	if v > MaxSample {
		return MaxSample
	}
	if v < MinSample {
		return MinSample
	}
	return int16(v)
}

func saturate(v float64) int16 {
	switch {
	case math.IsNaN(v):
		return 0
	case v >= MaxSample:
		return MaxSample
	case v <= MinSample:
		return MinSample
	}
	return int16(v)
}

// EncodeBigEndian writes src into dst as 16-bit big-endian pairs, high byte
// first. dst must hold 2*len(src) bytes. Returns the number of bytes written.
func EncodeBigEndian(dst []byte, src []int16) int {
	n := 0
	for _, s := range src {
		dst[n] = byte(uint16(s) >> 8)
		dst[n+1] = byte(uint16(s))
		n += BytesPerSample
	}
	return n
}

// DecodeBigEndian is the inverse of EncodeBigEndian. Returns the number of
// samples decoded.
func DecodeBigEndian(dst []int16, src []byte) int {
	n := len(src) / BytesPerSample
	if n > len(dst) {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		dst[i] = int16(uint16(src[2*i])<<8 | uint16(src[2*i+1]))
	}
	return n
}
