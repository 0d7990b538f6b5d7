package dsp

import (
	"math"
	"testing"
)

func TestSampleRange(t *testing.T) {
	if MaxSample != math.MaxInt16 {
		t.Errorf("MaxSample = %d, want %d", MaxSample, math.MaxInt16)
	}
	if MinSample != math.MinInt16 {
		t.Errorf("MinSample = %d, want %d", MinSample, math.MinInt16)
	}
	if DefaultBufferSize*BytesPerSample != 1000 {
		t.Errorf("default buffer is %d bytes, want 1000", DefaultBufferSize*BytesPerSample)
	}
}

func TestMathConstants(t *testing.T) {
	if math.Abs(Pi-math.Pi) > 1e-10 {
		t.Errorf("Pi constant incorrect: %f vs %f", Pi, math.Pi)
	}

	if math.Abs(TwoPi-2*math.Pi) > 1e-10 {
		t.Errorf("TwoPi constant incorrect: %f vs %f", TwoPi, 2*math.Pi)
	}

	if math.Abs(HalfPi-math.Pi/2) > 1e-10 {
		t.Errorf("HalfPi constant incorrect: %f vs %f", HalfPi, math.Pi/2)
	}
}
