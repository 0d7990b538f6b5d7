package analysis

import (
	"math"

	"github.com/viterin/vek/vek32"

	"github.com/justyntemme/softsynth/pkg/dsp"
)

// Levels summarizes the amplitude of a buffer. All values are normalized so
// full scale is 1.
type Levels struct {
	Samples int
	Peak    float64
	RMS     float64
	DC      float64
}

// DB converts a linear level to decibels full scale. Zero maps to -Inf.
func DB(level float64) float64 {
	if level <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(level)
}

// normalize converts samples to float32 in [-1, 1].
func normalize(dst []float32, samples []int16) []float32 {
	if cap(dst) < len(samples) {
		dst = make([]float32, len(samples))
	}
	dst = dst[:len(samples)]
	for i, s := range samples {
		dst[i] = float32(s)
	}
	vek32.DivNumber_Inplace(dst, dsp.MaxSample)
	return dst
}

// Measure computes peak, RMS and DC offset.
func Measure(samples []int16) Levels {
	if len(samples) == 0 {
		return Levels{}
	}
	x := normalize(nil, samples)
	return measure(x)
}

func measure(x []float32) Levels {
	l := Levels{Samples: len(x)}
	l.DC = float64(vek32.Mean(x))
	l.RMS = math.Sqrt(float64(vek32.Dot(x, x)) / float64(len(x)))
	l.Peak = math.Max(float64(vek32.Max(x)), -float64(vek32.Min(x)))
	return l
}
