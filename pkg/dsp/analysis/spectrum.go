package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/ktye/fft"

	"github.com/justyntemme/softsynth/pkg/dsp"
)

// MinSpectrumSize is the shortest input Spectrum accepts.
const MinSpectrumSize = 16

// ErrTooShort is returned when a buffer is too short to analyze.
var ErrTooShort = errors.New("analysis: buffer too short")

// hann returns an n-point Hann window.
func hann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = (1 - math.Cos(dsp.TwoPi*float64(i)/float64(n))) / 2
	}
	return w
}

// powerOfTwo returns the largest power of two not above n.
func powerOfTwo(n int) int {
	p := 1
	for p*2 <= n {
		p *= 2
	}
	return p
}

// Spectrum returns the magnitude spectrum of the largest power-of-two prefix
// of samples. Bin k covers k*rate/n Hz for k in [0, n/2].
func Spectrum(samples []int16) ([]float64, error) {
	if len(samples) < MinSpectrumSize {
		return nil, fmt.Errorf("%w: %d samples, need %d", ErrTooShort, len(samples), MinSpectrumSize)
	}
	n := powerOfTwo(len(samples))

	f, err := fft.New(n)
	if err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}

	window := hann(n)
	buf := make([]complex128, n)
	var norm float64
	for i := range buf {
		buf[i] = complex(dsp.ToFloat(samples[i])*window[i], 0)
		norm += window[i]
	}
	buf = f.Transform(buf)

	mags := make([]float64, n/2+1)
	for k := range mags {
		mags[k] = cmplx.Abs(buf[k]) * 2 / norm
	}
	return mags, nil
}

// PeakFrequency returns the frequency of the strongest non-DC bin, refined
// by parabolic interpolation over its neighbours.
func PeakFrequency(samples []int16, cfg dsp.Config) (float64, error) {
	mags, err := Spectrum(samples)
	if err != nil {
		return 0, err
	}
	n := (len(mags) - 1) * 2

	peak := 1
	for k := 2; k < len(mags); k++ {
		if mags[k] > mags[peak] {
			peak = k
		}
	}

	offset := 0.0
	if peak > 0 && peak < len(mags)-1 {
		a, b, c := mags[peak-1], mags[peak], mags[peak+1]
		if d := a - 2*b + c; d != 0 {
			offset = 0.5 * (a - c) / d
		}
	}

	return (float64(peak) + offset) * float64(cfg.SampleRate) / float64(n), nil
}
