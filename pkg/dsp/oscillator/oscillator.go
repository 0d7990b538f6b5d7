// Package oscillator provides the waveform generators at the leaf of a chain.
package oscillator

import (
	"fmt"
	"math"

	"github.com/justyntemme/softsynth/pkg/dsp"
)

// Waveshape selects the waveform an oscillator produces.
type Waveshape int

const (
	// Sine produces sin(2πx)
	Sine Waveshape = iota
	// Square produces +1 for the first half of the period and -1 after
	Square
	// Sawtooth produces a ramp from -1 to 1
	Sawtooth
)

// String returns the string representation of the waveshape.
func (w Waveshape) String() string {
	switch w {
	case Sine:
		return "sine"
	case Square:
		return "square"
	case Sawtooth:
		return "sawtooth"
	default:
		return fmt.Sprintf("Waveshape(%d)", int(w))
	}
}

// ParseWaveshape maps a name to a Waveshape.
func ParseWaveshape(name string) (Waveshape, error) {
	switch name {
	case "sine", "sin", "":
		return Sine, nil
	case "square", "squ":
		return Square, nil
	case "sawtooth", "saw":
		return Sawtooth, nil
	}
	return Sine, fmt.Errorf("unknown waveshape %q", name)
}

const (
	// DefaultFrequency of a new oscillator in Hz
	DefaultFrequency = 1000.0
	// MinFrequency is the lowest accepted frequency in Hz
	MinFrequency = 0.01
)

// Basic generates a single waveform from an integer sample counter.
// The period is a whole number of samples, so the output repeats exactly.
// Frequencies above half the sample rate give periods under 2 samples and
// alias.
type Basic struct {
	sampleRate float64
	frequency  float64
	period     int64
	phase      int64
	shape      Waveshape
}

// NewBasic creates a sine oscillator at 1000 Hz.
func NewBasic(cfg dsp.Config) *Basic {
	o := &Basic{
		sampleRate: float64(cfg.SampleRate),
		shape:      Sine,
	}
	o.SetFrequency(DefaultFrequency)
	return o
}

// SetFrequency recomputes the period as sampleRate/hz rounded toward zero.
// The phase counter keeps running. Reports whether hz was below
// MinFrequency or not finite.
func (o *Basic) SetFrequency(hz float64) bool {
	clamped := false
	if math.IsNaN(hz) || math.IsInf(hz, 0) || hz < MinFrequency {
		hz = MinFrequency
		clamped = true
	}
	o.frequency = hz
	o.period = int64(o.sampleRate / hz)
	if o.period < 1 {
		o.period = 1
	}
	return clamped
}

// SetWaveshape selects the waveform.
func (o *Basic) SetWaveshape(shape Waveshape) {
	o.shape = shape
}

// Frequency returns the last frequency set in Hz.
func (o *Basic) Frequency() float64 {
	return o.frequency
}

// Period returns the period length in samples.
func (o *Basic) Period() int64 {
	return o.period
}

// Waveshape returns the selected waveform.
func (o *Basic) Waveshape() Waveshape {
	return o.shape
}

// Reset restarts the waveform at phase zero.
func (o *Basic) Reset() {
	o.phase = 0
}

// Sample returns the next waveform value in [-1, 1] and advances the phase.
func (o *Basic) Sample() float64 {
	x := float64(o.phase) / float64(o.period)

	var value float64
	switch o.shape {
	case Square:
		if o.phase < o.period/2 {
			value = 1.0
		} else {
			value = -1.0
		}
	case Sawtooth:
		value = 2.0 * (x - math.Floor(x+0.5))
	default:
		value = math.Sin(dsp.TwoPi * x)
	}

	o.phase = (o.phase + 1) % o.period
	return value
}

// Fill renders one sample per slot - no allocations
func (o *Basic) Fill(buf []int16) int {
	for i := range buf {
		buf[i] = dsp.FromFloat(o.Sample())
	}
	return len(buf)
}
