package oscillator

import (
	"fmt"
	"math"

	"github.com/justyntemme/softsynth/pkg/dsp"
)

// Modulation selects how the LFO acts on the carrier.
type Modulation int

const (
	// ModNone leaves the carrier untouched
	ModNone Modulation = iota
	// ModAM scales the carrier amplitude
	ModAM
	// ModFM scales the carrier frequency
	ModFM
)

// String returns the string representation of the modulation mode.
func (m Modulation) String() string {
	switch m {
	case ModNone:
		return "none"
	case ModAM:
		return "am"
	case ModFM:
		return "fm"
	default:
		return fmt.Sprintf("Modulation(%d)", int(m))
	}
}

// ParseModulation maps a name to a Modulation.
func ParseModulation(name string) (Modulation, error) {
	switch name {
	case "none", "":
		return ModNone, nil
	case "am", "AM":
		return ModAM, nil
	case "fm", "FM":
		return ModFM, nil
	}
	return ModNone, fmt.Errorf("unknown modulation %q", name)
}

// Range is an organ-stop footage selecting an octave multiplier.
type Range int

const (
	Range16 Range = 16 // two octaves down
	Range8  Range = 8  // one octave down
	Range4  Range = 4  // unison
	Range2  Range = 2  // one octave up
	Range1  Range = 1  // two octaves up
)

// Multiplier returns the frequency factor for the footage and whether the
// footage is one of the known stops. Unknown footage maps to unison.
func (r Range) Multiplier() (float64, bool) {
	switch r {
	case Range16:
		return 0.25, true
	case Range8:
		return 0.5, true
	case Range4:
		return 1.0, true
	case Range2:
		return 2.0, true
	case Range1:
		return 4.0, true
	}
	return 1.0, false
}

// Limits for the advanced oscillator controls.
const (
	MinDetuneCents = 0.0
	MaxDetuneCents = 1200.0
	MinModDepth    = 0.0
	MaxModDepth    = 1.0

	DefaultLFOFrequency = 1.0
)

// Advanced adds footage range, detune and an LFO for AM or FM to a Basic
// carrier.
type Advanced struct {
	carrier *Basic
	lfo     *Basic

	baseFrequency float64
	rangeFeet     Range
	rangeMult     float64
	detuneCents   float64
	detuneMult    float64
	modulation    Modulation
	depth         float64
}

// NewAdvanced creates a 1000 Hz sine carrier at unison with a 1 Hz sine LFO
// and no modulation.
func NewAdvanced(cfg dsp.Config) *Advanced {
	o := &Advanced{
		carrier:       NewBasic(cfg),
		lfo:           NewBasic(cfg),
		baseFrequency: DefaultFrequency,
		rangeFeet:     Range4,
		rangeMult:     1.0,
		detuneMult:    1.0,
	}
	o.lfo.SetFrequency(DefaultLFOFrequency)
	return o
}

// SetFrequency sets the base frequency before range, detune and FM apply.
func (o *Advanced) SetFrequency(hz float64) bool {
	clamped := false
	if math.IsNaN(hz) || math.IsInf(hz, 0) || hz < MinFrequency {
		hz = MinFrequency
		clamped = true
	}
	o.baseFrequency = hz
	return clamped
}

// Frequency returns the base frequency.
func (o *Advanced) Frequency() float64 {
	return o.baseFrequency
}

// SetWaveshape selects the carrier waveform.
func (o *Advanced) SetWaveshape(shape Waveshape) {
	o.carrier.SetWaveshape(shape)
}

// SetRange selects the footage. Reports whether feet was unknown, in which
// case unison is used.
func (o *Advanced) SetRange(feet Range) bool {
	mult, ok := feet.Multiplier()
	o.rangeFeet = feet
	if !ok {
		o.rangeFeet = Range4
	}
	o.rangeMult = mult
	return !ok
}

// Range returns the selected footage.
func (o *Advanced) Range() Range {
	return o.rangeFeet
}

// SetDetune sets the detune in cents, clamped to [0, 1200].
func (o *Advanced) SetDetune(cents float64) bool {
	cents, clamped := dsp.Clamp(cents, MinDetuneCents, MaxDetuneCents)
	o.detuneCents = cents
	o.detuneMult = math.Pow(2.0, cents/dsp.CentsPerOctave)
	return clamped
}

// Detune returns the detune in cents.
func (o *Advanced) Detune() float64 {
	return o.detuneCents
}

// SetLFOFrequency sets the modulator frequency in Hz.
func (o *Advanced) SetLFOFrequency(hz float64) bool {
	return o.lfo.SetFrequency(hz)
}

// SetLFOWaveshape selects the modulator waveform.
func (o *Advanced) SetLFOWaveshape(shape Waveshape) {
	o.lfo.SetWaveshape(shape)
}

// SetModulation selects AM, FM or none.
func (o *Advanced) SetModulation(mode Modulation) {
	o.modulation = mode
}

// Modulation returns the modulation mode.
func (o *Advanced) Modulation() Modulation {
	return o.modulation
}

// SetModulationDepth sets the depth, clamped to [0, 1].
func (o *Advanced) SetModulationDepth(depth float64) bool {
	depth, clamped := dsp.Clamp(depth, MinModDepth, MaxModDepth)
	o.depth = depth
	return clamped
}

// ModulationDepth returns the modulation depth.
func (o *Advanced) ModulationDepth() float64 {
	return o.depth
}

// EffectiveFrequency returns the carrier frequency before FM is applied.
func (o *Advanced) EffectiveFrequency() float64 {
	return o.baseFrequency * o.rangeMult * o.detuneMult
}

// Sample returns the next modulated value. In FM mode the LFO is read once
// for the frequency; in AM mode it is read once for the gain.
func (o *Advanced) Sample() float64 {
	freq := o.baseFrequency
	if o.modulation == ModFM && o.depth != 0 {
		freq *= math.Pow(2.0, o.lfo.Sample()*o.depth)
	}
	freq *= o.rangeMult
	freq *= o.detuneMult
	o.carrier.SetFrequency(freq)

	value := o.carrier.Sample()
	if o.modulation == ModAM {
		value *= 1.0 - o.depth*((o.lfo.Sample()+1.0)/2.0)
	}
	return value
}

// Fill renders one sample per slot - no allocations
func (o *Advanced) Fill(buf []int16) int {
	for i := range buf {
		buf[i] = dsp.FromFloat(o.Sample())
	}
	return len(buf)
}
