// Package modulation provides the swept all-pass phaser.
package modulation

import (
	"math"

	"github.com/justyntemme/softsynth/pkg/dsp"
)

// Parameter limits
const (
	MinMixPercent      = 0.0
	MaxMixPercent      = 100.0
	MinSweepRate       = 0.2 // Hz
	MaxSweepRate       = 5.0 // Hz
	MinSweepRange      = 1   // octaves
	MaxSweepRange      = 7   // octaves
	MinFeedbackPercent = 0.0
	MaxFeedbackPercent = 100.0

	DefaultMixPercent      = 50.0
	DefaultSweepRate       = 0.5
	DefaultSweepRange      = 5
	DefaultFeedbackPercent = 10.0

	// BaseFrequency is the bottom of the sweep in Hz
	BaseFrequency = 100.0
)

// AllPassStage is a first-order all-pass section whose coefficient is
// supplied per sample so a bank of stages can share one sweep.
type AllPassStage struct {
	out    float64
	prevIn float64
}

// Process runs one sample through the stage with coefficient a.
func (s *AllPassStage) Process(a, in float64) float64 {
	s.out = a*(in+s.out) - s.prevIn
	s.prevIn = in
	return s.out
}

// Reset resets the stage state
func (s *AllPassStage) Reset() {
	s.out = 0
	s.prevIn = 0
}

// Phaser runs four all-pass stages whose break frequency sweeps
// exponentially between 100 Hz and 100 Hz times 2^range, reversing at each
// end. The last stage output feeds back into the input.
type Phaser struct {
	cfg      dsp.Config
	upstream dsp.Source

	mix        float64 // percent
	sweepRate  float64 // Hz
	sweepRange int     // octaves
	feedback   float64 // percent
	bypassed   bool

	stages [4]AllPassStage

	wp          float64
	minWp       float64
	maxWp       float64
	step        float64
	currentStep float64
}

// NewPhaser wraps upstream with a bypassed phaser at its defaults. Panics
// if upstream is nil.
func NewPhaser(cfg dsp.Config, upstream dsp.Source) *Phaser {
	p := &Phaser{
		cfg:        cfg,
		upstream:   dsp.MustSource(upstream),
		bypassed:   true,
		mix:        DefaultMixPercent,
		sweepRate:  DefaultSweepRate,
		sweepRange: DefaultSweepRange,
		feedback:   DefaultFeedbackPercent,
	}
	p.initialize()
	return p
}

// initialize restarts the sweep at the bottom of its range.
func (p *Phaser) initialize() {
	rate := float64(p.cfg.SampleRate)
	p.minWp = dsp.TwoPi * BaseFrequency / rate
	p.wp = p.minWp

	freqRange := math.Pow(2.0, float64(p.sweepRange))
	p.maxWp = p.minWp * freqRange
	p.step = math.Pow(freqRange, p.sweepRate/(rate/2.0))
	p.currentStep = p.step
}

// SetBypassed switches the phaser out of the signal path.
func (p *Phaser) SetBypassed(bypassed bool) {
	p.bypassed = bypassed
}

// Bypassed reports whether the phaser is switched out.
func (p *Phaser) Bypassed() bool {
	return p.bypassed
}

// SetMix sets the wet share in percent, clamped to [0, 100].
func (p *Phaser) SetMix(percent float64) bool {
	percent, clamped := dsp.Clamp(percent, MinMixPercent, MaxMixPercent)
	p.mix = percent
	return clamped
}

// Mix returns the wet share in percent.
func (p *Phaser) Mix() float64 {
	return p.mix
}

// SetSweepRate sets the sweep rate, clamped to [0.2, 5] Hz, and restarts
// the sweep.
func (p *Phaser) SetSweepRate(hz float64) bool {
	hz, clamped := dsp.Clamp(hz, MinSweepRate, MaxSweepRate)
	p.sweepRate = hz
	p.initialize()
	return clamped
}

// SweepRate returns the sweep rate in Hz.
func (p *Phaser) SweepRate() float64 {
	return p.sweepRate
}

// SetSweepRange sets the sweep width, clamped to [1, 7] octaves, and
// restarts the sweep.
func (p *Phaser) SetSweepRange(octaves int) bool {
	clamped := false
	if octaves < MinSweepRange {
		octaves, clamped = MinSweepRange, true
	} else if octaves > MaxSweepRange {
		octaves, clamped = MaxSweepRange, true
	}
	p.sweepRange = octaves
	p.initialize()
	return clamped
}

// SweepRange returns the sweep width in octaves.
func (p *Phaser) SweepRange() int {
	return p.sweepRange
}

// SetFeedback sets the feedback in percent, clamped to [0, 100].
func (p *Phaser) SetFeedback(percent float64) bool {
	percent, clamped := dsp.Clamp(percent, MinFeedbackPercent, MaxFeedbackPercent)
	p.feedback = percent
	return clamped
}

// Feedback returns the feedback in percent.
func (p *Phaser) Feedback() float64 {
	return p.feedback
}

// Reset clears the stages and restarts the sweep.
func (p *Phaser) Reset() {
	for i := range p.stages {
		p.stages[i].Reset()
	}
	p.initialize()
}

// ProcessSample runs one sample through the phaser.
func (p *Phaser) ProcessSample(s int16) int16 {
	if p.bypassed {
		return s
	}

	dry := dsp.ToFloat(s)
	a := (1.0 - p.wp) / (1.0 + p.wp)

	x := dry + p.feedback*p.stages[3].out/100.0
	for i := range p.stages {
		x = p.stages[i].Process(a, x)
	}

	out := (100.0-p.mix)*dry/100.0 + p.mix*x/100.0
	out, _ = dsp.Clamp(out, -1.0, 1.0)

	p.wp *= p.currentStep
	if p.wp > p.maxWp {
		p.currentStep = 1.0 / p.step
	} else if p.wp < p.minWp {
		p.currentStep = p.step
	}

	return dsp.Truncate(out * dsp.MaxSample)
}

// Fill pulls upstream and applies the phaser in place - no allocations
func (p *Phaser) Fill(buf []int16) int {
	p.upstream.Fill(buf)
	if p.bypassed {
		return len(buf)
	}
	for i, s := range buf {
		buf[i] = p.ProcessSample(s)
	}
	return len(buf)
}
