// Package envelope provides the ADSR envelope generator driven by note events
package envelope

import (
	"fmt"

	"github.com/justyntemme/softsynth/pkg/dsp"
)

// State represents the current envelope stage
type State int

const (
	// StateIdle outputs zero and waits for a note on
	StateIdle State = iota
	// StateAttack ramps from zero to full scale
	StateAttack
	// StateDecay ramps from full scale to the sustain level
	StateDecay
	// StateSustain holds the sustain level until note off
	StateSustain
	// StateRelease ramps from the sustain level to zero
	StateRelease
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAttack:
		return "attack"
	case StateDecay:
		return "decay"
	case StateSustain:
		return "sustain"
	case StateRelease:
		return "release"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Parameter limits
const (
	MinTimeMS  = 1.0
	MaxTimeMS  = 5000.0
	MinSustain = 0.0
	MaxSustain = 1.0

	DefaultAttackMS  = 1.0
	DefaultDecayMS   = 1000.0
	DefaultSustain   = 0.5
	DefaultReleaseMS = 2000.0
)

// Generator is a linear ADSR state machine advanced once per Value call.
// Lengths are whole sample counts; slopes come from the unrounded count so
// each ramp lands on its target at the boundary.
type Generator struct {
	cfg dsp.Config

	attackMS  float64
	decayMS   float64
	releaseMS float64
	sustain   float64

	attackSamples  float64
	decaySamples   float64
	releaseSamples float64

	attackLength  int
	decayLength   int
	releaseLength int

	attackSlope  float64
	decaySlope   float64
	releaseSlope float64

	state    State
	position int
	noteOn   bool
	noteOff  bool
}

// New creates an idle generator with a 1 ms attack, 1 s decay, 0.5 sustain
// and 2 s release.
func New(cfg dsp.Config) *Generator {
	g := &Generator{cfg: cfg, sustain: DefaultSustain}
	g.SetAttack(DefaultAttackMS)
	g.SetDecay(DefaultDecayMS)
	g.SetRelease(DefaultReleaseMS)
	return g
}

// NoteOn arms the attack. If the envelope is not idle it first drops to
// idle for one sample.
func (g *Generator) NoteOn() {
	g.noteOn = true
}

// NoteOff arms the release. It takes effect once the envelope reaches
// sustain and is discarded while idle.
func (g *Generator) NoteOff() {
	g.noteOff = true
}

// SetAttack sets the attack time in milliseconds, clamped to [1, 5000].
func (g *Generator) SetAttack(ms float64) bool {
	ms, clamped := dsp.Clamp(ms, MinTimeMS, MaxTimeMS)
	g.attackMS = ms
	g.attackSamples = g.cfg.MillisToSamples(ms)
	g.attackLength = int(g.attackSamples)
	g.attackSlope = 1.0 / g.attackSamples
	return clamped
}

// SetDecay sets the decay time in milliseconds, clamped to [1, 5000].
func (g *Generator) SetDecay(ms float64) bool {
	ms, clamped := dsp.Clamp(ms, MinTimeMS, MaxTimeMS)
	g.decayMS = ms
	g.decaySamples = g.cfg.MillisToSamples(ms)
	g.decayLength = int(g.decaySamples)
	g.updateDecaySlope()
	return clamped
}

// SetRelease sets the release time in milliseconds, clamped to [1, 5000].
func (g *Generator) SetRelease(ms float64) bool {
	ms, clamped := dsp.Clamp(ms, MinTimeMS, MaxTimeMS)
	g.releaseMS = ms
	g.releaseSamples = g.cfg.MillisToSamples(ms)
	g.releaseLength = int(g.releaseSamples)
	g.updateReleaseSlope()
	return clamped
}

// SetSustain sets the sustain level, clamped to [0, 1]. The decay and
// release slopes are relative to it and are recomputed.
func (g *Generator) SetSustain(level float64) bool {
	level, clamped := dsp.Clamp(level, MinSustain, MaxSustain)
	g.sustain = level
	g.updateDecaySlope()
	g.updateReleaseSlope()
	return clamped
}

func (g *Generator) updateDecaySlope() {
	g.decaySlope = (1.0 - g.sustain) / g.decaySamples
}

func (g *Generator) updateReleaseSlope() {
	g.releaseSlope = g.sustain / g.releaseSamples
}

// Attack returns the attack time in milliseconds.
func (g *Generator) Attack() float64 { return g.attackMS }

// Decay returns the decay time in milliseconds.
func (g *Generator) Decay() float64 { return g.decayMS }

// Release returns the release time in milliseconds.
func (g *Generator) Release() float64 { return g.releaseMS }

// Sustain returns the sustain level.
func (g *Generator) Sustain() float64 { return g.sustain }

// Lengths returns the attack, decay and release lengths in samples.
func (g *Generator) Lengths() (attack, decay, release int) {
	return g.attackLength, g.decayLength, g.releaseLength
}

// State returns the current stage.
func (g *Generator) State() State {
	return g.state
}

// IsActive returns true if the envelope is generating output
func (g *Generator) IsActive() bool {
	return g.state != StateIdle || g.noteOn
}

// Value advances the state machine by one sample and returns the envelope
// level in [0, 1].
func (g *Generator) Value() float64 {
	// A pending note on sends every active stage back to idle first.
	if g.state != StateIdle && g.noteOn {
		g.state = StateIdle
		return 0.0
	}

	switch g.state {
	case StateIdle:
		g.noteOff = false
		if g.noteOn {
			g.noteOn = false
			g.position = 0
			g.state = StateAttack
		}
		return 0.0

	case StateAttack:
		if g.position >= g.attackLength {
			g.position = 0
			g.state = StateDecay
			return 1.0
		}
		value := float64(g.position) * g.attackSlope
		g.position++
		return value

	case StateDecay:
		if g.position >= g.decayLength {
			g.state = StateSustain
			return g.sustain
		}
		value := 1.0 - float64(g.position)*g.decaySlope
		g.position++
		return value

	case StateSustain:
		if g.noteOff {
			g.noteOff = false
			g.position = 0
			g.state = StateRelease
		}
		return g.sustain

	case StateRelease:
		if g.position >= g.releaseLength {
			g.state = StateIdle
			return 0.0
		}
		value := g.sustain - float64(g.position)*g.releaseSlope
		g.position++
		if value < 0 {
			return 0.0
		}
		return value
	}

	return 0.0
}

// Fill writes the envelope as samples - no allocations
func (g *Generator) Fill(buf []int16) int {
	for i := range buf {
		buf[i] = dsp.FromFloat(g.Value())
	}
	return len(buf)
}
