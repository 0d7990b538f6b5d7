// Package filter provides the resonant low-pass VCF.
package filter

import (
	"errors"
	"fmt"
	"math"

	"github.com/justyntemme/softsynth/pkg/dsp"
	"github.com/justyntemme/softsynth/pkg/dsp/envelope"
	"github.com/justyntemme/softsynth/pkg/framework/debug"
)

// Parameter limits
const (
	MinCutoff = 20.0
	MaxCutoff = 8000.0
	MinDepth  = -2.0
	MaxDepth  = 2.0

	DefaultCutoff = 1000.0

	// Stable for resonance in [0, 1]; above that the feedback loop gain
	// exceeds unity and the stability guard takes over.
	NominalMaxResonance = 1.0

	// MaxCutoffRatio is the highest effective cutoff, as a fraction of the
	// sample rate, the ladder accepts. p leaves (0, 1) at Nyquist and the
	// stages grow without bound past it, so an envelope sweep beyond this
	// ceiling holds the last good coefficients instead.
	MaxCutoffRatio = 0.45

	// stateLimit bounds the stage outputs. The cubic clip only saturates
	// below sqrt(2), so anything this large is a runaway loop.
	stateLimit = 1e3
)

// ErrFilterInstability marks coefficients the ladder cannot run stably, or
// filter state that diverged. The filter holds its last good coefficients,
// clears diverged state and keeps rendering.
var ErrFilterInstability = errors.New("filter instability")

// InstabilityError describes one instability event.
type InstabilityError struct {
	Cutoff    float64 // effective cutoff in Hz when the event happened
	Resonance float64
	Reason    string
}

func (e *InstabilityError) Error() string {
	return fmt.Sprintf("%v: %s (cutoff %.1f Hz, resonance %g)", ErrFilterInstability, e.Reason, e.Cutoff, e.Resonance)
}

func (e *InstabilityError) Unwrap() error {
	return ErrFilterInstability
}

// coefficients of the 4-pole ladder for one cutoff and resonance
type coefficients struct {
	p, k, r float64
}

func computeCoefficients(cutoff, resonance, sampleRate float64) coefficients {
	f := 2.0 * cutoff / sampleRate
	p := f * (1.8 - 0.8*f)
	t := (1.0 - p) * 1.386249
	t2 := 12.0 + t*t
	return coefficients{
		p: p,
		k: 2.0*p - 1.0,
		r: resonance * (t2 + 6.0*t) / (t2 - 6.0*t),
	}
}

func (c coefficients) finite() bool {
	return isFinite(c.p) && isFinite(c.k) && isFinite(c.r)
}

// stable reports whether each one-pole stage is a decaying recurrence.
func (c coefficients) stable() bool {
	return c.finite() && c.p > 0 && c.p < 1
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// VCF is a 4-pole resonant low-pass filter whose cutoff is swept by an
// envelope it owns. The cutoff moves by depth octaves at full envelope.
type VCF struct {
	cfg      dsp.Config
	upstream dsp.Source
	env      *envelope.Generator

	cutoff    float64
	resonance float64
	depth     float64
	bypassed  bool

	coef coefficients

	y1, y2, y3, y4            float64
	oldx, oldy1, oldy2, oldy3 float64

	instabilities uint64
	lastErr       *InstabilityError
	reported      bool
}

// NewVCF wraps upstream with a 1000 Hz filter, no resonance, no envelope
// depth. Panics if upstream is nil.
func NewVCF(cfg dsp.Config, upstream dsp.Source) *VCF {
	v := &VCF{
		cfg:      cfg,
		upstream: dsp.MustSource(upstream),
		env:      envelope.New(cfg),
		cutoff:   DefaultCutoff,
	}
	v.coef = computeCoefficients(math.Min(v.cutoff, v.maxCutoff()), v.resonance, float64(cfg.SampleRate))
	return v
}

// maxCutoff returns the effective cutoff ceiling in Hz.
func (v *VCF) maxCutoff() float64 {
	return MaxCutoffRatio * float64(v.cfg.SampleRate)
}

// Envelope exposes the cutoff envelope for its time and level setters.
func (v *VCF) Envelope() *envelope.Generator {
	return v.env
}

// NoteOn starts the cutoff envelope.
func (v *VCF) NoteOn() {
	v.env.NoteOn()
}

// NoteOff releases the cutoff envelope.
func (v *VCF) NoteOff() {
	v.env.NoteOff()
}

// SetCutoff sets the static cutoff, clamped to [20, 8000] Hz.
func (v *VCF) SetCutoff(hz float64) bool {
	hz, clamped := dsp.Clamp(hz, MinCutoff, MaxCutoff)
	v.cutoff = hz
	v.recalculate(hz)
	return clamped
}

// Cutoff returns the static cutoff in Hz.
func (v *VCF) Cutoff() float64 {
	return v.cutoff
}

// SetDepth sets the envelope sweep in octaves, clamped to [-2, 2].
func (v *VCF) SetDepth(octaves float64) bool {
	octaves, clamped := dsp.Clamp(octaves, MinDepth, MaxDepth)
	v.depth = octaves
	return clamped
}

// Depth returns the envelope sweep in octaves.
func (v *VCF) Depth() float64 {
	return v.depth
}

// SetResonance sets the feedback amount. It is not clamped; a value that
// produces non-finite coefficients is rejected, the previous resonance is
// kept and an *InstabilityError is returned.
func (v *VCF) SetResonance(r float64) error {
	c := computeCoefficients(math.Min(v.cutoff, v.maxCutoff()), r, float64(v.cfg.SampleRate))
	if !c.finite() {
		return v.unstable(v.cutoff, r, "non-finite coefficients")
	}
	v.resonance = r
	v.coef = c
	return nil
}

// Resonance returns the feedback amount.
func (v *VCF) Resonance() float64 {
	return v.resonance
}

// SetBypassed switches the filter out of the signal path. The envelope
// keeps running so note timing is unaffected.
func (v *VCF) SetBypassed(bypassed bool) {
	v.bypassed = bypassed
}

// Bypassed reports whether the filter is switched out.
func (v *VCF) Bypassed() bool {
	return v.bypassed
}

// Instabilities returns how many instability events have been handled.
func (v *VCF) Instabilities() uint64 {
	return v.instabilities
}

// Stability returns the most recent instability, or nil if there was none.
func (v *VCF) Stability() error {
	if v.lastErr == nil {
		return nil
	}
	return v.lastErr
}

// Reset clears the filter state and any recorded instability.
func (v *VCF) Reset() {
	v.clearState()
	v.instabilities = 0
	v.lastErr = nil
	v.reported = false
}

func (v *VCF) clearState() {
	v.y1, v.y2, v.y3, v.y4 = 0, 0, 0, 0
	v.oldx, v.oldy1, v.oldy2, v.oldy3 = 0, 0, 0, 0
}

func (v *VCF) unstable(cutoff, resonance float64, reason string) error {
	v.instabilities++
	v.lastErr = &InstabilityError{Cutoff: cutoff, Resonance: resonance, Reason: reason}
	return v.lastErr
}

// recalculate installs coefficients for cutoff, holding the previous ones
// if the cutoff is above the ceiling or the result is not stable.
func (v *VCF) recalculate(cutoff float64) {
	if cutoff > v.maxCutoff() {
		v.unstable(cutoff, v.resonance, "cutoff above ceiling")
		return
	}
	c := computeCoefficients(cutoff, v.resonance, float64(v.cfg.SampleRate))
	if !c.stable() {
		v.unstable(cutoff, v.resonance, "unstable coefficients")
		return
	}
	v.coef = c
}

// Process filters one sample. The envelope advances one step.
func (v *VCF) Process(s int16) int16 {
	level := v.env.Value()
	if v.bypassed {
		return s
	}

	cutoff := v.cutoff * math.Pow(2.0, v.depth*level)
	v.recalculate(cutoff)
	p, k, r := v.coef.p, v.coef.k, v.coef.r

	x := dsp.ToFloat(s) - r*v.y4

	v.y1 = x*p + v.oldx*p - k*v.y1
	v.y2 = v.y1*p + v.oldy1*p - k*v.y2
	v.y3 = v.y2*p + v.oldy2*p - k*v.y3
	v.y4 = v.y3*p + v.oldy3*p - k*v.y4

	v.y4 -= (v.y4 * v.y4 * v.y4) / 6.0

	v.oldx = x
	v.oldy1 = v.y1
	v.oldy2 = v.y2
	v.oldy3 = v.y3

	if !v.stateBounded() {
		v.unstable(cutoff, v.resonance, "state diverged")
		v.clearState()
		return 0
	}
	return dsp.Truncate(v.y4 * dsp.MaxSample)
}

func (v *VCF) stateBounded() bool {
	for _, y := range [...]float64{v.oldx, v.y1, v.y2, v.y3, v.y4} {
		if !isFinite(y) || math.Abs(y) > stateLimit {
			return false
		}
	}
	return true
}

// Fill pulls upstream and filters it in place - no allocations
func (v *VCF) Fill(buf []int16) int {
	v.upstream.Fill(buf)

	before := v.instabilities
	for i, s := range buf {
		buf[i] = v.Process(s)
	}

	// Log once per run of unstable buffers.
	if v.instabilities != before {
		if !v.reported {
			debug.Warn("vcf: %v (%d events)", v.lastErr, v.instabilities-before)
			v.reported = true
		}
	} else {
		v.reported = false
	}
	return len(buf)
}
