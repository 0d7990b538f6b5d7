// Package vca provides an envelope-controlled amplifier.
package vca

import (
	"github.com/justyntemme/softsynth/pkg/dsp"
	"github.com/justyntemme/softsynth/pkg/dsp/envelope"
)

// VCA scales its upstream by an envelope it owns, one envelope step per
// sample.
type VCA struct {
	upstream dsp.Source
	env      *envelope.Generator
}

// New wraps upstream with an amplifier using the default envelope
// (1 ms attack, 1 s decay, 0.5 sustain, 2 s release). Panics if upstream is
// nil.
func New(cfg dsp.Config, upstream dsp.Source) *VCA {
	return &VCA{
		upstream: dsp.MustSource(upstream),
		env:      envelope.New(cfg),
	}
}

// Envelope exposes the gain envelope for its time and level setters.
func (v *VCA) Envelope() *envelope.Generator {
	return v.env
}

// NoteOn starts the gain envelope.
func (v *VCA) NoteOn() {
	v.env.NoteOn()
}

// NoteOff releases the gain envelope.
func (v *VCA) NoteOff() {
	v.env.NoteOff()
}

// Fill pulls upstream and applies the envelope - no allocations
func (v *VCA) Fill(buf []int16) int {
	v.upstream.Fill(buf)
	for i, s := range buf {
		buf[i] = dsp.Truncate(float64(s) * v.env.Value())
	}
	return len(buf)
}
