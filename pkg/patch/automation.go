package patch

import (
	"fmt"

	"github.com/justyntemme/softsynth/pkg/dsp/oscillator"
	"github.com/justyntemme/softsynth/pkg/framework/debug"
)

// automation binds a parameter change to a built instrument. The returned
// function runs on the render goroutine.
type automation func(inst *Instrument, value float64) func()

var automationParams = map[string]automation{
	"note_on": func(inst *Instrument, _ float64) func() {
		v := inst.Voice()
		return v.NoteOn
	},
	"note_off": func(inst *Instrument, _ float64) func() {
		v := inst.Voice()
		return v.NoteOff
	},
	"frequency": func(inst *Instrument, hz float64) func() {
		return func() {
			if t := inst.Tuner(); t != nil {
				clamped(inst.Name, "automated frequency", t.SetFrequency(hz))
			}
		}
	},
	// 0 sine, 1 square, 2 sawtooth
	"waveshape": func(inst *Instrument, shape float64) func() {
		ws := oscillator.Waveshape(shape)
		return func() {
			switch {
			case inst.Advanced != nil:
				inst.Advanced.SetWaveshape(ws)
			case inst.Basic != nil:
				inst.Basic.SetWaveshape(ws)
			case inst.Arpeggiator != nil:
				inst.Arpeggiator.SetWaveshape(ws)
			}
		}
	},
	"range": func(inst *Instrument, feet float64) func() {
		return func() {
			if inst.Advanced == nil {
				debug.Warn("patch %q: range automation needs an advanced oscillator", inst.Name)
				return
			}
			clamped(inst.Name, "automated range", inst.Advanced.SetRange(oscillator.Range(feet)))
		}
	},
	"detune": func(inst *Instrument, cents float64) func() {
		return func() {
			if inst.Advanced == nil {
				debug.Warn("patch %q: detune automation needs an advanced oscillator", inst.Name)
				return
			}
			clamped(inst.Name, "automated detune", inst.Advanced.SetDetune(cents))
		}
	},
	"cutoff": func(inst *Instrument, hz float64) func() {
		return func() {
			if inst.VCF != nil {
				clamped(inst.Name, "automated cutoff", inst.VCF.SetCutoff(hz))
			}
		}
	},
	"resonance": func(inst *Instrument, r float64) func() {
		return func() {
			if inst.VCF == nil {
				return
			}
			if err := inst.VCF.SetResonance(r); err != nil {
				debug.Warn("patch %q: %v", inst.Name, err)
			}
		}
	},
	"phaser": func(inst *Instrument, on float64) func() {
		return func() {
			if inst.Phaser != nil {
				inst.Phaser.SetBypassed(on == 0)
			}
		}
	},
	"delay": func(inst *Instrument, on float64) func() {
		return func() {
			if inst.Delay != nil {
				inst.Delay.SetBypassed(on == 0)
			}
		}
	},
}

// automationChecks reject values a parameter cannot take. Parameters
// without an entry accept any value and leave clamping to the unit.
var automationChecks = map[string]func(value float64) error{
	"waveshape": func(shape float64) error {
		ws := oscillator.Waveshape(shape)
		if float64(ws) != shape || ws < oscillator.Sine || ws > oscillator.Sawtooth {
			return fmt.Errorf("waveshape %g is not 0 (sine), 1 (square) or 2 (sawtooth)", shape)
		}
		return nil
	},
	"range": func(feet float64) error {
		r := oscillator.Range(feet)
		if _, known := r.Multiplier(); !known || float64(r) != feet {
			return fmt.Errorf("range %g is not one of 16, 8, 4, 2, 1", feet)
		}
		return nil
	},
}
