package sequencer

import (
	"fmt"
	"math"

	"github.com/justyntemme/softsynth/pkg/dsp"
	"github.com/justyntemme/softsynth/pkg/dsp/oscillator"
)

// Arpeggiator limits and defaults
const (
	Steps = 13 // semitone steps from the base frequency up to the octave

	DefaultArpFrequency  = 440.0
	DefaultToneLength    = 100 // percent of each beat that sounds
	DefaultVolumePercent = 100
)

// Step sets how many times one arpeggio tone sounds on the way up and on
// the way down.
type Step struct {
	UpBeats   int
	DownBeats int
}

// Arpeggiator is a leaf source that splits every buffer into beats and
// plays the enabled steps ascending, then descending.
type Arpeggiator struct {
	cfg        dsp.Config
	osc        *oscillator.Basic
	frequency  float64
	toneLength int
	volume     int
	steps      [Steps]Step
}

// NewArpeggiator creates an arpeggiator at 440 Hz with no beats enabled.
func NewArpeggiator(cfg dsp.Config) *Arpeggiator {
	a := &Arpeggiator{
		cfg:        cfg,
		osc:        oscillator.NewBasic(cfg),
		toneLength: DefaultToneLength,
		volume:     DefaultVolumePercent,
	}
	a.osc.SetWaveshape(oscillator.Sine)
	a.SetFrequency(DefaultArpFrequency)
	return a
}

// SetFrequency sets the base frequency, clamped like an oscillator's.
func (a *Arpeggiator) SetFrequency(hz float64) bool {
	clamped := a.osc.SetFrequency(hz)
	a.frequency = a.osc.Frequency()
	return clamped
}

// Frequency returns the base frequency in Hz.
func (a *Arpeggiator) Frequency() float64 {
	return a.frequency
}

// SetWaveshape sets the tone waveshape. Sine by default.
func (a *Arpeggiator) SetWaveshape(shape oscillator.Waveshape) {
	a.osc.SetWaveshape(shape)
}

// SetToneLength sets the sounding share of each beat, clamped to [0, 100]
// percent.
func (a *Arpeggiator) SetToneLength(percent int) bool {
	v, clamped := clampPercent(percent)
	a.toneLength = v
	return clamped
}

// ToneLength returns the sounding share of each beat in percent.
func (a *Arpeggiator) ToneLength() int {
	return a.toneLength
}

// SetVolume sets the output level, clamped to [0, 100] percent.
func (a *Arpeggiator) SetVolume(percent int) bool {
	v, clamped := clampPercent(percent)
	a.volume = v
	return clamped
}

// Volume returns the output level in percent.
func (a *Arpeggiator) Volume() int {
	return a.volume
}

// SetStep configures step i.
func (a *Arpeggiator) SetStep(i int, step Step) error {
	if i < 0 || i >= Steps {
		return fmt.Errorf("sequencer: arpeggiator step %d out of range [0, %d)", i, Steps)
	}
	if step.UpBeats < 0 || step.DownBeats < 0 {
		return fmt.Errorf("sequencer: arpeggiator step %d: negative beat count", i)
	}
	a.steps[i] = step
	return nil
}

// Step returns the configuration of step i.
func (a *Arpeggiator) Step(i int) Step {
	if i < 0 || i >= Steps {
		return Step{}
	}
	return a.steps[i]
}

// StepFrequency returns the frequency of step i, i semitones above the base.
func (a *Arpeggiator) StepFrequency(i int) float64 {
	return a.frequency * math.Pow(2.0, float64(i)*100/dsp.CentsPerOctave)
}

// Beats returns the total up and down beats.
func (a *Arpeggiator) Beats() (up, down int) {
	for _, s := range a.steps {
		up += s.UpBeats
		down += s.DownBeats
	}
	return up, down
}

// Fill writes one arpeggio cycle into buf. Samples left over after the
// last whole beat are silent.
func (a *Arpeggiator) Fill(buf []int16) int {
	up, down := a.Beats()
	total := up + down
	if total == 0 {
		dsp.Clear(buf)
		return len(buf)
	}

	perBeat := len(buf) / total
	index := 0
	for i := 0; i < Steps; i++ {
		if a.steps[i].UpBeats == 0 {
			continue
		}
		a.osc.SetFrequency(a.StepFrequency(i))
		for r := 0; r < a.steps[i].UpBeats; r++ {
			index = a.beat(buf, index, perBeat)
		}
	}
	for i := Steps - 1; i >= 0; i-- {
		if a.steps[i].DownBeats == 0 {
			continue
		}
		a.osc.SetFrequency(a.StepFrequency(i))
		for r := 0; r < a.steps[i].DownBeats; r++ {
			index = a.beat(buf, index, perBeat)
		}
	}
	dsp.Clear(buf[index:])
	return len(buf)
}

// beat writes one beat starting at index and returns the next index.
func (a *Arpeggiator) beat(buf []int16, index, n int) int {
	sounding := n * a.toneLength / 100
	gain := float64(a.volume) / 100
	for i := 0; i < n; i++ {
		if i < sounding {
			buf[index] = dsp.FromFloat(a.osc.Sample() * gain)
		} else {
			buf[index] = 0
		}
		index++
	}
	return index
}

func clampPercent(v int) (int, bool) {
	switch {
	case v < 0:
		return 0, true
	case v > 100:
		return 100, true
	}
	return v, false
}
