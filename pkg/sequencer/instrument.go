package sequencer

// Instrument is what a player drives: something that can be tuned and
// gated.
type Instrument interface {
	SetFrequency(hz float64) (clamped bool)
	NoteOn()
	NoteOff()
}

// Tuner is a unit with a settable pitch, such as an oscillator.
type Tuner interface {
	SetFrequency(hz float64) (clamped bool)
}

// Gate is a unit that responds to note on and off, such as a VCA or VCF.
type Gate interface {
	NoteOn()
	NoteOff()
}

// Voice combines one tuner and its gates into an Instrument.
type Voice struct {
	tuner Tuner
	gates []Gate
}

// NewVoice creates a voice. A nil tuner ignores frequency changes.
func NewVoice(tuner Tuner, gates ...Gate) *Voice {
	v := &Voice{tuner: tuner}
	for _, g := range gates {
		if g != nil {
			v.gates = append(v.gates, g)
		}
	}
	return v
}

func (v *Voice) SetFrequency(hz float64) bool {
	if v.tuner == nil {
		return false
	}
	return v.tuner.SetFrequency(hz)
}

func (v *Voice) NoteOn() {
	for _, g := range v.gates {
		g.NoteOn()
	}
}

func (v *Voice) NoteOff() {
	for _, g := range v.gates {
		g.NoteOff()
	}
}
