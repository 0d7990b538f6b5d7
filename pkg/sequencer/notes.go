// Package sequencer drives an instrument from a song or from control
// posted by other goroutines, on buffer boundaries of the render loop.
package sequencer

import (
	"fmt"
	"math"

	"github.com/justyntemme/softsynth/pkg/dsp"
)

// Pitch reference
const (
	ReferenceNote      = 69
	ReferenceFrequency = 440.0
	Rest               = 0

	// ThirtySecondSeconds is the length of a thirty-second note
	ThirtySecondSeconds = 0.08
)

// DurationTag names a note length by its fraction of a whole note.
type DurationTag int

const (
	Whole        DurationTag = 1
	Half         DurationTag = 2
	Quarter      DurationTag = 4
	Eighth       DurationTag = 8
	Sixteenth    DurationTag = 16
	ThirtySecond DurationTag = 32
)

// Seconds returns the note length. Unknown tags are quarter notes.
func (d DurationTag) Seconds() float64 {
	switch d {
	case Whole:
		return 32 * ThirtySecondSeconds
	case Half:
		return 16 * ThirtySecondSeconds
	case Eighth:
		return 4 * ThirtySecondSeconds
	case Sixteenth:
		return 2 * ThirtySecondSeconds
	case ThirtySecond:
		return ThirtySecondSeconds
	default:
		return 8 * ThirtySecondSeconds
	}
}

// Ticks returns the note length in buffers of cfg, rounded to nearest.
func Ticks(d DurationTag, cfg dsp.Config) int64 {
	return int64(math.Round(d.Seconds() / cfg.BufferSeconds()))
}

// Note is one step of a song. MIDI 0 is a rest.
type Note struct {
	MIDI     int
	Duration DurationTag
}

// IsRest reports whether the note is silent.
func (n Note) IsRest() bool {
	return n.MIDI == Rest
}

func (n Note) String() string {
	return fmt.Sprintf("%s/%d", NoteName(n.MIDI), n.Duration)
}

// NoteToFrequency converts a MIDI note number to Hz, equal tempered around
// A4 = 440 Hz.
func NoteToFrequency(note int) float64 {
	return ReferenceFrequency * math.Pow(2.0, float64(note-ReferenceNote)/dsp.SemitonesPerOctave)
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteName returns the scientific pitch name of a MIDI note, with middle C
// (60) as C4.
func NoteName(note int) string {
	if note == Rest {
		return "rest"
	}
	octave := note/12 - 1
	if note < 0 {
		octave = (note-11)/12 - 1
	}
	return fmt.Sprintf("%s%d", noteNames[((note%12)+12)%12], octave)
}

// Rainbow returns the demo song: "Somewhere Over the Rainbow".
func Rainbow() []Note {
	return []Note{
		{0, 2},
		{60, 2}, {72, 2}, {71, 4}, {67, 8}, {69, 8}, {71, 4}, {72, 4},
		{60, 2}, {69, 2}, {67, 1},
		{57, 2}, {65, 2}, {64, 4}, {60, 8}, {62, 8}, {64, 4}, {65, 4},
		{62, 4}, {59, 8}, {60, 8}, {62, 4}, {64, 4}, {60, 1},
		{0, 4},
	}
}
