// Package delay provides the feedback delay effect and its ring buffer.
package delay

import (
	"github.com/justyntemme/softsynth/pkg/dsp"
)

// Parameter limits
const (
	MinDelayMS         = 1.0
	MaxDelayMS         = 2000.0
	MinMixPercent      = 0.0
	MaxMixPercent      = 100.0
	MinFeedbackPercent = 0.0
	MaxFeedbackPercent = 100.0

	DefaultDelayMS         = 50.0
	DefaultMixPercent      = 50.0
	DefaultFeedbackPercent = 10.0

	// BufferSeconds is the capacity of the ring buffer
	BufferSeconds = 3
)

// Line is a fixed-size ring of samples with independent read and write
// positions. The read position trails the write position by the delay.
type Line struct {
	buffer   []int16
	readPos  int
	writePos int
}

// NewLine creates a zeroed ring holding size samples.
func NewLine(size int) *Line {
	if size < 1 {
		size = 1
	}
	return &Line{buffer: make([]int16, size)}
}

// Size returns the capacity in samples.
func (l *Line) Size() int {
	return len(l.buffer)
}

// SetDelay places the read position n samples behind the write position.
func (l *Line) SetDelay(n int) {
	pos := (l.writePos - n) % len(l.buffer)
	if pos < 0 {
		pos += len(l.buffer)
	}
	l.readPos = pos
}

// Read returns the oldest sample and advances the read position.
func (l *Line) Read() int16 {
	s := l.buffer[l.readPos]
	l.readPos++
	if l.readPos >= len(l.buffer) {
		l.readPos = 0
	}
	return s
}

// Write stores a sample and advances the write position.
func (l *Line) Write(s int16) {
	l.buffer[l.writePos] = s
	l.writePos++
	if l.writePos >= len(l.buffer) {
		l.writePos = 0
	}
}

// Reset clears the ring and rewinds both positions
func (l *Line) Reset() {
	dsp.Clear(l.buffer)
	l.readPos = 0
	l.writePos = 0
}

// Effect is a single-tap delay with feedback and dry/wet mix.
type Effect struct {
	cfg      dsp.Config
	upstream dsp.Source
	line     *Line

	delayMS      float64
	delaySamples int
	mix          float64 // percent
	feedback     float64 // percent
	bypassed     bool
}

// New wraps upstream with a bypassed delay at its defaults. Panics if
// upstream is nil.
func New(cfg dsp.Config, upstream dsp.Source) *Effect {
	e := &Effect{
		cfg:      cfg,
		upstream: dsp.MustSource(upstream),
		line:     NewLine(BufferSeconds * cfg.SampleRate),
		mix:      DefaultMixPercent,
		feedback: DefaultFeedbackPercent,
		bypassed: true,
	}
	e.SetDelay(DefaultDelayMS)
	return e
}

// SetBypassed switches the delay out of the signal path. The ring keeps
// its contents.
func (e *Effect) SetBypassed(bypassed bool) {
	e.bypassed = bypassed
}

// Bypassed reports whether the delay is switched out.
func (e *Effect) Bypassed() bool {
	return e.bypassed
}

// SetDelay sets the delay time, clamped to [1, 2000] ms.
func (e *Effect) SetDelay(ms float64) bool {
	ms, clamped := dsp.Clamp(ms, MinDelayMS, MaxDelayMS)
	e.delayMS = ms
	e.delaySamples = int(e.cfg.MillisToSamples(ms))
	e.line.SetDelay(e.delaySamples)
	return clamped
}

// Delay returns the delay time in milliseconds.
func (e *Effect) Delay() float64 {
	return e.delayMS
}

// DelaySamples returns the delay time in samples.
func (e *Effect) DelaySamples() int {
	return e.delaySamples
}

// SetMix sets the wet share in percent, clamped to [0, 100].
func (e *Effect) SetMix(percent float64) bool {
	percent, clamped := dsp.Clamp(percent, MinMixPercent, MaxMixPercent)
	e.mix = percent
	return clamped
}

// Mix returns the wet share in percent.
func (e *Effect) Mix() float64 {
	return e.mix
}

// SetFeedback sets the share of the delayed signal written back, clamped
// to [0, 100] percent.
func (e *Effect) SetFeedback(percent float64) bool {
	percent, clamped := dsp.Clamp(percent, MinFeedbackPercent, MaxFeedbackPercent)
	e.feedback = percent
	return clamped
}

// Feedback returns the feedback in percent.
func (e *Effect) Feedback() float64 {
	return e.feedback
}

// Reset clears the ring and reapplies the delay time.
func (e *Effect) Reset() {
	e.line.Reset()
	e.line.SetDelay(e.delaySamples)
}

// ProcessSample runs one sample through the delay. The feedback sum
// saturates at the int16 limits.
func (e *Effect) ProcessSample(s int16) int16 {
	if e.bypassed {
		return s
	}

	delayed := float64(e.line.Read())
	in := float64(s)

	out := dsp.Truncate((100.0-e.mix)*in/100.0 + e.mix*delayed/100.0)
	e.line.Write(dsp.Truncate(in + delayed*e.feedback/100.0))

	return out
}

// Fill pulls upstream and applies the delay in place - no allocations
func (e *Effect) Fill(buf []int16) int {
	e.upstream.Fill(buf)
	if e.bypassed {
		return len(buf)
	}
	for i, s := range buf {
		buf[i] = e.ProcessSample(s)
	}
	return len(buf)
}
