package sequencer

import (
	"sync/atomic"

	"github.com/justyntemme/softsynth/pkg/dsp"
	"github.com/justyntemme/softsynth/pkg/framework/debug"
)

// Player sits at the end of a chain and applies scheduled events at the
// start of each buffer. Units in the chain are only touched from Fill, so
// Schedule and Post may be called from any goroutine while another
// goroutine renders.
type Player struct {
	cfg      dsp.Config
	upstream dsp.Source
	inst     Instrument
	queue    *Queue

	tick atomic.Int64 // buffers rendered so far
	end  atomic.Int64 // tick after the last scheduled note
}

// NewPlayer wraps upstream. inst receives note events and may be nil when
// only Post is used. Panics if upstream is nil.
func NewPlayer(cfg dsp.Config, upstream dsp.Source, inst Instrument) *Player {
	if inst == nil {
		inst = NewVoice(nil)
	}
	return &Player{
		cfg:      cfg,
		upstream: dsp.MustSource(upstream),
		inst:     inst,
		queue:    NewQueue(),
	}
}

// Schedule queues loops repetitions of song after anything already
// scheduled and returns the tick at which the last note ends. loops below
// one plays the song once.
func (p *Player) Schedule(song []Note, loops int) int64 {
	if loops < 1 {
		loops = 1
	}

	at := max(p.tick.Load(), p.end.Load())
	for l := 0; l < loops; l++ {
		for _, note := range song {
			ticks := Ticks(note.Duration, p.cfg)
			if !note.IsRest() {
				p.queue.Add(FrequencyEvent{BaseEvent{at}, NoteToFrequency(note.MIDI)})
				p.queue.Add(NoteOnEvent{BaseEvent{at}, note.MIDI})
			}
			at += ticks
			p.queue.Add(NoteOffEvent{BaseEvent{at}, note.MIDI})
		}
	}

	p.end.Store(at)
	debug.Debug("sequencer: scheduled %d notes x %d, ends at tick %d", len(song), loops, at)
	return at
}

// Post runs fn on the render goroutine before the next buffer.
func (p *Player) Post(fn func()) {
	p.At(p.tick.Load(), "post", fn)
}

// At runs fn on the render goroutine before buffer tick. Ticks already
// rendered fire on the next buffer.
func (p *Player) At(tick int64, name string, fn func()) {
	p.queue.Add(ControlEvent{BaseEvent: BaseEvent{tick}, Name: name, Fn: fn})
}

// Tick returns the number of buffers rendered.
func (p *Player) Tick() int64 {
	return p.tick.Load()
}

// End returns the tick at which the scheduled song ends.
func (p *Player) End() int64 {
	return p.end.Load()
}

// Done reports whether every scheduled event has fired and the song has
// run to its end.
func (p *Player) Done() bool {
	return p.queue.IsEmpty() && p.tick.Load() >= p.end.Load()
}

// Fill applies due events, then pulls one buffer from upstream.
func (p *Player) Fill(buf []int16) int {
	tick := p.tick.Load()
	for _, e := range p.queue.Due(tick) {
		debug.DebugIf(e.Type() != EventTypeControl, "sequencer: %s", e)
		e.Apply(p.inst)
	}
	n := p.upstream.Fill(buf)
	p.tick.Add(1)
	return n
}
