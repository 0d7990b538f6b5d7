package patch

import (
	"fmt"
	"math"

	"github.com/justyntemme/softsynth/pkg/dsp"
	"github.com/justyntemme/softsynth/pkg/dsp/delay"
	"github.com/justyntemme/softsynth/pkg/dsp/envelope"
	"github.com/justyntemme/softsynth/pkg/dsp/filter"
	"github.com/justyntemme/softsynth/pkg/dsp/modulation"
	"github.com/justyntemme/softsynth/pkg/dsp/oscillator"
	"github.com/justyntemme/softsynth/pkg/dsp/vca"
	"github.com/justyntemme/softsynth/pkg/framework/chain"
	"github.com/justyntemme/softsynth/pkg/framework/debug"
	"github.com/justyntemme/softsynth/pkg/sequencer"
)

// Unit names inside a built chain
const (
	UnitOscillator  = "oscillator"
	UnitArpeggiator = "arpeggiator"
	UnitVCF         = "vcf"
	UnitVCA         = "vca"
	UnitPhaser      = "phaser"
	UnitDelay       = "delay"
	UnitSequencer   = "sequencer"
)

// Instrument is a built patch. The unit handles are nil when the patch
// does not use them. Only touch units from the render goroutine or through
// Player.Post.
type Instrument struct {
	Name   string
	Config dsp.Config
	Chain  *chain.Chain
	Player *sequencer.Player

	Basic       *oscillator.Basic
	Advanced    *oscillator.Advanced
	Arpeggiator *sequencer.Arpeggiator
	VCF         *filter.VCF
	VCA         *vca.VCA
	Phaser      *modulation.Phaser
	Delay       *delay.Effect

	buffers int64
}

// Fill renders one buffer.
func (i *Instrument) Fill(buf []int16) int {
	return i.Chain.Fill(buf)
}

// Buffers returns how many buffers the patch renders for.
func (i *Instrument) Buffers() int64 {
	return i.buffers
}

// Tuner returns the unit that sets the instrument pitch.
func (i *Instrument) Tuner() sequencer.Tuner {
	switch {
	case i.Advanced != nil:
		return i.Advanced
	case i.Basic != nil:
		return i.Basic
	case i.Arpeggiator != nil:
		return i.Arpeggiator
	}
	return nil
}

// Voice returns an instrument fanning notes to the pitch unit and gates.
func (i *Instrument) Voice() *sequencer.Voice {
	var gates []sequencer.Gate
	if i.VCF != nil {
		gates = append(gates, i.VCF)
	}
	if i.VCA != nil {
		gates = append(gates, i.VCA)
	}
	return sequencer.NewVoice(i.Tuner(), gates...)
}

// Build validates the patch and assembles its chain.
func (p *Patch) Build(opts ...Option) (*Instrument, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	cfg, err := p.Config()
	if err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	inst := &Instrument{Name: p.Name, Config: cfg}
	b := chain.NewBuilder(p.Name, cfg).WithProfiler(o.profiler)

	switch {
	case p.Oscillator != nil && p.Oscillator.Type == "advanced":
		inst.Advanced = p.buildAdvanced(cfg)
		b.From(UnitOscillator, inst.Advanced)
	case p.Oscillator != nil:
		inst.Basic = p.buildBasic(cfg)
		b.From(UnitOscillator, inst.Basic)
	default:
		inst.Arpeggiator, err = p.buildArpeggiator(cfg)
		if err != nil {
			return nil, err
		}
		b.From(UnitArpeggiator, inst.Arpeggiator)
	}

	if p.VCF != nil {
		b.Then(UnitVCF, func(cfg dsp.Config, upstream dsp.Source) (dsp.Source, error) {
			inst.VCF = filter.NewVCF(cfg, upstream)
			return inst.VCF, p.VCF.apply(p.Name, inst.VCF)
		})
	}
	if p.VCA != nil {
		b.Then(UnitVCA, func(cfg dsp.Config, upstream dsp.Source) (dsp.Source, error) {
			inst.VCA = vca.New(cfg, upstream)
			p.VCA.Envelope.apply(p.Name+" vca", inst.VCA.Envelope())
			return inst.VCA, nil
		})
	}
	if p.Phaser != nil {
		b.Then(UnitPhaser, func(cfg dsp.Config, upstream dsp.Source) (dsp.Source, error) {
			inst.Phaser = modulation.NewPhaser(cfg, upstream)
			p.Phaser.apply(p.Name, inst.Phaser)
			return inst.Phaser, nil
		})
	}
	if p.Delay != nil {
		b.Then(UnitDelay, func(cfg dsp.Config, upstream dsp.Source) (dsp.Source, error) {
			inst.Delay = delay.New(cfg, upstream)
			p.Delay.apply(p.Name, inst.Delay)
			return inst.Delay, nil
		})
	}
	b.Then(UnitSequencer, func(cfg dsp.Config, upstream dsp.Source) (dsp.Source, error) {
		inst.Player = sequencer.NewPlayer(cfg, upstream, inst.Voice())
		return inst.Player, nil
	})

	inst.Chain, err = b.Build()
	if err != nil {
		return nil, err
	}

	end := int64(0)
	if p.Song != nil {
		notes, _ := p.Song.Resolve()
		end = inst.Player.Schedule(notes, p.Loops)
	}
	for _, a := range p.Automation {
		tick := secondsToTicks(a.At, cfg)
		inst.Player.At(tick, a.Param, automationParams[a.Param](inst, a.Value))
		end = max(end, tick)
	}

	switch {
	case p.Seconds > 0:
		inst.buffers = secondsToTicks(p.Seconds, cfg)
	case p.Song != nil || len(p.Automation) > 0:
		tail := p.Tail
		if tail == 0 {
			tail = DefaultTail
		}
		inst.buffers = end + secondsToTicks(tail, cfg)
	default:
		inst.buffers = secondsToTicks(DefaultSeconds, cfg)
	}

	debug.Info("patch %q: %v, %d buffers at %v", p.Name, inst.Chain.Names(), inst.buffers, cfg)
	return inst, nil
}

// Option adjusts how a patch is built.
type Option func(*options)

type options struct {
	profiler *debug.RenderProfiler
}

// WithProfiler times every buffer the instrument renders.
func WithProfiler(p *debug.RenderProfiler) Option {
	return func(o *options) {
		o.profiler = p
	}
}

func secondsToTicks(s float64, cfg dsp.Config) int64 {
	return int64(math.Ceil(s / cfg.BufferSeconds()))
}

// clamped logs a setter that had to clamp its value.
func clamped(patch, param string, wasClamped bool) {
	if wasClamped {
		debug.Warn("patch %q: %s out of range, clamped", patch, param)
	}
}

func (p *Patch) buildBasic(cfg dsp.Config) *oscillator.Basic {
	o := p.Oscillator
	osc := oscillator.NewBasic(cfg)
	shape, _ := oscillator.ParseWaveshape(o.Waveshape)
	osc.SetWaveshape(shape)
	if o.Frequency != nil {
		clamped(p.Name, "oscillator frequency", osc.SetFrequency(*o.Frequency))
	}
	return osc
}

func (p *Patch) buildAdvanced(cfg dsp.Config) *oscillator.Advanced {
	o := p.Oscillator
	osc := oscillator.NewAdvanced(cfg)
	shape, _ := oscillator.ParseWaveshape(o.Waveshape)
	osc.SetWaveshape(shape)
	if o.Frequency != nil {
		clamped(p.Name, "oscillator frequency", osc.SetFrequency(*o.Frequency))
	}
	if o.Range != nil {
		clamped(p.Name, "oscillator range", osc.SetRange(oscillator.Range(*o.Range)))
	}
	if o.Detune != nil {
		clamped(p.Name, "oscillator detune", osc.SetDetune(*o.Detune))
	}
	if o.LFO != nil {
		if o.LFO.Frequency != nil {
			clamped(p.Name, "lfo frequency", osc.SetLFOFrequency(*o.LFO.Frequency))
		}
		lfoShape, _ := oscillator.ParseWaveshape(o.LFO.Waveshape)
		osc.SetLFOWaveshape(lfoShape)
	}
	mod, _ := oscillator.ParseModulation(o.Modulation)
	osc.SetModulation(mod)
	if o.Depth != nil {
		clamped(p.Name, "modulation depth", osc.SetModulationDepth(*o.Depth))
	}
	return osc
}

func (p *Patch) buildArpeggiator(cfg dsp.Config) (*sequencer.Arpeggiator, error) {
	a := p.Arpeggiator
	arp := sequencer.NewArpeggiator(cfg)
	shape, _ := oscillator.ParseWaveshape(a.Waveshape)
	arp.SetWaveshape(shape)
	if a.Frequency != nil {
		clamped(p.Name, "arpeggiator frequency", arp.SetFrequency(*a.Frequency))
	}
	if a.ToneLength != nil {
		clamped(p.Name, "arpeggiator tone length", arp.SetToneLength(*a.ToneLength))
	}
	if a.Volume != nil {
		clamped(p.Name, "arpeggiator volume", arp.SetVolume(*a.Volume))
	}
	for _, s := range a.Steps {
		if err := arp.SetStep(s.Step, sequencer.Step{UpBeats: s.Up, DownBeats: s.Down}); err != nil {
			return nil, fmt.Errorf("patch %q: %w", p.Name, err)
		}
	}
	return arp, nil
}

func (e *Envelope) apply(name string, g *envelope.Generator) {
	if e == nil {
		return
	}
	if e.Attack != nil {
		clamped(name, "attack", g.SetAttack(*e.Attack))
	}
	if e.Decay != nil {
		clamped(name, "decay", g.SetDecay(*e.Decay))
	}
	if e.Sustain != nil {
		clamped(name, "sustain", g.SetSustain(*e.Sustain))
	}
	if e.Release != nil {
		clamped(name, "release", g.SetRelease(*e.Release))
	}
}

func (v *VCF) apply(name string, f *filter.VCF) error {
	if v.Cutoff != nil {
		clamped(name, "vcf cutoff", f.SetCutoff(*v.Cutoff))
	}
	if v.Depth != nil {
		clamped(name, "vcf depth", f.SetDepth(*v.Depth))
	}
	if v.Resonance != nil {
		if err := f.SetResonance(*v.Resonance); err != nil {
			return err
		}
	}
	f.SetBypassed(v.Bypassed)
	v.Envelope.apply(name+" vcf", f.Envelope())
	return nil
}

func (ph *Phaser) apply(name string, u *modulation.Phaser) {
	if ph.Mix != nil {
		clamped(name, "phaser mix", u.SetMix(*ph.Mix))
	}
	if ph.Rate != nil {
		clamped(name, "phaser rate", u.SetSweepRate(*ph.Rate))
	}
	if ph.Range != nil {
		clamped(name, "phaser range", u.SetSweepRange(*ph.Range))
	}
	if ph.Feedback != nil {
		clamped(name, "phaser feedback", u.SetFeedback(*ph.Feedback))
	}
	u.SetBypassed(ph.Bypassed)
}

func (d *Delay) apply(name string, u *delay.Effect) {
	if d.Time != nil {
		clamped(name, "delay time", u.SetDelay(*d.Time))
	}
	if d.Mix != nil {
		clamped(name, "delay mix", u.SetMix(*d.Mix))
	}
	if d.Feedback != nil {
		clamped(name, "delay feedback", u.SetFeedback(*d.Feedback))
	}
	u.SetBypassed(d.Bypassed)
}
