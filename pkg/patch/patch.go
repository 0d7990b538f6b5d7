// Package patch reads YAML instrument descriptions and builds them into
// ready-to-render chains.
package patch

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/justyntemme/softsynth/pkg/dsp"
	"github.com/justyntemme/softsynth/pkg/dsp/oscillator"
	"github.com/justyntemme/softsynth/pkg/sequencer"
)

// ErrInvalidPatch wraps every validation failure.
var ErrInvalidPatch = errors.New("invalid patch")

// Patch describes one instrument: a leaf, optional processing units and an
// optional song. Numeric fields left out keep the unit defaults.
type Patch struct {
	Name       string
	SampleRate int `yaml:"sample_rate,omitempty"`
	BufferSize int `yaml:"buffer_size,omitempty"`

	Oscillator  *Oscillator  `yaml:",omitempty"`
	Arpeggiator *Arpeggiator `yaml:",omitempty"`
	VCF         *VCF         `yaml:"vcf,omitempty"`
	VCA         *VCA         `yaml:"vca,omitempty"`
	Phaser      *Phaser      `yaml:",omitempty"`
	Delay       *Delay       `yaml:",omitempty"`

	Song       *Song        `yaml:",omitempty"`
	Loops      int          `yaml:",omitempty"`
	Automation []Automation `yaml:",omitempty"`

	// Seconds fixes the render length. Without it a patch with a song
	// renders the song plus Tail seconds, and one without renders
	// DefaultSeconds.
	Seconds float64 `yaml:",omitempty"`
	Tail    float64 `yaml:",omitempty"`
}

// Render lengths
const (
	DefaultSeconds = 5.0
	DefaultTail    = 1.0
)

// Oscillator configures a basic or advanced oscillator leaf.
type Oscillator struct {
	Type      string   `yaml:",omitempty"` // basic or advanced
	Waveshape string   `yaml:",omitempty"`
	Frequency *float64 `yaml:",omitempty"`

	// Advanced only
	Range      *int     `yaml:",omitempty"`
	Detune     *float64 `yaml:",omitempty"`
	LFO        *LFO     `yaml:"lfo,omitempty"`
	Modulation string   `yaml:",omitempty"`
	Depth      *float64 `yaml:",omitempty"`
}

// LFO configures the low-frequency oscillator of an advanced oscillator.
type LFO struct {
	Frequency *float64 `yaml:",omitempty"`
	Waveshape string   `yaml:",omitempty"`
}

// Arpeggiator configures an arpeggiator leaf.
type Arpeggiator struct {
	Frequency  *float64 `yaml:",omitempty"`
	Waveshape  string   `yaml:",omitempty"`
	ToneLength *int     `yaml:"tone_length,omitempty"`
	Volume     *int     `yaml:",omitempty"`
	Steps      []ArpStep
}

// ArpStep sets the beats of one arpeggiator step.
type ArpStep struct {
	Step int
	Up   int `yaml:",omitempty"`
	Down int `yaml:",omitempty"`
}

// Envelope configures an ADSR generator. Times are in milliseconds.
type Envelope struct {
	Attack  *float64 `yaml:",omitempty"`
	Decay   *float64 `yaml:",omitempty"`
	Sustain *float64 `yaml:",omitempty"`
	Release *float64 `yaml:",omitempty"`
}

// VCF configures the voltage-controlled filter.
type VCF struct {
	Cutoff    *float64  `yaml:",omitempty"`
	Resonance *float64  `yaml:",omitempty"`
	Depth     *float64  `yaml:",omitempty"`
	Bypassed  bool      `yaml:",omitempty"`
	Envelope  *Envelope `yaml:",omitempty"`
}

// VCA configures the voltage-controlled amplifier.
type VCA struct {
	Envelope *Envelope `yaml:",omitempty"`
}

// Phaser configures the phaser. Listing it switches it in unless Bypassed.
type Phaser struct {
	Mix      *float64 `yaml:",omitempty"`
	Rate     *float64 `yaml:",omitempty"`
	Range    *int     `yaml:",omitempty"`
	Feedback *float64 `yaml:",omitempty"`
	Bypassed bool     `yaml:",omitempty"`
}

// Delay configures the delay. Listing it switches it in unless Bypassed.
type Delay struct {
	Time     *float64 `yaml:"time,omitempty"` // milliseconds
	Mix      *float64 `yaml:",omitempty"`
	Feedback *float64 `yaml:",omitempty"`
	Bypassed bool     `yaml:",omitempty"`
}

// Automation changes one parameter at a point in time.
type Automation struct {
	At    float64 // seconds from the start
	Param string
	Value float64 `yaml:",omitempty"`
}

// Song is either a named built-in song or a list of [midi, duration] pairs.
type Song struct {
	Name  string
	Notes []sequencer.Note
}

// UnmarshalYAML accepts `rainbow` or `[[60, 2], [0, 4], ...]`.
func (s *Song) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		s.Name = node.Value
		return nil
	case yaml.SequenceNode:
		s.Notes = make([]sequencer.Note, 0, len(node.Content))
		for i, item := range node.Content {
			var pair []int
			if err := item.Decode(&pair); err != nil {
				return fmt.Errorf("song note %d: %w", i, err)
			}
			if len(pair) != 2 {
				return fmt.Errorf("line %d: song note %d: want [midi, duration], got %d values", item.Line, i, len(pair))
			}
			s.Notes = append(s.Notes, sequencer.Note{MIDI: pair[0], Duration: sequencer.DurationTag(pair[1])})
		}
		return nil
	}
	return fmt.Errorf("line %d: song must be a name or a list of notes", node.Line)
}

// MarshalYAML writes the song back in the form it was read.
func (s Song) MarshalYAML() (interface{}, error) {
	if s.Name != "" {
		return s.Name, nil
	}
	pairs := make([][]int, len(s.Notes))
	for i, n := range s.Notes {
		pairs[i] = []int{n.MIDI, int(n.Duration)}
	}
	node := &yaml.Node{}
	if err := node.Encode(pairs); err != nil {
		return nil, err
	}
	for _, c := range node.Content {
		c.Style = yaml.FlowStyle
	}
	return node, nil
}

// Resolve returns the notes of the song.
func (s *Song) Resolve() ([]sequencer.Note, error) {
	if s.Name == "" {
		return s.Notes, nil
	}
	switch strings.ToLower(s.Name) {
	case "rainbow":
		return sequencer.Rainbow(), nil
	}
	return nil, fmt.Errorf("unknown song %q", s.Name)
}

// Parse decodes a patch. Unknown keys are errors.
func Parse(data []byte) (*Patch, error) {
	return decode(bytes.NewReader(data))
}

// Load reads and parses a patch file. A patch without a name takes the
// file's base name.
func Load(path string) (*Patch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p, err := decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return p, nil
}

func decode(r io.Reader) (*Patch, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var p Patch
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidPatch)
		}
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Marshal encodes the patch as YAML.
func (p *Patch) Marshal() ([]byte, error) {
	return yaml.Marshal(p)
}

// Config returns the engine configuration the patch renders with.
func (p *Patch) Config() (dsp.Config, error) {
	cfg := dsp.DefaultConfig()
	if p.SampleRate != 0 {
		cfg.SampleRate = p.SampleRate
	}
	if p.BufferSize != 0 {
		cfg.BufferSize = p.BufferSize
	}
	return cfg, cfg.Validate()
}

// Validate reports every structural problem at once. Values a unit clamps
// are left for Build, which logs the clamp.
func (p *Patch) Validate() error {
	var errs []error
	add := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]interface{}{ErrInvalidPatch}, args...)...))
	}

	if _, err := p.Config(); err != nil {
		errs = append(errs, err)
	}

	switch {
	case p.Oscillator == nil && p.Arpeggiator == nil:
		add("no oscillator or arpeggiator")
	case p.Oscillator != nil && p.Arpeggiator != nil:
		add("oscillator and arpeggiator are exclusive")
	}

	if o := p.Oscillator; o != nil {
		switch o.Type {
		case "", "basic":
			if o.Range != nil || o.Detune != nil || o.LFO != nil || o.Modulation != "" || o.Depth != nil {
				add("oscillator: range, detune, lfo, modulation and depth need type advanced")
			}
		case "advanced":
		default:
			add("oscillator: unknown type %q", o.Type)
		}
		if _, err := oscillator.ParseWaveshape(o.Waveshape); err != nil {
			add("oscillator: %v", err)
		}
		if _, err := oscillator.ParseModulation(o.Modulation); err != nil {
			add("oscillator: %v", err)
		}
		if o.Range != nil {
			if _, known := oscillator.Range(*o.Range).Multiplier(); !known {
				add("oscillator: range %d is not one of 16, 8, 4, 2, 1", *o.Range)
			}
		}
		if o.LFO != nil {
			if _, err := oscillator.ParseWaveshape(o.LFO.Waveshape); err != nil {
				add("oscillator lfo: %v", err)
			}
		}
	}

	if a := p.Arpeggiator; a != nil {
		if _, err := oscillator.ParseWaveshape(a.Waveshape); err != nil {
			add("arpeggiator: %v", err)
		}
		for _, s := range a.Steps {
			if s.Step < 0 || s.Step >= sequencer.Steps {
				add("arpeggiator: step %d out of range [0, %d)", s.Step, sequencer.Steps)
			}
			if s.Up < 0 || s.Down < 0 {
				add("arpeggiator: step %d has negative beats", s.Step)
			}
		}
	}

	if v := p.VCF; v != nil && v.Resonance != nil && !isFinite(*v.Resonance) {
		add("vcf: resonance must be finite")
	}

	if p.Song != nil {
		notes, err := p.Song.Resolve()
		if err != nil {
			add("%v", err)
		}
		for i, n := range notes {
			if n.MIDI < 0 || n.MIDI > 127 {
				add("song note %d: midi %d out of range [0, 127]", i, n.MIDI)
			}
		}
	}
	if p.Loops < 0 {
		add("loops %d is negative", p.Loops)
	}
	if p.Seconds < 0 || p.Tail < 0 {
		add("seconds and tail must not be negative")
	}

	for i, a := range p.Automation {
		if a.At < 0 {
			add("automation %d: negative time", i)
		}
		if _, ok := automationParams[a.Param]; !ok {
			add("automation %d: unknown param %q", i, a.Param)
		}
		if check, ok := automationChecks[a.Param]; ok {
			if err := check(a.Value); err != nil {
				add("automation %d: %v", i, err)
			}
		}
	}

	return errors.Join(errs...)
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
