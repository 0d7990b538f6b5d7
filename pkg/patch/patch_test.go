package patch

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/justyntemme/softsynth/patches"
	"github.com/justyntemme/softsynth/pkg/dsp"
	"github.com/justyntemme/softsynth/pkg/dsp/analysis"
	"github.com/justyntemme/softsynth/pkg/dsp/oscillator"
	"github.com/justyntemme/softsynth/pkg/framework/debug"
	"github.com/justyntemme/softsynth/pkg/sequencer"
)

func mustParse(t *testing.T, doc string) *Patch {
	t.Helper()
	p, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return p
}

func render(inst *Instrument, buffers int) []int16 {
	out := make([]int16, 0, buffers*inst.Config.BufferSize)
	buf := inst.Config.NewBuffer()
	for i := 0; i < buffers; i++ {
		inst.Fill(buf)
		out = append(out, buf...)
	}
	return out
}

func TestParse(t *testing.T) {
	p := mustParse(t, `
name: test
sample_rate: 44100
buffer_size: 256
oscillator:
  type: advanced
  waveshape: saw
  frequency: 220
  range: 8
  lfo: {frequency: 3, waveshape: square}
  modulation: fm
  depth: 0.5
vcf:
  cutoff: 2000
  envelope: {attack: 10}
song: [[60, 4], [0, 8], [67, 2]]
loops: 2
`)

	if p.Name != "test" || p.SampleRate != 44100 || p.BufferSize != 256 {
		t.Errorf("header = %q %d %d", p.Name, p.SampleRate, p.BufferSize)
	}
	if p.Oscillator == nil || p.Oscillator.Type != "advanced" || *p.Oscillator.Frequency != 220 {
		t.Fatalf("oscillator = %+v", p.Oscillator)
	}
	if *p.Oscillator.LFO.Frequency != 3 || p.Oscillator.LFO.Waveshape != "square" {
		t.Errorf("lfo = %+v", p.Oscillator.LFO)
	}
	if p.VCF.Envelope.Decay != nil || *p.VCF.Envelope.Attack != 10 {
		t.Errorf("vcf envelope = %+v", p.VCF.Envelope)
	}

	want := []sequencer.Note{{MIDI: 60, Duration: 4}, {MIDI: 0, Duration: 8}, {MIDI: 67, Duration: 2}}
	if len(p.Song.Notes) != len(want) {
		t.Fatalf("song = %v, want %v", p.Song.Notes, want)
	}
	for i := range want {
		if p.Song.Notes[i] != want[i] {
			t.Errorf("note %d = %v, want %v", i, p.Song.Notes[i], want[i])
		}
	}

	cfg, err := p.Config()
	if err != nil || cfg != (dsp.Config{SampleRate: 44100, BufferSize: 256}) {
		t.Errorf("Config = %v, %v", cfg, err)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{"empty", ``, "empty document"},
		{"unknown key", "oscillator: {frequency: 1}\nvolume: 3\n", "field volume not found"},
		{"unknown nested key", "oscillator: {pitch: 1}\n", "field pitch not found"},
		{"no leaf", "vca: {}\n", "no oscillator or arpeggiator"},
		{"two leaves", "oscillator: {}\narpeggiator: {}\n", "exclusive"},
		{"bad type", "oscillator: {type: fancy}\n", `unknown type "fancy"`},
		{"bad waveshape", "oscillator: {waveshape: triangle}\n", `unknown waveshape "triangle"`},
		{"basic with lfo", "oscillator: {lfo: {frequency: 2}}\n", "need type advanced"},
		{"bad range", "oscillator: {type: advanced, range: 3}\n", "range 3"},
		{"bad modulation", "oscillator: {type: advanced, modulation: ring}\n", `unknown modulation "ring"`},
		{"bad step", "arpeggiator: {steps: [{step: 13, up: 1}]}\n", "out of range"},
		{"bad song", "oscillator: {}\nsong: yesterday\n", `unknown song "yesterday"`},
		{"bad note", "oscillator: {}\nsong: [[200, 4]]\n", "midi 200"},
		{"short note", "oscillator: {}\nsong: [[60]]\n", "want [midi, duration]"},
		{"bad param", "oscillator: {}\nautomation: [{at: 1, param: volume}]\n", `unknown param "volume"`},
		{"unknown waveshape value", "oscillator: {}\nautomation: [{at: 1, param: waveshape, value: 3}]\n", "waveshape 3 is not"},
		{"fractional waveshape", "oscillator: {}\nautomation: [{at: 1, param: waveshape, value: 1.5}]\n", "waveshape 1.5 is not"},
		{"negative waveshape", "oscillator: {}\nautomation: [{at: 1, param: waveshape, value: -1}]\n", "waveshape -1 is not"},
		{"bad range value", "oscillator: {type: advanced}\nautomation: [{at: 1, param: range, value: 3}]\n", "range 3 is not"},
		{"bad rate", "sample_rate: -1\noscillator: {}\n", "sample rate"},
		{"negative loops", "oscillator: {}\nloops: -1\n", "loops -1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %q, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateWrapsErrInvalidPatch(t *testing.T) {
	p := &Patch{}
	if err := p.Validate(); !errors.Is(err, ErrInvalidPatch) {
		t.Errorf("err = %v, want ErrInvalidPatch", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bell.yml")
	if err := os.WriteFile(path, []byte("oscillator: {frequency: 880}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "bell" {
		t.Errorf("Name = %q, want bell", p.Name)
	}

	if _, err := Load(filepath.Join(dir, "missing.yml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want ErrNotExist", err)
	}
}

func TestBuildChainOrder(t *testing.T) {
	p := mustParse(t, `
name: full
oscillator: {waveshape: square, frequency: 100}
vcf: {cutoff: 1000, resonance: 0.5}
vca: {envelope: {sustain: 0.5}}
phaser: {mix: 60}
delay: {time: 100}
song: rainbow
`)
	inst, err := p.Build()
	if err != nil {
		t.Fatal(err)
	}

	got := strings.Join(inst.Chain.Names(), ",")
	want := "oscillator,vcf,vca,phaser,delay,sequencer"
	if got != want {
		t.Errorf("Names = %s, want %s", got, want)
	}
	if inst.Basic == nil || inst.VCF == nil || inst.VCA == nil || inst.Phaser == nil || inst.Delay == nil || inst.Player == nil {
		t.Fatal("unit handle missing")
	}
	if inst.Advanced != nil || inst.Arpeggiator != nil {
		t.Error("unexpected leaf handles")
	}
	if inst.Phaser.Bypassed() || inst.Delay.Bypassed() {
		t.Error("listed effects should be switched in")
	}
	if inst.Phaser.Mix() != 60 || inst.Delay.Delay() != 100 {
		t.Errorf("effect settings not applied: mix %f delay %f", inst.Phaser.Mix(), inst.Delay.Delay())
	}
	if inst.VCA.Envelope().Sustain() != 0.5 {
		t.Errorf("VCA sustain = %f, want 0.5", inst.VCA.Envelope().Sustain())
	}
}

func TestBuildBuffers(t *testing.T) {
	cfg := dsp.DefaultConfig()

	fixed, err := mustParse(t, "oscillator: {}\nseconds: 2\n").Build()
	if err != nil {
		t.Fatal(err)
	}
	if want := int64(math.Ceil(2 / cfg.BufferSeconds())); fixed.Buffers() != want {
		t.Errorf("fixed Buffers = %d, want %d", fixed.Buffers(), want)
	}

	def, err := mustParse(t, "oscillator: {}\n").Build()
	if err != nil {
		t.Fatal(err)
	}
	if want := int64(math.Ceil(DefaultSeconds / cfg.BufferSeconds())); def.Buffers() != want {
		t.Errorf("default Buffers = %d, want %d", def.Buffers(), want)
	}

	song, err := mustParse(t, "oscillator: {}\nsong: [[60, 4]]\ntail: 0.5\n").Build()
	if err != nil {
		t.Fatal(err)
	}
	if want := 28 + int64(math.Ceil(0.5/cfg.BufferSeconds())); song.Buffers() != want {
		t.Errorf("song Buffers = %d, want %d", song.Buffers(), want)
	}
}

func TestBuildAutomation(t *testing.T) {
	p := mustParse(t, `
oscillator: {frequency: 500}
automation:
  - {at: 0.1, param: frequency, value: 1000}
  - {at: 0.1, param: waveshape, value: 1}
seconds: 1
`)
	inst, err := p.Build()
	if err != nil {
		t.Fatal(err)
	}

	render(inst, 4)
	if inst.Basic.Frequency() != 500 {
		t.Errorf("frequency changed early: %f", inst.Basic.Frequency())
	}
	render(inst, 2)
	if inst.Basic.Frequency() != 1000 {
		t.Errorf("frequency = %f, want 1000", inst.Basic.Frequency())
	}
	if inst.Basic.Waveshape() != oscillator.Square {
		t.Errorf("waveshape = %v, want square", inst.Basic.Waveshape())
	}
}

func TestBuildArpeggiator(t *testing.T) {
	data, err := patches.Read("arp0")
	if err != nil {
		t.Fatal(err)
	}
	p, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	inst, err := p.Build()
	if err != nil {
		t.Fatal(err)
	}

	if inst.Arpeggiator == nil {
		t.Fatal("no arpeggiator")
	}
	if up, _ := inst.Arpeggiator.Beats(); up != 5 {
		t.Errorf("up beats = %d, want 5", up)
	}
	if inst.Tuner() != sequencer.Tuner(inst.Arpeggiator) {
		t.Error("arpeggiator should be the tuner")
	}
}

func TestBuildLogsClamps(t *testing.T) {
	var sb strings.Builder
	debug.SetOutput(&sb)
	defer debug.SetOutput(os.Stderr)

	inst, err := mustParse(t, "name: loud\noscillator: {}\nphaser: {mix: 200}\n").Build()
	if err != nil {
		t.Fatal(err)
	}
	if inst.Phaser.Mix() != 100 {
		t.Errorf("Mix = %f, want 100", inst.Phaser.Mix())
	}
	if !strings.Contains(sb.String(), "phaser mix out of range") {
		t.Errorf("log = %q, want clamp warning", sb.String())
	}
}

func TestSongMarshal(t *testing.T) {
	p := mustParse(t, "oscillator: {}\nsong: [[60, 4], [0, 2]]\n")
	out, err := p.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), "- [60, 4]") {
		t.Errorf("marshalled song:\n%s", out)
	}

	again, err := Parse(out)
	if err != nil {
		t.Fatalf("re-parse: %v\n%s", err, out)
	}
	if len(again.Song.Notes) != 2 || again.Song.Notes[1] != (sequencer.Note{MIDI: 0, Duration: 2}) {
		t.Errorf("re-parsed song = %v", again.Song.Notes)
	}
}

func TestDemoPatches(t *testing.T) {
	names := patches.Names()
	if len(names) < 12 {
		t.Fatalf("found %d demo patches, want at least 12", len(names))
	}

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			data, err := patches.Read(name)
			if err != nil {
				t.Fatal(err)
			}
			p, err := Parse(data)
			if err != nil {
				t.Fatal(err)
			}
			inst, err := p.Build()
			if err != nil {
				t.Fatal(err)
			}
			if inst.Buffers() <= 0 {
				t.Errorf("Buffers = %d", inst.Buffers())
			}

			// Two seconds is enough to get past any leading rest
			n := int(math.Min(float64(inst.Buffers()), 2/inst.Config.BufferSeconds()))
			out := render(inst, n)
			if r := analysis.Check(out); r.Silent {
				t.Errorf("demo rendered silence: %s", r)
			}
		})
	}
}
