package envelope

import (
	"math"
	"testing"

	"github.com/justyntemme/softsynth/pkg/dsp"
)

func newTestGenerator() *Generator {
	g := New(dsp.DefaultConfig())
	g.SetAttack(10) // 220.5 samples
	g.SetDecay(10)  // 220.5 samples
	g.SetSustain(0.5)
	g.SetRelease(10) // 220.5 samples
	return g
}

func TestDefaults(t *testing.T) {
	g := New(dsp.DefaultConfig())

	if g.State() != StateIdle {
		t.Errorf("initial state = %v, want idle", g.State())
	}
	attack, decay, release := g.Lengths()
	if attack != 22 || decay != 22050 || release != 44100 {
		t.Errorf("lengths = %d/%d/%d, want 22/22050/44100", attack, decay, release)
	}
	if g.Sustain() != DefaultSustain {
		t.Errorf("sustain = %f, want %f", g.Sustain(), DefaultSustain)
	}
	for i := 0; i < 10; i++ {
		if v := g.Value(); v != 0 {
			t.Fatalf("idle value = %f, want 0", v)
		}
	}
}

func TestFullCycle(t *testing.T) {
	g := newTestGenerator()
	attackLen, decayLen, releaseLen := g.Lengths()
	if attackLen != 220 || decayLen != 220 || releaseLen != 220 {
		t.Fatalf("lengths = %d/%d/%d, want 220 each", attackLen, decayLen, releaseLen)
	}

	g.NoteOn()
	if v := g.Value(); v != 0 || g.State() != StateAttack {
		t.Fatalf("first value after note on = %f in %v, want 0 in attack", v, g.State())
	}

	t.Run("Attack", func(t *testing.T) {
		prev := -1.0
		for i := 0; i < attackLen; i++ {
			v := g.Value()
			if v <= prev {
				t.Fatalf("attack sample %d = %f not rising from %f", i, v, prev)
			}
			if v >= 1.0 {
				t.Fatalf("attack sample %d reached %f before the boundary", i, v)
			}
			prev = v
		}
		if v := g.Value(); v != 1.0 {
			t.Errorf("value at attack boundary = %f, want 1.0", v)
		}
		if g.State() != StateDecay {
			t.Errorf("state after attack = %v, want decay", g.State())
		}
	})

	t.Run("Decay", func(t *testing.T) {
		prev := 2.0
		for i := 0; i < decayLen; i++ {
			v := g.Value()
			if v >= prev && i > 0 {
				t.Fatalf("decay sample %d = %f not falling from %f", i, v, prev)
			}
			if v < g.Sustain() {
				t.Fatalf("decay sample %d = %f below sustain", i, v)
			}
			prev = v
		}
		if v := g.Value(); v != 0.5 {
			t.Errorf("value at decay boundary = %f, want exactly 0.5", v)
		}
		if g.State() != StateSustain {
			t.Errorf("state after decay = %v, want sustain", g.State())
		}
	})

	t.Run("Sustain", func(t *testing.T) {
		for i := 0; i < 1000; i++ {
			if v := g.Value(); v != 0.5 {
				t.Fatalf("sustain sample %d = %f, want 0.5", i, v)
			}
		}
	})

	t.Run("Release", func(t *testing.T) {
		g.NoteOff()
		if v := g.Value(); v != 0.5 || g.State() != StateRelease {
			t.Fatalf("value on note off = %f in %v, want 0.5 in release", v, g.State())
		}

		reachedZero := false
		for i := 0; i <= releaseLen; i++ {
			v := g.Value()
			if v < 0 {
				t.Fatalf("release sample %d = %f is negative", i, v)
			}
			if v == 0 {
				reachedZero = true
			}
		}
		if !reachedZero {
			t.Error("release never reached 0 within releaseLength samples")
		}
		if g.State() != StateIdle {
			t.Errorf("state after release = %v, want idle", g.State())
		}
	})
}

func TestRetrigger(t *testing.T) {
	stages := []struct {
		name    string
		advance int
		want    State
	}{
		{"Attack", 10, StateAttack},
		{"Decay", 300, StateDecay},
		{"Sustain", 600, StateSustain},
	}

	for _, st := range stages {
		t.Run(st.name, func(t *testing.T) {
			g := newTestGenerator()
			g.NoteOn()
			for i := 0; i < st.advance; i++ {
				g.Value()
			}
			if g.State() != st.want {
				t.Fatalf("state = %v, want %v", g.State(), st.want)
			}

			g.NoteOn()
			if v := g.Value(); v != 0 || g.State() != StateIdle {
				t.Fatalf("re-trigger value = %f in %v, want 0 in idle", v, g.State())
			}
			if v := g.Value(); v != 0 || g.State() != StateAttack {
				t.Fatalf("second value = %f in %v, want 0 in attack", v, g.State())
			}
			if v := g.Value(); v != 0 {
				t.Errorf("attack start = %f, want 0", v)
			}
			if v := g.Value(); v <= 0 {
				t.Errorf("attack did not restart, got %f", v)
			}
		})
	}

	t.Run("Release", func(t *testing.T) {
		g := newTestGenerator()
		g.NoteOn()
		for i := 0; i < 600; i++ {
			g.Value()
		}
		g.NoteOff()
		g.Value()
		g.Value()
		if g.State() != StateRelease {
			t.Fatalf("state = %v, want release", g.State())
		}

		g.NoteOn()
		g.Value()
		if g.State() != StateIdle {
			t.Fatalf("state = %v, want idle", g.State())
		}
		g.Value()
		if g.State() != StateAttack {
			t.Fatalf("state = %v, want attack", g.State())
		}
	})
}

func TestNoteOffHeldUntilSustain(t *testing.T) {
	g := newTestGenerator()
	g.NoteOn()
	g.Value()
	g.Value()
	g.NoteOff()

	// 219 more attack samples, the boundary, 220 decay samples, the boundary
	for i := 0; i < 219+1+220+1; i++ {
		g.Value()
		if g.State() == StateRelease {
			t.Fatalf("entered release at step %d before reaching sustain", i)
		}
	}
	if g.State() != StateSustain {
		t.Fatalf("state = %v, want sustain", g.State())
	}
	g.Value()
	if g.State() != StateRelease {
		t.Errorf("state = %v, want release once sustain is reached", g.State())
	}
}

func TestIdleDiscardsNoteOff(t *testing.T) {
	g := newTestGenerator()
	g.NoteOff()
	g.Value()
	g.NoteOn()
	for i := 0; i < 1000; i++ {
		g.Value()
	}
	if g.State() != StateSustain {
		t.Errorf("state = %v, want sustain", g.State())
	}
}

func TestSetterClamping(t *testing.T) {
	tests := []struct {
		name        string
		set         func(g *Generator) bool
		get         func(g *Generator) float64
		want        float64
		wantClamped bool
	}{
		{"attack low", func(g *Generator) bool { return g.SetAttack(0) }, (*Generator).Attack, 1, true},
		{"attack high", func(g *Generator) bool { return g.SetAttack(9000) }, (*Generator).Attack, 5000, true},
		{"attack ok", func(g *Generator) bool { return g.SetAttack(250) }, (*Generator).Attack, 250, false},
		{"decay low", func(g *Generator) bool { return g.SetDecay(-3) }, (*Generator).Decay, 1, true},
		{"decay ok", func(g *Generator) bool { return g.SetDecay(100) }, (*Generator).Decay, 100, false},
		{"release high", func(g *Generator) bool { return g.SetRelease(6000) }, (*Generator).Release, 5000, true},
		{"sustain low", func(g *Generator) bool { return g.SetSustain(-0.1) }, (*Generator).Sustain, 0, true},
		{"sustain high", func(g *Generator) bool { return g.SetSustain(1.1) }, (*Generator).Sustain, 1, true},
		{"sustain ok", func(g *Generator) bool { return g.SetSustain(0.01) }, (*Generator).Sustain, 0.01, false},
		{"sustain nan", func(g *Generator) bool { return g.SetSustain(math.NaN()) }, (*Generator).Sustain, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(dsp.DefaultConfig())
			if clamped := tt.set(g); clamped != tt.wantClamped {
				t.Errorf("clamped = %v, want %v", clamped, tt.wantClamped)
			}
			if got := tt.get(g); got != tt.want {
				t.Errorf("value = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestSustainRecomputesSlopes(t *testing.T) {
	g := newTestGenerator()
	g.SetSustain(0.25)

	if want := 0.75 / 220.5; math.Abs(g.decaySlope-want) > 1e-12 {
		t.Errorf("decay slope = %g, want %g", g.decaySlope, want)
	}
	if want := 0.25 / 220.5; math.Abs(g.releaseSlope-want) > 1e-12 {
		t.Errorf("release slope = %g, want %g", g.releaseSlope, want)
	}
}

func TestNonDefaultSampleRate(t *testing.T) {
	g := New(dsp.Config{SampleRate: 48000, BufferSize: 480})
	g.SetAttack(10)
	if attack, _, _ := g.Lengths(); attack != 480 {
		t.Errorf("attack length at 48 kHz = %d, want 480", attack)
	}
}

func BenchmarkValue(b *testing.B) {
	g := New(dsp.DefaultConfig())
	g.NoteOn()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		g.Value()
	}
}
