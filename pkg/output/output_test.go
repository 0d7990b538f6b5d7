package output

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/gopxl/beep"

	"github.com/justyntemme/softsynth/pkg/dsp"
	"github.com/justyntemme/softsynth/pkg/dsp/analysis"
	"github.com/justyntemme/softsynth/pkg/dsp/oscillator"
)

// counter emits 1, 2, 3, ... across buffers
func counter() dsp.Source {
	n := 0
	return dsp.SourceFunc(func(buf []int16) int {
		for i := range buf {
			n++
			buf[i] = int16(n)
		}
		return len(buf)
	})
}

func smallConfig() dsp.Config {
	return dsp.Config{SampleRate: 8000, BufferSize: 4}
}

func TestReaderWarmup(t *testing.T) {
	cfg := smallConfig()
	r := NewReader(cfg, counter())
	r.SetLimit(1)

	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}

	silence := WarmupBuffers * cfg.BufferSize * dsp.BytesPerSample
	if len(data) != silence+cfg.BufferSize*dsp.BytesPerSample {
		t.Fatalf("read %d bytes, want %d", len(data), silence+8)
	}
	for i := 0; i < silence; i++ {
		if data[i] != 0 {
			t.Fatalf("warm-up byte %d = %d, want 0", i, data[i])
		}
	}
	for i := 0; i < cfg.BufferSize; i++ {
		got := int16(binary.LittleEndian.Uint16(data[silence+2*i:]))
		if got != int16(i+1) {
			t.Errorf("sample %d = %d, want %d", i, got, i+1)
		}
	}
	if r.Rendered() != 1 {
		t.Errorf("Rendered = %d, want 1", r.Rendered())
	}
}

func TestReaderBigEndian(t *testing.T) {
	cfg := smallConfig()
	r := NewReader(cfg, counter())
	r.SetWarmup(0)
	r.SetEncoding(BigEndian)
	r.SetLimit(2)

	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}

	samples := make([]int16, len(data)/2)
	dsp.DecodeBigEndian(samples, data)
	for i, s := range samples {
		if s != int16(i+1) {
			t.Errorf("sample %d = %d, want %d", i, s, i+1)
		}
	}
	if len(samples) != 8 {
		t.Errorf("read %d samples, want 8", len(samples))
	}
}

func TestReaderPartialReads(t *testing.T) {
	cfg := smallConfig()
	r := NewReader(cfg, counter())
	r.SetWarmup(0)

	// Odd-sized reads straddle buffer boundaries
	p := make([]byte, 3)
	var all []byte
	for len(all) < 30 {
		n, err := r.Read(p)
		if err != nil {
			t.Fatal(err)
		}
		all = append(all, p[:n]...)
	}
	for i := 0; i+1 < len(all); i += 2 {
		if got := int16(binary.LittleEndian.Uint16(all[i:])); got != int16(i/2+1) {
			t.Fatalf("sample %d = %d, want %d", i/2, got, i/2+1)
		}
	}
}

func TestReaderClose(t *testing.T) {
	r := NewReader(smallConfig(), counter())
	r.Close()

	if _, err := r.Read(make([]byte, 16)); !errors.Is(err, io.EOF) {
		t.Errorf("err = %v, want io.EOF", err)
	}
}

func TestStreamer(t *testing.T) {
	cfg := smallConfig()
	s := NewStreamer(cfg, counter(), 3)

	if f := s.Format(); f.SampleRate != beep.SampleRate(8000) || f.NumChannels != 1 {
		t.Errorf("Format = %+v", f)
	}

	samples := make([][2]float64, 5)
	n, ok := s.Stream(samples)
	if n != 5 || !ok {
		t.Fatalf("Stream = %d, %v, want 5, true", n, ok)
	}
	for i := 0; i < n; i++ {
		want := float64(i+1) / dsp.MaxSample
		if math.Abs(samples[i][0]-want) > 1e-12 || samples[i][0] != samples[i][1] {
			t.Errorf("frame %d = %v, want %f on both channels", i, samples[i], want)
		}
	}

	// Three buffers of four, five already taken
	n, ok = s.Stream(make([][2]float64, 100))
	if n != 7 || !ok {
		t.Errorf("Stream = %d, %v, want 7, true", n, ok)
	}
	if n, ok = s.Stream(samples); n != 0 || ok {
		t.Errorf("drained Stream = %d, %v, want 0, false", n, ok)
	}
	if s.Err() != nil {
		t.Errorf("Err = %v", s.Err())
	}
}

func TestStreamerWithBeep(t *testing.T) {
	cfg := smallConfig()
	s := NewStreamer(cfg, counter(), 0)

	// beep combinators drive an unlimited stream like any other
	taken := beep.Take(10, s)
	samples := make([][2]float64, 16)
	n, _ := taken.Stream(samples)
	if n != 10 {
		t.Fatalf("Take streamed %d, want 10", n)
	}
	if samples[9][0] != 10.0/dsp.MaxSample {
		t.Errorf("frame 9 = %f", samples[9][0])
	}
}

func TestResample(t *testing.T) {
	dev := dsp.DefaultConfig()

	t.Run("SameRate", func(t *testing.T) {
		src := counter()
		got := Resample(src, dev, dev)
		buf := dev.NewBuffer()
		got.Fill(buf)
		if buf[0] != 1 || buf[len(buf)-1] != int16(len(buf)) {
			t.Errorf("same-rate source was altered: first %d, last %d", buf[0], buf[len(buf)-1])
		}
	})

	t.Run("KeepsPitch", func(t *testing.T) {
		cfg := dsp.Config{SampleRate: 44100, BufferSize: 1000}
		osc := oscillator.NewBasic(cfg)
		osc.SetFrequency(441)

		src := Resample(osc, cfg, dev)
		var samples []int16
		buf := dev.NewBuffer()
		for i := 0; i < 17; i++ {
			src.Fill(buf)
			if i > 0 {
				samples = append(samples, buf...)
			}
		}

		hz, err := analysis.PeakFrequency(samples, dev)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(hz-441) > 5 {
			t.Errorf("peak frequency = %.1f Hz, want 441", hz)
		}
		if l := analysis.Measure(samples); l.Peak < 0.9 {
			t.Errorf("peak level = %.3f, want near full scale", l.Peak)
		}
	})
}

func TestDeviceBuffers(t *testing.T) {
	dev := dsp.DefaultConfig()
	tests := []struct {
		name    string
		buffers int64
		cfg     dsp.Config
		want    int64
	}{
		{"SameConfig", 10, dev, 10},
		{"Unlimited", 0, dsp.Config{SampleRate: 44100, BufferSize: 441}, 0},
		{"SameDuration", 10, dsp.Config{SampleRate: 44100, BufferSize: 1000}, 10},
		{"OneSecond", 100, dsp.Config{SampleRate: 44100, BufferSize: 441}, 45},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := deviceBuffers(tt.buffers, tt.cfg, dev); got != tt.want {
				t.Errorf("deviceBuffers(%d) = %d, want %d", tt.buffers, got, tt.want)
			}
		})
	}
}
