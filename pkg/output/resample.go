package output

import (
	"github.com/gopxl/beep"

	"github.com/justyntemme/softsynth/pkg/dsp"
)

// ResampleQuality is the beep resampler quality used when a source runs
// at a different rate than the device.
const ResampleQuality = 4

// Resample returns src, rendered at cfg's rate, as a source at dev's rate.
// A source already at the device rate is returned unchanged.
func Resample(src dsp.Source, cfg, dev dsp.Config) dsp.Source {
	if cfg.SampleRate == dev.SampleRate {
		return src
	}
	st := beep.Resample(ResampleQuality, beep.SampleRate(cfg.SampleRate), beep.SampleRate(dev.SampleRate), NewStreamer(cfg, src, 0))
	return &streamSource{st: st}
}

// streamSource pulls a beep stream into 16-bit buffers, left channel only.
type streamSource struct {
	st  beep.Streamer
	tmp [][2]float64
}

func (s *streamSource) Fill(buf []int16) int {
	if cap(s.tmp) < len(buf) {
		s.tmp = make([][2]float64, len(buf))
	}
	tmp := s.tmp[:len(buf)]

	n := 0
	for n < len(buf) {
		m, ok := s.st.Stream(tmp[n:])
		n += m
		if !ok || m == 0 {
			break
		}
	}
	for i := range buf {
		if i < n {
			buf[i] = dsp.FromFloat(tmp[i][0])
		} else {
			buf[i] = 0
		}
	}
	return len(buf)
}

// deviceBuffers converts a count of cfg buffers to the number of dev
// buffers covering the same time.
func deviceBuffers(buffers int64, cfg, dev dsp.Config) int64 {
	if buffers <= 0 || cfg == dev {
		return buffers
	}
	num := buffers * int64(cfg.BufferSize) * int64(dev.SampleRate)
	den := int64(cfg.SampleRate) * int64(dev.BufferSize)
	return (num + den - 1) / den
}
