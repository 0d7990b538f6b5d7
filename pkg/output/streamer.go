package output

import (
	"github.com/gopxl/beep"

	"github.com/justyntemme/softsynth/pkg/dsp"
)

// Streamer adapts a source to beep so chains can be mixed, resampled or
// sequenced with beep's combinators. Mono output is copied to both
// channels.
type Streamer struct {
	cfg   dsp.Config
	src   dsp.Source
	buf   []int16
	pos   int
	left  int64 // buffers still to pull, negative for unlimited
	ended bool
}

// NewStreamer wraps src. A positive buffers ends the stream after that
// many source buffers. Panics if src is nil.
func NewStreamer(cfg dsp.Config, src dsp.Source, buffers int64) *Streamer {
	if buffers <= 0 {
		buffers = -1
	}
	s := &Streamer{
		cfg:  cfg,
		src:  dsp.MustSource(src),
		buf:  cfg.NewBuffer(),
		left: buffers,
	}
	s.pos = len(s.buf)
	return s
}

// Format describes the stream for beep.
func (s *Streamer) Format() beep.Format {
	return beep.Format{
		SampleRate:  beep.SampleRate(s.cfg.SampleRate),
		NumChannels: 1,
		Precision:   dsp.BytesPerSample,
	}
}

func (s *Streamer) Stream(samples [][2]float64) (n int, ok bool) {
	if s.ended {
		return 0, false
	}
	for n < len(samples) {
		if s.pos == len(s.buf) {
			if s.left == 0 {
				s.ended = true
				break
			}
			if s.left > 0 {
				s.left--
			}
			s.src.Fill(s.buf)
			s.pos = 0
		}
		v := dsp.ToFloat(s.buf[s.pos])
		samples[n][0] = v
		samples[n][1] = v
		s.pos++
		n++
	}
	return n, n > 0
}

// Err is always nil; sources cannot fail.
func (s *Streamer) Err() error {
	return nil
}

var _ beep.Streamer = (*Streamer)(nil)
