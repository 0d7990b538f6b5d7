// Package output feeds chains to audio devices and to beep pipelines.
package output

import (
	"encoding/binary"
	"io"
	"sync"

	"github.com/justyntemme/softsynth/pkg/dsp"
)

// WarmupBuffers of silence precede the chain output so the device
// buffer fills before the first note.
const WarmupBuffers = 20

// Encoding selects the byte order a Reader produces.
type Encoding int

const (
	// LittleEndian is what audio devices consume
	LittleEndian Encoding = iota
	// BigEndian is the wire format, high byte first
	BigEndian
)

// Reader renders a source on demand as 16-bit mono PCM. Each Read pulls
// whole buffers from the source on the calling goroutine.
type Reader struct {
	cfg      dsp.Config
	src      dsp.Source
	encoding Encoding

	samples []int16
	pending []byte
	bytes   []byte

	mu       sync.Mutex
	warmup   int
	rendered int64
	limit    int64 // 0 for unlimited
	closed   bool
}

// NewReader creates a little-endian reader with warm-up silence. Panics
// if src is nil.
func NewReader(cfg dsp.Config, src dsp.Source) *Reader {
	return &Reader{
		cfg:     cfg,
		src:     dsp.MustSource(src),
		samples: cfg.NewBuffer(),
		bytes:   make([]byte, cfg.BufferSize*dsp.BytesPerSample),
		warmup:  WarmupBuffers,
	}
}

// SetEncoding switches the byte order of the produced stream.
func (r *Reader) SetEncoding(e Encoding) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.encoding = e
}

// SetWarmup changes the number of leading silent buffers.
func (r *Reader) SetWarmup(buffers int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warmup = max(buffers, 0)
}

// SetLimit ends the stream after buffers source buffers. Zero means no
// limit.
func (r *Reader) SetLimit(buffers int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limit = buffers
}

// Rendered returns the number of source buffers pulled so far.
func (r *Reader) Rendered() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rendered
}

// Close ends the stream. Later reads return io.EOF.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *Reader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for n < len(p) {
		if len(r.pending) == 0 {
			if !r.next() {
				break
			}
		}
		c := copy(p[n:], r.pending)
		r.pending = r.pending[c:]
		n += c
	}

	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// next renders one buffer into pending and reports whether there was one.
func (r *Reader) next() bool {
	switch {
	case r.closed:
		return false
	case r.warmup > 0:
		r.warmup--
		dsp.Clear(r.samples)
	case r.limit > 0 && r.rendered >= r.limit:
		return false
	default:
		r.src.Fill(r.samples)
		r.rendered++
	}

	switch r.encoding {
	case BigEndian:
		dsp.EncodeBigEndian(r.bytes, r.samples)
	default:
		for i, s := range r.samples {
			binary.LittleEndian.PutUint16(r.bytes[i*2:], uint16(s))
		}
	}
	r.pending = r.bytes
	return true
}

var _ io.ReadCloser = (*Reader)(nil)
