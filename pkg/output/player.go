package output

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/justyntemme/softsynth/pkg/dsp"
	"github.com/justyntemme/softsynth/pkg/framework/debug"
)

// oto allows one context per process, so every player shares it. Sources
// at another rate are resampled to the rate it was opened with.
var (
	otoMu   sync.Mutex
	otoCtx  *oto.Context
	otoRate int
)

// otoContext returns the shared context and the device configuration a
// source with cfg must be converted to.
func otoContext(cfg dsp.Config) (*oto.Context, dsp.Config, error) {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoCtx != nil {
		if otoRate == cfg.SampleRate {
			return otoCtx, cfg, nil
		}
		dev, err := dsp.NewConfig(otoRate, cfg.BufferDuration())
		if err != nil {
			return nil, dsp.Config{}, fmt.Errorf("output: %w", err)
		}
		debug.Debug("output: resampling %d Hz to the device's %d Hz", cfg.SampleRate, otoRate)
		return otoCtx, dev, nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   cfg.SampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   cfg.BufferDuration(),
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, dsp.Config{}, fmt.Errorf("output: %w", err)
	}
	<-ready

	otoCtx, otoRate = ctx, cfg.SampleRate
	debug.Debug("output: device open at %d Hz", cfg.SampleRate)
	return ctx, cfg, nil
}

// Player plays a source on the default audio device. The device pulls
// the source from its own goroutine, so control changes must go through
// a sequencer.Player rather than touching units directly.
type Player struct {
	cfg     dsp.Config
	dev     dsp.Config
	reader  *Reader
	player  *oto.Player
	started bool
	mutex   sync.Mutex
}

// NewPlayer opens the device for cfg and prepares src for playback. If the
// device is already open at another rate, src is resampled to it.
func NewPlayer(cfg dsp.Config, src dsp.Source) (*Player, error) {
	ctx, dev, err := otoContext(cfg)
	if err != nil {
		return nil, err
	}
	r := NewReader(dev, Resample(src, cfg, dev))
	return &Player{
		cfg:    cfg,
		dev:    dev,
		reader: r,
		player: ctx.NewPlayer(r),
	}, nil
}

// Reader returns the PCM reader the device pulls.
func (p *Player) Reader() *Reader {
	return p.reader
}

// SetLimit stops playback after buffers source buffers.
func (p *Player) SetLimit(buffers int64) {
	p.reader.SetLimit(deviceBuffers(buffers, p.cfg, p.dev))
}

// Start begins or resumes playback.
func (p *Player) Start() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if !p.started && p.player != nil {
		p.player.Play()
		p.started = true
	}
}

// Stop pauses playback.
func (p *Player) Stop() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.started && p.player != nil {
		p.player.Pause()
		p.started = false
	}
}

// Close stops playback and releases the device player.
func (p *Player) Close() error {
	p.Stop()
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.player == nil {
		return nil
	}
	p.reader.Close()
	err := p.player.Close()
	p.player = nil
	return err
}

// IsPlaying reports whether the device is still consuming audio.
func (p *Player) IsPlaying() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.player != nil && p.player.IsPlaying()
}

// Wait blocks until playback drains or ctx is done.
func (p *Player) Wait(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for p.IsPlaying() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.player != nil {
		return p.player.Err()
	}
	return nil
}
