package dsp

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is returned when a Config cannot drive a chain.
var ErrInvalidConfig = errors.New("invalid engine configuration")

// Config holds the sample rate and buffer size a chain is rendered with.
// It is passed by value to every unit constructor and never changes after
// the unit is built.
type Config struct {
	SampleRate int // samples per second
	BufferSize int // samples per Fill call
}

// DefaultConfig returns 22050 Hz with 500-sample buffers.
func DefaultConfig() Config {
	return Config{
		SampleRate: DefaultSampleRate,
		BufferSize: DefaultBufferSize,
	}
}

// NewConfig derives the buffer size from a buffer duration.
func NewConfig(sampleRate int, bufferDuration time.Duration) (Config, error) {
	cfg := Config{
		SampleRate: sampleRate,
		BufferSize: int(bufferDuration.Seconds() * float64(sampleRate)),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports whether the configuration is usable.
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d must be positive", ErrInvalidConfig, c.SampleRate)
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("%w: buffer size %d must be positive", ErrInvalidConfig, c.BufferSize)
	}
	return nil
}

// BufferDuration returns the wall-clock time one buffer represents.
func (c Config) BufferDuration() time.Duration {
	return time.Duration(float64(c.BufferSize) / float64(c.SampleRate) * float64(time.Second))
}

// BufferSeconds is BufferDuration as a float, without duration rounding.
func (c Config) BufferSeconds() float64 {
	return float64(c.BufferSize) / float64(c.SampleRate)
}

// NewBuffer allocates one buffer of BufferSize samples.
func (c Config) NewBuffer() []int16 {
	return make([]int16, c.BufferSize)
}

// MillisToSamples converts milliseconds to a fractional sample count.
func (c Config) MillisToSamples(ms float64) float64 {
	return 0.001 * ms * float64(c.SampleRate)
}

func (c Config) String() string {
	return fmt.Sprintf("%d Hz, %d samples/buffer", c.SampleRate, c.BufferSize)
}
