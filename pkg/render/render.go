// Package render pulls chains offline and writes the result as raw PCM or
// WAV.
package render

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"golang.org/x/sync/errgroup"

	"github.com/justyntemme/softsynth/pkg/dsp"
	"github.com/justyntemme/softsynth/pkg/framework/debug"
)

// Render pulls buffers buffers from src and returns them back to back. It
// stops early with ctx's error when ctx is done.
func Render(ctx context.Context, src dsp.Source, cfg dsp.Config, buffers int64) ([]int16, error) {
	if src == nil {
		return nil, dsp.ErrNilSource
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if buffers < 0 {
		return nil, fmt.Errorf("render: negative buffer count %d", buffers)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]int16, int(buffers)*cfg.BufferSize)
	for i := int64(0); i < buffers; i++ {
		if err := ctx.Err(); err != nil {
			return out[:int(i)*cfg.BufferSize], err
		}
		src.Fill(out[int(i)*cfg.BufferSize : int(i+1)*cfg.BufferSize])
	}
	return out, nil
}

// WriteRaw writes samples as big-endian 16-bit PCM.
func WriteRaw(w io.Writer, samples []int16) error {
	const chunk = 4096
	buf := make([]byte, chunk*dsp.BytesPerSample)
	for len(samples) > 0 {
		n := min(len(samples), chunk)
		b := dsp.EncodeBigEndian(buf, samples[:n])
		if _, err := w.Write(buf[:b]); err != nil {
			return fmt.Errorf("render: %w", err)
		}
		samples = samples[n:]
	}
	return nil
}

// WriteWAV writes samples as a 16-bit mono WAV file.
func WriteWAV(w io.WriteSeeker, cfg dsp.Config, samples []int16) error {
	enc := wav.NewEncoder(w, cfg.SampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  cfg.SampleRate,
		},
		Data:           make([]int, len(samples)),
		SourceBitDepth: 16,
	}
	for i, s := range samples {
		buf.Data[i] = int(s)
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("render: wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("render: wav: %w", err)
	}
	return nil
}

// Format selects the file format of a job's output.
type Format int

const (
	FormatWAV Format = iota
	FormatRaw
)

func (f Format) Ext() string {
	if f == FormatRaw {
		return ".raw"
	}
	return ".wav"
}

// Job renders one source to one file.
type Job struct {
	Name    string
	Source  dsp.Source
	Config  dsp.Config
	Buffers int64
	Path    string
	Format  Format
}

// Result describes a finished job.
type Result struct {
	Name    string
	Path    string
	Samples []int16
	Elapsed time.Duration
}

// Run renders the job and writes its file. An empty Path skips the file.
func (j Job) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	samples, err := Render(ctx, j.Source, j.Config, j.Buffers)
	if err != nil {
		return Result{}, fmt.Errorf("render %q: %w", j.Name, err)
	}

	if j.Path != "" {
		if err := writeFile(j.Path, j.Format, j.Config, samples); err != nil {
			return Result{}, fmt.Errorf("render %q: %w", j.Name, err)
		}
	}

	r := Result{Name: j.Name, Path: j.Path, Samples: samples, Elapsed: time.Since(start)}
	debug.Info("rendered %q: %d samples in %v", j.Name, len(samples), r.Elapsed)
	return r, nil
}

func writeFile(path string, format Format, cfg dsp.Config, samples []int16) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	switch format {
	case FormatRaw:
		bw := bufio.NewWriter(f)
		err = WriteRaw(bw, samples)
		if err == nil {
			err = bw.Flush()
		}
	default:
		err = WriteWAV(f, cfg, samples)
	}

	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

// RenderAll runs jobs concurrently, at most limit at a time (GOMAXPROCS
// when limit is not positive). Each job owns its chain, so jobs share
// nothing. The first failure cancels the rest. Results keep job order.
func RenderAll(ctx context.Context, jobs []Job, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	results := make([]Result, len(jobs))
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			r, err := job.Run(ctx)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
