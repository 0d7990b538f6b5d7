// Package chain assembles a leaf source and its wrappers into one pull
// chain.
package chain

import (
	"errors"
	"fmt"

	"github.com/justyntemme/softsynth/pkg/dsp"
	"github.com/justyntemme/softsynth/pkg/framework/debug"
)

// Stage wraps upstream in a new unit.
type Stage func(cfg dsp.Config, upstream dsp.Source) (dsp.Source, error)

// Chain is a built pull chain. Fill pulls the outermost unit, which pulls
// its upstream in turn.
type Chain struct {
	name     string
	cfg      dsp.Config
	root     dsp.Source
	units    map[string]dsp.Source
	names    []string
	profiler *debug.RenderProfiler
}

// Builder provides a fluent API for building chains
type Builder struct {
	chain  *Chain
	errors []error
}

// NewBuilder creates a chain builder for units sharing cfg.
func NewBuilder(name string, cfg dsp.Config) *Builder {
	b := &Builder{
		chain: &Chain{
			name:  name,
			cfg:   cfg,
			units: make(map[string]dsp.Source),
		},
	}
	if err := cfg.Validate(); err != nil {
		b.errors = append(b.errors, fmt.Errorf("chain %q: %w", name, err))
	}
	return b
}

// From sets the leaf that generates samples.
func (b *Builder) From(name string, leaf dsp.Source) *Builder {
	switch {
	case b.chain.root != nil:
		b.errors = append(b.errors, fmt.Errorf("chain %q: leaf %q added after %q", b.chain.name, name, b.chain.names[0]))
		return b
	case leaf == nil:
		b.errors = append(b.errors, fmt.Errorf("chain %q: leaf %q: %w", b.chain.name, name, dsp.ErrNilSource))
		return b
	}
	b.add(name, leaf)
	return b
}

// Then wraps the chain built so far in the unit stage returns.
func (b *Builder) Then(name string, stage Stage) *Builder {
	switch {
	case stage == nil:
		b.errors = append(b.errors, fmt.Errorf("chain %q: stage %q is nil", b.chain.name, name))
		return b
	case b.chain.root == nil:
		b.errors = append(b.errors, fmt.Errorf("chain %q: stage %q has no upstream", b.chain.name, name))
		return b
	}

	unit, err := stage(b.chain.cfg, b.chain.root)
	if err != nil {
		b.errors = append(b.errors, fmt.Errorf("chain %q: stage %q: %w", b.chain.name, name, err))
		return b
	}
	if unit == nil {
		b.errors = append(b.errors, fmt.Errorf("chain %q: stage %q: %w", b.chain.name, name, dsp.ErrNilSource))
		return b
	}
	b.add(name, unit)
	return b
}

func (b *Builder) add(name string, unit dsp.Source) {
	if _, dup := b.chain.units[name]; dup {
		b.errors = append(b.errors, fmt.Errorf("chain %q: duplicate unit name %q", b.chain.name, name))
		return
	}
	b.chain.units[name] = unit
	b.chain.names = append(b.chain.names, name)
	b.chain.root = unit
}

// WithProfiler times every Fill of the built chain.
func (b *Builder) WithProfiler(p *debug.RenderProfiler) *Builder {
	b.chain.profiler = p
	return b
}

// Build validates and returns the chain.
func (b *Builder) Build() (*Chain, error) {
	if b.chain.root == nil && len(b.errors) == 0 {
		b.errors = append(b.errors, fmt.Errorf("chain %q: no leaf source", b.chain.name))
	}
	if len(b.errors) > 0 {
		return nil, errors.Join(b.errors...)
	}
	debug.Debug("chain %q built: %v", b.chain.name, b.chain.names)
	return b.chain, nil
}

// Fill pulls one buffer through the chain.
func (c *Chain) Fill(buf []int16) int {
	if c.profiler != nil {
		defer c.profiler.Start(c.name)()
	}
	return c.root.Fill(buf)
}

// Name returns the chain name.
func (c *Chain) Name() string {
	return c.name
}

// Config returns the configuration shared by every unit.
func (c *Chain) Config() dsp.Config {
	return c.cfg
}

// Names lists unit names from the leaf outward.
func (c *Chain) Names() []string {
	return append([]string(nil), c.names...)
}

// Unit returns the unit registered under name.
func (c *Chain) Unit(name string) (dsp.Source, bool) {
	u, ok := c.units[name]
	return u, ok
}

// Len returns the number of units.
func (c *Chain) Len() int {
	return len(c.names)
}
