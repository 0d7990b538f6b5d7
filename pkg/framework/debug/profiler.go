package debug

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// RenderProfiler times buffer renders per named section and relates them
// to the real-time budget of one buffer.
type RenderProfiler struct {
	mu       sync.Mutex
	sections map[string]*Measurement
	enabled  atomic.Bool
	budget   time.Duration
	window   int
}

// Measurement holds timing statistics for a profiled section.
type Measurement struct {
	Name     string
	Count    uint64
	Overruns uint64 // renders that took longer than the buffer budget
	Total    time.Duration
	Min      time.Duration
	Max      time.Duration
	Last     time.Duration

	recent []time.Duration
	next   int
}

// NewRenderProfiler creates a profiler for buffers lasting budget, keeping
// the last window timings of each section for percentiles.
func NewRenderProfiler(budget time.Duration, window int) *RenderProfiler {
	if window < 1 {
		window = 1
	}
	p := &RenderProfiler{
		sections: make(map[string]*Measurement),
		budget:   budget,
		window:   window,
	}
	p.enabled.Store(true)
	return p
}

// SetEnabled enables or disables profiling.
func (p *RenderProfiler) SetEnabled(enabled bool) {
	p.enabled.Store(enabled)
}

// Enabled returns whether profiling is enabled.
func (p *RenderProfiler) Enabled() bool {
	return p.enabled.Load()
}

// Budget returns the duration of one buffer.
func (p *RenderProfiler) Budget() time.Duration {
	return p.budget
}

// Start begins timing a named section and returns the function that ends it.
func (p *RenderProfiler) Start(name string) func() {
	if !p.enabled.Load() {
		return func() {}
	}
	start := time.Now()
	return func() {
		p.record(name, time.Since(start))
	}
}

func (p *RenderProfiler) record(name string, elapsed time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	m, ok := p.sections[name]
	if !ok {
		m = &Measurement{
			Name:   name,
			Min:    elapsed,
			Max:    elapsed,
			recent: make([]time.Duration, 0, p.window),
		}
		p.sections[name] = m
	}

	m.Count++
	m.Total += elapsed
	m.Last = elapsed
	if elapsed < m.Min {
		m.Min = elapsed
	}
	if elapsed > m.Max {
		m.Max = elapsed
	}
	if p.budget > 0 && elapsed > p.budget {
		m.Overruns++
	}

	if len(m.recent) < p.window {
		m.recent = append(m.recent, elapsed)
	} else {
		m.recent[m.next] = elapsed
	}
	m.next = (m.next + 1) % p.window
}

// Measurement returns a copy of the statistics for a named section.
func (p *RenderProfiler) Measurement(name string) (Measurement, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	m, ok := p.sections[name]
	if !ok {
		return Measurement{}, false
	}
	c := *m
	c.recent = append([]time.Duration(nil), m.recent...)
	return c, true
}

// Load returns the average render time of a section as a percentage of
// the buffer budget. Above 100 the section cannot keep up in real time.
func (p *RenderProfiler) Load(name string) float64 {
	m, ok := p.Measurement(name)
	if !ok || p.budget <= 0 {
		return 0
	}
	return float64(m.Average()) / float64(p.budget) * 100.0
}

// Reset clears all measurements.
func (p *RenderProfiler) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sections = make(map[string]*Measurement)
}

// Report formats every section, sorted by name.
func (p *RenderProfiler) Report() string {
	p.mu.Lock()
	names := make([]string, 0, len(p.sections))
	for name := range p.sections {
		names = append(names, name)
	}
	p.mu.Unlock()

	if len(names) == 0 {
		return "No measurements recorded"
	}
	sort.Strings(names)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Render profile (budget %v per buffer):\n", p.budget)
	for _, name := range names {
		m, _ := p.Measurement(name)
		fmt.Fprintf(&sb, "%s:\n", name)
		fmt.Fprintf(&sb, "  Count:    %d\n", m.Count)
		fmt.Fprintf(&sb, "  Average:  %v\n", m.Average())
		fmt.Fprintf(&sb, "  Min:      %v\n", m.Min)
		fmt.Fprintf(&sb, "  Max:      %v\n", m.Max)
		fmt.Fprintf(&sb, "  P99:      %v\n", m.Percentile(99))
		fmt.Fprintf(&sb, "  Load:     %.2f%%\n", p.Load(name))
		fmt.Fprintf(&sb, "  Overruns: %d\n", m.Overruns)
	}
	return sb.String()
}

// Average returns the mean time for this measurement.
func (m Measurement) Average() time.Duration {
	if m.Count == 0 {
		return 0
	}
	return m.Total / time.Duration(m.Count)
}

// Percentile returns the pct-th percentile of the recent timings.
func (m Measurement) Percentile(pct float64) time.Duration {
	if len(m.recent) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), m.recent...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	index := int(float64(len(sorted)-1) * pct / 100.0)
	if index < 0 {
		index = 0
	}
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}
