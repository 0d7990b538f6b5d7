package analysis

import (
	"fmt"
	"strings"
)

// Analyzer flags common rendering problems in a buffer.
type Analyzer struct {
	ClippingThreshold float64 // normalized level counted as clipped
	DCThreshold       float64 // DC offset reported as a problem
	SilenceThreshold  float64 // RMS below which the buffer is silent

	scratch []float32
}

// NewAnalyzer creates an analyzer with default thresholds.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		ClippingThreshold: 0.99,
		DCThreshold:       0.01,
		SilenceThreshold:  0.0001,
	}
}

// Report contains the results of a health check.
type Report struct {
	Levels
	ClippedSamples int
	ZeroCrossings  int
	Clipping       bool
	Silent         bool
	DCOffset       bool
}

// OK reports whether no problems were found.
func (r Report) OK() bool {
	return !r.Clipping && !r.Silent && !r.DCOffset
}

// Problems lists the problems found, if any.
func (r Report) Problems() []string {
	var p []string
	if r.Clipping {
		p = append(p, fmt.Sprintf("%d clipped samples", r.ClippedSamples))
	}
	if r.Silent {
		p = append(p, "silent")
	}
	if r.DCOffset {
		p = append(p, fmt.Sprintf("DC offset %.4f", r.DC))
	}
	return p
}

func (r Report) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "samples=%d peak=%.3f (%.1f dBFS) rms=%.3f (%.1f dBFS) dc=%.4f crossings=%d",
		r.Samples, r.Peak, DB(r.Peak), r.RMS, DB(r.RMS), r.DC, r.ZeroCrossings)
	if p := r.Problems(); len(p) > 0 {
		sb.WriteString(" [")
		sb.WriteString(strings.Join(p, ", "))
		sb.WriteString("]")
	}
	return sb.String()
}

// Check analyzes samples. The analyzer reuses its scratch space so it is
// not safe for concurrent use.
func (a *Analyzer) Check(samples []int16) Report {
	if len(samples) == 0 {
		return Report{Silent: true}
	}

	a.scratch = normalize(a.scratch, samples)
	r := Report{Levels: measure(a.scratch)}

	var last float32
	for i, x := range a.scratch {
		ax := x
		if ax < 0 {
			ax = -ax
		}
		if float64(ax) >= a.ClippingThreshold {
			r.ClippedSamples++
		}
		if i > 0 && ((last < 0 && x >= 0) || (last >= 0 && x < 0)) {
			r.ZeroCrossings++
		}
		last = x
	}

	r.Clipping = r.ClippedSamples > 0
	r.Silent = r.RMS < a.SilenceThreshold
	r.DCOffset = !r.Silent && (r.DC > a.DCThreshold || r.DC < -a.DCThreshold)
	return r
}

// Check analyzes samples with default thresholds.
func Check(samples []int16) Report {
	return NewAnalyzer().Check(samples)
}
