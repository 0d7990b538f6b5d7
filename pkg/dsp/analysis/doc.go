// Package analysis measures rendered audio.
//
// It covers the checks the synth needs when rendering offline:
//
// Levels:
//   - Peak, RMS and DC offset of a buffer, normalized to [-1, 1]
//
// Spectrum:
//   - Hann-windowed magnitude spectrum over the largest power-of-two prefix
//   - Dominant frequency with parabolic bin interpolation
//
// Health:
//   - Clipping, silence, DC offset and zero-crossing counts
//
// Example usage:
//
//	levels := analysis.Measure(buf)
//	fmt.Printf("peak %.3f rms %.3f\n", levels.Peak, levels.RMS)
//
//	hz, err := analysis.PeakFrequency(buf, cfg)
//
//	report := analysis.Check(buf)
//	if !report.OK() {
//	    debug.Warn("render: %s", report)
//	}
package analysis
