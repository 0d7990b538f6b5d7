// Package dsp defines the sample format, configuration and pull contract
// shared by every unit of the synthesizer.
package dsp

// Common audio constants used throughout the DSP packages.
const (
	// Sample format
	MaxSample      = 32767  // Largest positive 16-bit sample, full scale
	MinSample      = -32768 // Most negative 16-bit sample
	BytesPerSample = 2

	// Default engine configuration
	DefaultSampleRate = 22050
	DefaultBufferSize = 500 // 1000 bytes of 16-bit samples

	// Phase constants
	TwoPi  = 6.283185307179586
	Pi     = 3.141592653589793
	HalfPi = 1.5707963267948966

	// Pitch
	CentsPerOctave     = 1200.0
	SemitonesPerOctave = 12.0

	// Small values for comparisons
	Epsilon = 1e-6
)
