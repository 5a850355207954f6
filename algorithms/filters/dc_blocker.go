// Package filters holds sample-domain filters applied before the transform.
package filters

import (
	"fmt"
	"math"
)

// DefaultPole gives a cutoff of roughly 8 Hz at 44.1 kHz
const DefaultPole = 0.995

// DCBlocker is a one-pole, one-zero high-pass filter that removes the 0 Hz
// component:
//
//	y[n] = x[n] - x[n-1] + R*y[n-1]
//
// Without it a recording with a DC offset puts its largest magnitude in bin 0.
type DCBlocker struct {
	pole float64

	x1 float64
	y1 float64
}

// NewDCBlocker creates a filter with pole R, 0 < R < 1. Values closer to 1
// lower the cutoff.
func NewDCBlocker(pole float64) (*DCBlocker, error) {
	if !(pole > 0 && pole < 1) {
		return nil, fmt.Errorf("dc blocker pole must be in (0, 1), got %v", pole)
	}
	return &DCBlocker{pole: pole}, nil
}

// NewDCBlockerWithCutoff derives the pole from a -3 dB cutoff using
// R = 1 - 2*pi*fc/fs, valid for fc much smaller than fs/2.
func NewDCBlockerWithCutoff(sampleRate int, cutoff float64) (*DCBlocker, error) {
	if sampleRate <= 0 || !(cutoff > 0) {
		return nil, fmt.Errorf("invalid cutoff %v Hz at %d Hz", cutoff, sampleRate)
	}
	pole := 1 - 2*math.Pi*cutoff/float64(sampleRate)
	return NewDCBlocker(min(max(pole, 0.001), 0.999))
}

// Pole returns R
func (f *DCBlocker) Pole() float64 {
	return f.pole
}

// Cutoff returns the approximate -3 dB frequency at sampleRate
func (f *DCBlocker) Cutoff(sampleRate int) float64 {
	return (1 - f.pole) * float64(sampleRate) / (2 * math.Pi)
}

// Process filters one sample
func (f *DCBlocker) Process(x float64) float64 {
	y := x - f.x1 + f.pole*f.y1
	f.x1, f.y1 = x, y
	return y
}

// ProcessInPlace filters samples, continuing from the previous call's state
func (f *DCBlocker) ProcessInPlace(samples []float64) {
	for i, x := range samples {
		samples[i] = f.Process(x)
	}
}

// Reset clears the filter state
func (f *DCBlocker) Reset() {
	f.x1, f.y1 = 0, 0
}

// RemoveDCInterleaved runs an independent blocker over every channel of
// interleaved samples in place.
func RemoveDCInterleaved(samples []float64, channels int, pole float64) error {
	if channels < 1 {
		return fmt.Errorf("invalid channel count %d", channels)
	}

	blockers := make([]*DCBlocker, channels)
	for c := range blockers {
		b, err := NewDCBlocker(pole)
		if err != nil {
			return err
		}
		blockers[c] = b
	}

	for i, x := range samples {
		samples[i] = blockers[i%channels].Process(x)
	}
	return nil
}
