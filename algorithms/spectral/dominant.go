package spectral

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// DefaultPeakHalfWidth is the half width W of the energy window used by
// DominantBin.
const DefaultPeakHalfWidth = 5

// DominantBin returns the bin whose neighbourhood [i-halfWidth, i+halfWidth),
// clipped to the frame, holds the most energy. Equal window sums are decided
// by the bin's own magnitude and then by the lower index, so an isolated spike
// is reported at its own position for every halfWidth. An empty frame yields 0.
func DominantBin(frame []float64, halfWidth int) int {
	if halfWidth < 0 {
		halfWidth = 0
	}

	best := 0
	bestSum := 0.0
	for i := range frame {
		lo := max(0, i-halfWidth)
		hi := min(len(frame), i+halfWidth)

		sum := 0.0
		if lo < hi {
			sum = floats.Sum(frame[lo:hi])
		}

		switch {
		case i == 0:
			bestSum = sum
		case sum > bestSum:
			best, bestSum = i, sum
		case sum == bestSum && frame[i] > frame[best]:
			best = i
		}
	}
	return best
}

// DominantTrace returns one dominant bin index per frame, in frame order. The
// values are bin indices, not Hz.
func DominantTrace(s *Spectrogram, halfWidth int) ([]float64, error) {
	if s == nil || len(s.Frames) == 0 {
		return nil, ErrEmptySpectrogram
	}
	if s.Bins() == 0 {
		return nil, fmt.Errorf("frames have no bins: %w", ErrEmptySpectrogram)
	}

	trace := make([]float64, len(s.Frames))
	for i, frame := range s.Frames {
		trace[i] = float64(DominantBin(frame, halfWidth))
	}
	return trace, nil
}

// ExtractTrace runs the full feature pipeline on a spectrogram in place:
// Nyquist truncation, grouping by groupSize, then dominant bin picking.
func ExtractTrace(s *Spectrogram, groupSize, halfWidth int) ([]float64, error) {
	if s == nil || len(s.Frames) == 0 {
		return nil, ErrEmptySpectrogram
	}
	if groupSize <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidGroupSize, groupSize)
	}

	if err := s.TruncateNyquist(); err != nil {
		return nil, err
	}
	if err := s.Group(groupSize); err != nil {
		return nil, err
	}
	return DominantTrace(s, halfWidth)
}
