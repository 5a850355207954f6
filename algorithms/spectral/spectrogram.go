package spectral

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/ignazhar/radaurio/logging"
)

var (
	// ErrEmptySpectrogram is returned when an operation needs at least one frame
	ErrEmptySpectrogram = errors.New("spectrogram has no frames")
	// ErrInvalidGroupSize is returned for a group size below one
	ErrInvalidGroupSize = errors.New("group size must be positive")
	// ErrEmptyBlocks is returned when no sample blocks are supplied
	ErrEmptyBlocks = errors.New("no sample blocks")
	// ErrInconsistentFrames is returned when frames differ in length
	ErrInconsistentFrames = errors.New("spectrum frames differ in length")
)

// Spectrogram is an ordered sequence of magnitude spectra, one per time step.
// All frames have the same number of bins.
type Spectrogram struct {
	// Frames holds one magnitude spectrum per time step
	Frames [][]float64 `json:"frames"`
	// BlocksPerFrame is how many decoded blocks were summed into each frame.
	// It starts at 1 and is multiplied by every Group call.
	BlocksPerFrame int `json:"blocks_per_frame"`
}

// NewSpectrogram wraps existing frames. Frames must be non-empty and equal in
// length.
func NewSpectrogram(frames [][]float64) (*Spectrogram, error) {
	if len(frames) == 0 {
		return nil, ErrEmptySpectrogram
	}
	bins := len(frames[0])
	for i, frame := range frames {
		if len(frame) != bins {
			return nil, fmt.Errorf("frame %d has %d bins, want %d: %w", i, len(frame), bins, ErrInconsistentFrames)
		}
	}
	return &Spectrogram{Frames: frames, BlocksPerFrame: 1}, nil
}

// BuildSpectrogram transforms every sample block into a magnitude spectrum.
// Blocks shorter than the longest one are zero-padded so that all frames
// share one length.
func BuildSpectrogram(blocks [][]float64, w WindowType) (*Spectrogram, error) {
	if len(blocks) == 0 {
		return nil, ErrEmptyBlocks
	}

	logger := logging.WithFields(logging.Fields{
		"component": "spectral",
		"function":  "BuildSpectrogram",
		"blocks":    len(blocks),
	})

	minLen, maxLen := len(blocks[0]), len(blocks[0])
	for _, block := range blocks[1:] {
		minLen = min(minLen, len(block))
		maxLen = max(maxLen, len(block))
	}
	if maxLen == 0 {
		return nil, fmt.Errorf("all %d blocks are empty: %w", len(blocks), ErrEmptyBlocks)
	}

	logger.Debug("Transforming sample blocks", logging.Fields{
		"min_block_len": minLen,
		"max_block_len": maxLen,
		"window":        string(w),
	})

	transform := NewFFT(w)
	frames := make([][]float64, len(blocks))
	for i, block := range blocks {
		magnitude, err := transform.Magnitude(block, maxLen)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", i, err)
		}
		frames[i] = magnitude
	}

	return &Spectrogram{Frames: frames, BlocksPerFrame: 1}, nil
}

// Len returns the number of frames
func (s *Spectrogram) Len() int {
	return len(s.Frames)
}

// Bins returns the number of bins per frame
func (s *Spectrogram) Bins() int {
	if len(s.Frames) == 0 {
		return 0
	}
	return len(s.Frames[0])
}

// Energy returns the sum of every magnitude in every frame
func (s *Spectrogram) Energy() float64 {
	total := 0.0
	for _, frame := range s.Frames {
		total += floats.Sum(frame)
	}
	return total
}

// TruncateNyquist keeps the first half of every frame. For real input the
// bins above Nyquist mirror the lower half.
func (s *Spectrogram) TruncateNyquist() error {
	if len(s.Frames) == 0 {
		return ErrEmptySpectrogram
	}
	for i, frame := range s.Frames {
		s.Frames[i] = frame[:len(frame)/2]
	}
	return nil
}

// Group sums non-overlapping runs of groupSize frames element-wise, in place.
// A trailing run shorter than groupSize is summed over the frames it has.
func (s *Spectrogram) Group(groupSize int) error {
	if groupSize <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidGroupSize, groupSize)
	}
	if len(s.Frames) == 0 {
		return ErrEmptySpectrogram
	}

	bins := s.Bins()
	grouped := make([][]float64, 0, (len(s.Frames)+groupSize-1)/groupSize)
	for start := 0; start < len(s.Frames); start += groupSize {
		end := min(start+groupSize, len(s.Frames))

		sum := make([]float64, bins)
		for _, frame := range s.Frames[start:end] {
			if len(frame) != bins {
				return ErrInconsistentFrames
			}
			floats.Add(sum, frame)
		}
		grouped = append(grouped, sum)
	}

	s.Frames = grouped
	s.BlocksPerFrame *= groupSize
	return nil
}
