package spectral

import (
	"fmt"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// FFT computes magnitude spectra of sample blocks
type FFT struct {
	window WindowType
}

// NewFFT creates a new FFT calculator applying the given taper to every
// block before transforming it. An empty WindowType means rectangular.
func NewFFT(w WindowType) *FFT {
	if w == "" {
		w = WindowRectangular
	}
	return &FFT{window: w}
}

// Compute computes Fast Fourier Transform using mjibson/go-dsp.
// The input is treated as a complex sequence with zero imaginary part.
func (f *FFT) Compute(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}

	// mjibson/go-dsp handles all sizes, including non-power-of-2
	return fft.FFTReal(x)
}

// Magnitude returns the magnitude spectrum of block, zero-padded to size
// samples. The result has exactly size bins.
func (f *FFT) Magnitude(block []float64, size int) ([]float64, error) {
	if size <= 0 {
		return nil, fmt.Errorf("transform size must be positive, got %d", size)
	}
	if len(block) > size {
		return nil, fmt.Errorf("block of %d samples exceeds transform size %d", len(block), size)
	}

	padded := make([]float64, size)
	copy(padded, block)

	if f.window != WindowRectangular && len(block) > 1 {
		fn, err := f.window.Func()
		if err != nil {
			return nil, err
		}
		// taper only the real samples, padding stays zero
		window.Apply(padded[:len(block)], fn)
	}

	spectrum := f.Compute(padded)

	magnitude := make([]float64, size)
	for i, c := range spectrum {
		magnitude[i] = cmplx.Abs(c)
	}

	return magnitude, nil
}
