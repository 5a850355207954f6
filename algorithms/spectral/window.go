package spectral

import (
	"fmt"
	"strings"

	"github.com/mjibson/go-dsp/window"
)

// WindowType names a taper applied to each block before the transform
type WindowType string

const (
	WindowRectangular WindowType = "rectangular"
	WindowHann        WindowType = "hann"
	WindowHamming     WindowType = "hamming"
	WindowBlackman    WindowType = "blackman"
	WindowBartlett    WindowType = "bartlett"
	WindowFlatTop     WindowType = "flattop"
)

// ParseWindowType validates a window name. Matching is case-insensitive and
// the empty string selects the rectangular window.
func ParseWindowType(s string) (WindowType, error) {
	w := WindowType(strings.ToLower(strings.TrimSpace(s)))
	if w == "" {
		return WindowRectangular, nil
	}
	if _, err := w.Func(); err != nil {
		return "", err
	}
	return w, nil
}

// Func returns the go-dsp coefficient generator for w
func (w WindowType) Func() (func(int) []float64, error) {
	switch w {
	case WindowRectangular:
		return window.Rectangular, nil
	case WindowHann:
		return window.Hann, nil
	case WindowHamming:
		return window.Hamming, nil
	case WindowBlackman:
		return window.Blackman, nil
	case WindowBartlett:
		return window.Bartlett, nil
	case WindowFlatTop:
		return window.FlatTop, nil
	default:
		return nil, fmt.Errorf("unsupported window type %q", string(w))
	}
}
