// Package optimize implements a box-constrained trust-region minimizer and
// the driver loop that runs it to a terminal state.
package optimize

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrDimensionMismatch is returned when vectors and the problem disagree on size
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrInfeasibleStart is returned when the initial point lies outside the bounds
	ErrInfeasibleStart = errors.New("initial point outside bounds")
	// ErrInvalidBounds is returned when a lower bound exceeds its upper bound
	ErrInvalidBounds = errors.New("invalid bounds")
)

// Problem is a scalar objective over a fixed number of parameters.
type Problem interface {
	// Dims returns the number of parameters
	Dims() int
	// Func evaluates the objective at x
	Func(x []float64) float64
}

// LeastSquares is a Problem whose objective is the sum of squared residuals.
// The trust-region solver uses the residuals to build a Gauss-Newton model
// instead of differencing the scalar objective twice.
type LeastSquares interface {
	Problem
	// NumResiduals returns the length of the residual vector
	NumResiduals() int
	// Residuals stores the residual vector at x into dst
	Residuals(dst, x []float64)
}

// Bounds is a per-component box constraint Lower[i] <= x[i] <= Upper[i].
type Bounds struct {
	Lower []float64 `json:"lower"`
	Upper []float64 `json:"upper"`
}

// Rect returns the box [lo, hi] in every one of dims components.
func Rect(dims int, lo, hi float64) Bounds {
	b := Bounds{
		Lower: make([]float64, dims),
		Upper: make([]float64, dims),
	}
	for i := 0; i < dims; i++ {
		b.Lower[i] = lo
		b.Upper[i] = hi
	}
	return b
}

// Unbounded returns a box that constrains nothing.
func Unbounded(dims int) Bounds {
	return Rect(dims, math.Inf(-1), math.Inf(1))
}

// Dims returns the number of components
func (b Bounds) Dims() int {
	return len(b.Lower)
}

// Validate checks that the box has dims components and is non-empty.
func (b Bounds) Validate(dims int) error {
	if len(b.Lower) != dims || len(b.Upper) != dims {
		return fmt.Errorf("bounds have %d/%d components, want %d: %w",
			len(b.Lower), len(b.Upper), dims, ErrDimensionMismatch)
	}
	for i := range b.Lower {
		if math.IsNaN(b.Lower[i]) || math.IsNaN(b.Upper[i]) || b.Lower[i] > b.Upper[i] {
			return fmt.Errorf("component %d: [%v, %v]: %w", i, b.Lower[i], b.Upper[i], ErrInvalidBounds)
		}
	}
	return nil
}

// Contains reports whether x lies inside the box
func (b Bounds) Contains(x []float64) bool {
	if len(x) != len(b.Lower) {
		return false
	}
	for i, v := range x {
		if !(v >= b.Lower[i] && v <= b.Upper[i]) {
			return false
		}
	}
	return true
}

// Clamp projects x onto the box in place
func (b Bounds) Clamp(x []float64) {
	for i := range x {
		x[i] = math.Min(math.Max(x[i], b.Lower[i]), b.Upper[i])
	}
}
