// Package config holds the tunables of a motion estimate run.
package config

import (
	"errors"
	"fmt"
	"math"

	"github.com/ignazhar/radaurio/algorithms/spectral"
	"github.com/ignazhar/radaurio/logging"
)

const (
	DefaultGroupSize          = 10
	DefaultPeakHalfWidth      = spectral.DefaultPeakHalfWidth
	DefaultWindow             = string(spectral.WindowRectangular)
	DefaultSpeedOfSound       = 343.0
	DefaultLowerBound         = -1e5
	DefaultUpperBound         = 1e5
	DefaultMaxIterations      = 100
	DefaultObjectiveTolerance = 1e-6
	DefaultLogLevel           = "info"
)

// DefaultInitialGuess is the starting (x0, d, v0)
var DefaultInitialGuess = [3]float64{200, 40, 50}

// Config configures trace extraction and model fitting
type Config struct {
	// Trace extraction
	GroupSize     int    `json:"group_size"`
	PeakHalfWidth int    `json:"peak_half_width"`
	Window        string `json:"window"` // "rectangular", "hann", "hamming", "blackman", "bartlett", "flattop"
	MonoDownmix   bool   `json:"mono_downmix"`
	RemoveDC      bool   `json:"remove_dc"`

	// Model
	SpeedOfSound float64 `json:"speed_of_sound"` // m/s

	// Optimizer
	LowerBound         float64    `json:"lower_bound"`
	UpperBound         float64    `json:"upper_bound"`
	InitialGuess       [3]float64 `json:"initial_guess"` // x0, d, v0
	MaxIterations      int        `json:"max_iterations"`
	ObjectiveTolerance float64    `json:"objective_tolerance"`

	// Output
	LogLevel  string `json:"log_level"`
	ChartPath string `json:"chart_path,omitempty"`
}

// Default returns the configuration used when nothing is overridden
func Default() Config {
	return Config{
		GroupSize:          DefaultGroupSize,
		PeakHalfWidth:      DefaultPeakHalfWidth,
		Window:             DefaultWindow,
		SpeedOfSound:       DefaultSpeedOfSound,
		LowerBound:         DefaultLowerBound,
		UpperBound:         DefaultUpperBound,
		InitialGuess:       DefaultInitialGuess,
		MaxIterations:      DefaultMaxIterations,
		ObjectiveTolerance: DefaultObjectiveTolerance,
		LogLevel:           DefaultLogLevel,
	}
}

// Validate checks ranges and cross-field consistency. Every problem found is
// reported, not only the first.
func (c Config) Validate() error {
	var errs []error

	if c.GroupSize <= 0 {
		errs = append(errs, fmt.Errorf("config: group_size must be positive, got %d", c.GroupSize))
	}
	if c.PeakHalfWidth < 0 {
		errs = append(errs, fmt.Errorf("config: peak_half_width must not be negative, got %d", c.PeakHalfWidth))
	}
	if _, err := spectral.ParseWindowType(c.Window); err != nil {
		errs = append(errs, fmt.Errorf("config: %w", err))
	}
	if !(c.SpeedOfSound > 0) || math.IsInf(c.SpeedOfSound, 0) {
		errs = append(errs, fmt.Errorf("config: speed_of_sound must be positive and finite, got %v", c.SpeedOfSound))
	}
	if !(c.LowerBound < c.UpperBound) {
		errs = append(errs, fmt.Errorf("config: lower_bound %v must be below upper_bound %v", c.LowerBound, c.UpperBound))
	}
	for i, v := range c.InitialGuess {
		if !(v >= c.LowerBound && v <= c.UpperBound) {
			errs = append(errs, fmt.Errorf("config: initial_guess[%d] = %v outside [%v, %v]", i, v, c.LowerBound, c.UpperBound))
		}
	}
	if c.MaxIterations <= 0 {
		errs = append(errs, fmt.Errorf("config: max_iterations must be positive, got %d", c.MaxIterations))
	}
	if !(c.ObjectiveTolerance > 0) {
		errs = append(errs, fmt.Errorf("config: objective_tolerance must be positive, got %v", c.ObjectiveTolerance))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("config: %w", err))
	}
	return errors.Join(errs...)
}

// WindowType returns the parsed taper. Call Validate first.
func (c Config) WindowType() spectral.WindowType {
	w, err := spectral.ParseWindowType(c.Window)
	if err != nil {
		return spectral.WindowRectangular
	}
	return w
}
