package estimator

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ignazhar/radaurio/algorithms/optimize"
	"github.com/ignazhar/radaurio/algorithms/spectral"
	"github.com/ignazhar/radaurio/estimator/config"
	"github.com/ignazhar/radaurio/logging"
)

var (
	// ErrEmptyTrace is returned when there is nothing to fit
	ErrEmptyTrace = errors.New("frequency trace is empty")
	// ErrInvalidTimeStep is returned when tau0 is not a positive finite number
	ErrInvalidTimeStep = errors.New("time step must be positive")
)

// Result is a fitted model plus the diagnostics of the run that produced it.
// A Result is returned for every terminal state; Status tells them apart.
type Result struct {
	Model        SourceModel     `json:"model"`
	Objective    float64         `json:"objective"`
	Iterations   int             `json:"iterations"`
	Status       optimize.Status `json:"status"`
	Error        string          `json:"error,omitempty"`
	Err          error           `json:"-"`
	TraceLength  int             `json:"trace_length"`
	RMSResidual  float64         `json:"rms_residual"`
	MeanResidual float64         `json:"mean_residual"`
}

// Converged reports whether the objective fell below the tolerance
func (r *Result) Converged() bool {
	return r.Status == optimize.ConvergedLowResidual
}

// Estimator turns sample blocks into a frequency trace and fits a source
// model to it.
type Estimator struct {
	cfg    config.Config
	logger logging.Logger
}

// New creates an estimator. The configuration is validated here so that the
// later calls only fail on their own inputs.
func New(cfg config.Config) (*Estimator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Estimator{
		cfg: cfg,
		logger: logging.WithFields(logging.Fields{
			"component": "estimator",
		}),
	}, nil
}

// Config returns the configuration the estimator was built with
func (e *Estimator) Config() config.Config {
	return e.cfg
}

// ExtractTrace transforms the blocks, groups the spectra in runs of
// groupSize and returns the dominant bin of every grouped frame along with
// the grouped spectrogram it was read from.
func (e *Estimator) ExtractTrace(blocks [][]float64, groupSize int) ([]float64, *spectral.Spectrogram, error) {
	if groupSize <= 0 {
		return nil, nil, fmt.Errorf("group size %d: %w", groupSize, spectral.ErrInvalidGroupSize)
	}

	s, err := spectral.BuildSpectrogram(blocks, e.cfg.WindowType())
	if err != nil {
		return nil, nil, err
	}

	trace, err := spectral.ExtractTrace(s, groupSize, e.cfg.PeakHalfWidth)
	if err != nil {
		return nil, nil, err
	}

	e.logger.Debug("Extracted frequency trace", logging.Fields{
		"function":     "ExtractTrace",
		"blocks":       len(blocks),
		"group_size":   groupSize,
		"trace_length": len(trace),
		"bins":         s.Bins(),
	})

	return trace, s, nil
}

// Fit estimates (x0, d, v0) from trace, whose steps are tau0 seconds apart.
// Only precondition violations are returned as errors: a solver failure or
// an exhausted iteration budget still yields a Result holding the last
// accepted parameters.
func (e *Estimator) Fit(trace []float64, tau0 float64) (*Result, error) {
	if len(trace) == 0 {
		return nil, ErrEmptyTrace
	}
	if !(tau0 > 0) || math.IsInf(tau0, 0) {
		return nil, fmt.Errorf("tau0 = %v: %w", tau0, ErrInvalidTimeStep)
	}

	logger := e.logger.WithFields(logging.Fields{
		"function":     "Fit",
		"trace_length": len(trace),
		"tau0":         tau0,
	})

	objective := NewObjective(trace, tau0, e.cfg.SpeedOfSound)
	bounds := optimize.Rect(objective.Dims(), e.cfg.LowerBound, e.cfg.UpperBound)

	solver, err := optimize.NewTrustRegion(objective, bounds, e.cfg.InitialGuess[:], nil)
	if err != nil {
		return nil, err
	}

	state := optimize.NewDriver(solver, optimize.DriverSettings{
		MaxIterations: e.cfg.MaxIterations,
		Tolerance:     e.cfg.ObjectiveTolerance,
	}).Run()

	model := SourceModel{
		Params: ParamsFromSlice(state.X),
		Tau0:   tau0,
		C:      e.cfg.SpeedOfSound,
	}

	result := &Result{
		Model:       model,
		Objective:   state.F,
		Iterations:  state.Iterations,
		Status:      state.Status,
		Err:         state.Err,
		TraceLength: len(trace),
	}
	if state.Err != nil {
		result.Error = state.Err.Error()
	}
	result.MeanResidual, result.RMSResidual = residualStats(model, trace)

	fields := logging.Fields{
		"status":     state.Status.String(),
		"iterations": state.Iterations,
		"objective":  state.F,
		"x0":         model.Params.X0,
		"d":          model.Params.D,
		"v0":         model.Params.V0,
	}
	if result.Converged() {
		logger.Info("Model fitted", fields)
	} else {
		logger.Warn("Model fit did not converge, returning best estimate", fields)
	}

	return result, nil
}

// residualStats returns the mean and root mean square of model - trace
func residualStats(m SourceModel, trace []float64) (mean, rms float64) {
	residuals := m.Curve(len(trace))
	floats.Sub(residuals, trace)

	mean = stat.Mean(residuals, nil)
	rms = math.Sqrt(floats.Dot(residuals, residuals) / float64(len(residuals)))
	return mean, rms
}

// TimeStep is the duration covered by one grouped frame: the recording
// duration split evenly across blocks, times the group size.
func TimeStep(duration float64, blockCount, groupSize int) (float64, error) {
	if blockCount <= 0 || groupSize <= 0 {
		return 0, fmt.Errorf("%d blocks in groups of %d: %w", blockCount, groupSize, ErrInvalidTimeStep)
	}
	tau0 := duration / float64(blockCount) * float64(groupSize)
	if !(tau0 > 0) || math.IsInf(tau0, 0) {
		return 0, fmt.Errorf("duration %v over %d blocks: %w", duration, blockCount, ErrInvalidTimeStep)
	}
	return tau0, nil
}
