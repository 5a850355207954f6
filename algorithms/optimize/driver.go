package optimize

import (
	"fmt"

	"github.com/ignazhar/radaurio/logging"
)

// Status is the state of a driver run. Running is the only non-terminal
// status.
type Status int

const (
	Running Status = iota
	ConvergedLowResidual
	IterationCapReached
	SolverFailed
)

func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case ConvergedLowResidual:
		return "converged_low_residual"
	case IterationCapReached:
		return "iteration_cap_reached"
	case SolverFailed:
		return "solver_failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Terminal reports whether the run has stopped
func (s Status) Terminal() bool {
	return s != Running
}

// MarshalText renders the status by name in JSON reports
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Stepper is one iterative solver. Next advances by one step and returns the
// current iterate and objective, or an error when no step can be computed.
type Stepper interface {
	X() []float64
	F() float64
	Next() ([]float64, float64, error)
}

// DriverSettings holds the termination policy
type DriverSettings struct {
	// MaxIterations stops the run once this many steps have succeeded
	MaxIterations int `json:"max_iterations"`
	// Tolerance stops the run once the objective falls below it
	Tolerance float64 `json:"tolerance"`
}

// DefaultDriverSettings returns the standard policy: 100 steps, objective 1e-6
func DefaultDriverSettings() DriverSettings {
	return DriverSettings{
		MaxIterations: 100,
		Tolerance:     1e-6,
	}
}

// State is the outcome of a driver run. X and F always describe the last
// successfully accepted iterate, also when the solver failed.
type State struct {
	X          []float64 `json:"x"`
	F          float64   `json:"f"`
	Iterations int       `json:"iterations"`
	Status     Status    `json:"status"`
	Err        error     `json:"-"`
}

// Driver runs a Stepper until the objective is small enough, the iteration
// cap is reached or the solver fails.
type Driver struct {
	stepper  Stepper
	settings DriverSettings
	logger   logging.Logger
}

// NewDriver creates a driver. Non-positive settings fall back to the defaults.
func NewDriver(stepper Stepper, settings DriverSettings) *Driver {
	defaults := DefaultDriverSettings()
	if settings.MaxIterations <= 0 {
		settings.MaxIterations = defaults.MaxIterations
	}
	if settings.Tolerance <= 0 {
		settings.Tolerance = defaults.Tolerance
	}

	return &Driver{
		stepper:  stepper,
		settings: settings,
		logger: logging.WithFields(logging.Fields{
			"component": "optimize_driver",
		}),
	}
}

// Run blocks until a terminal state is reached. It never returns an error of
// its own: a solver failure is reported through State.Status and State.Err.
func (d *Driver) Run() State {
	state := State{
		X:      d.stepper.X(),
		F:      d.stepper.F(),
		Status: Running,
	}

	d.logger.Debug("Starting optimization", logging.Fields{
		"x":              state.X,
		"f":              state.F,
		"max_iterations": d.settings.MaxIterations,
		"tolerance":      d.settings.Tolerance,
	})

	for state.Status == Running {
		x, fx, err := d.stepper.Next()
		if err != nil {
			state.Err = err
			state.Status = SolverFailed
			d.logger.Warn("Solver step failed, keeping last accepted iterate", logging.Fields{
				"iteration": state.Iterations,
				"error":     err.Error(),
			})
			break
		}

		state.X = x
		state.F = fx
		state.Iterations++

		d.logger.Debug("Solver step", logging.Fields{
			"iteration": state.Iterations,
			"x":         x,
			"f":         fx,
		})

		switch {
		case fx < d.settings.Tolerance:
			state.Status = ConvergedLowResidual
		case state.Iterations >= d.settings.MaxIterations:
			state.Status = IterationCapReached
		}
	}

	d.logger.Info("Optimization finished", logging.Fields{
		"status":     state.Status.String(),
		"iterations": state.Iterations,
		"f":          state.F,
		"x":          state.X,
	})

	return state
}
