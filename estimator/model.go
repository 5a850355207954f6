// Package estimator fits the motion of a sound source passing a stationary
// observer to the dominant-frequency trace of a recording.
package estimator

import (
	"math"
)

// SpeedOfSound is the speed of sound in air at 20°C, in m/s
const SpeedOfSound = 343.0

// Params is the motion of the source: initial offset along the line of
// travel, perpendicular distance to the observer, and constant velocity.
type Params struct {
	X0 float64 `json:"x0"`
	D  float64 `json:"d"`
	V0 float64 `json:"v0"`
}

// ParamsFromSlice reads (x0, d, v0) from the first three components of x
func ParamsFromSlice(x []float64) Params {
	return Params{X0: x[0], D: x[1], V0: x[2]}
}

// Slice returns the parameters in solver order
func (p Params) Slice() []float64 {
	return []float64{p.X0, p.D, p.V0}
}

// SourceModel predicts the observable for one trace step. Tau0 is the
// duration of a trace step in seconds and C the speed of sound.
type SourceModel struct {
	Params Params  `json:"params"`
	Tau0   float64 `json:"tau0"`
	C      float64 `json:"speed_of_sound"`
}

// NewSourceModel builds a model with the standard speed of sound
func NewSourceModel(p Params, tau0 float64) SourceModel {
	return SourceModel{Params: p, Tau0: tau0, C: SpeedOfSound}
}

// Predict returns the observable at trace index t. The source covers
// v0*tau0 during one step; the prediction is C over the step duration
// stretched by the change in path length.
func (m SourceModel) Predict(t float64) float64 {
	p := m.Params
	beta := p.X0 + p.V0*t
	alpha := beta + p.V0*m.Tau0

	a := math.Hypot(p.D, alpha)
	b := math.Hypot(p.D, beta)

	return m.C / (m.Tau0*m.C + a - b)
}

// Curve evaluates Predict at indices 0..n-1
func (m SourceModel) Curve(n int) []float64 {
	out := make([]float64, max(n, 0))
	for i := range out {
		out[i] = m.Predict(float64(i))
	}
	return out
}
