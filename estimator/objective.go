package estimator

import (
	"github.com/ignazhar/radaurio/algorithms/optimize"
)

// Objective is the sum of squared differences between the model and an
// observed trace, as a function of (x0, d, v0). It satisfies
// optimize.LeastSquares.
type Objective struct {
	trace []float64
	tau0  float64
	c     float64
}

var _ optimize.LeastSquares = (*Objective)(nil)

// NewObjective closes over trace, tau0 and the speed of sound c
func NewObjective(trace []float64, tau0, c float64) *Objective {
	return &Objective{trace: trace, tau0: tau0, c: c}
}

func (o *Objective) model(x []float64) SourceModel {
	return SourceModel{Params: ParamsFromSlice(x), Tau0: o.tau0, C: o.c}
}

// Dims is always 3
func (o *Objective) Dims() int { return 3 }

// NumResiduals is the trace length
func (o *Objective) NumResiduals() int { return len(o.trace) }

// Residuals stores predict(x, t) - trace[t] into dst
func (o *Objective) Residuals(dst, x []float64) {
	m := o.model(x)
	for t, observed := range o.trace {
		dst[t] = m.Predict(float64(t)) - observed
	}
}

// Func returns the sum of squared residuals at x
func (o *Objective) Func(x []float64) float64 {
	m := o.model(x)
	sum := 0.0
	for t, observed := range o.trace {
		r := m.Predict(float64(t)) - observed
		sum += r * r
	}
	return sum
}
