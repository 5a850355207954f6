package optimize

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Solver failures. Next returns one of these when it cannot produce a step;
// the current iterate is left untouched.
var (
	ErrNonFiniteGradient = errors.New("trust region: gradient is not finite")
	ErrStationaryPoint   = errors.New("trust region: gradient vanished")
	ErrSubproblemFailed  = errors.New("trust region: no step fits the region")
	ErrNoModelDecrease   = errors.New("trust region: local model predicts no decrease")
	ErrRadiusCollapsed   = errors.New("trust region: radius collapsed")
)

// TrustRegionSettings tunes the radius update rule. Zero fields take the
// defaults from DefaultTrustRegionSettings.
type TrustRegionSettings struct {
	// InitialRadius is the starting radius; zero means max(|x0|, 1)
	InitialRadius float64
	// MaxRadius caps radius growth
	MaxRadius float64
	// AcceptRatio is the minimum actual/predicted reduction to take a step
	AcceptRatio float64
	// ShrinkRatio below which the radius shrinks to a quarter of the step
	ShrinkRatio float64
	// ExpandRatio above which a boundary step doubles the radius
	ExpandRatio float64
	// MinRadius is the collapse threshold relative to max(|x|, 1)
	MinRadius float64
}

// DefaultTrustRegionSettings returns the standard radius update constants
func DefaultTrustRegionSettings() TrustRegionSettings {
	return TrustRegionSettings{
		MaxRadius:   1e10,
		AcceptRatio: 1e-4,
		ShrinkRatio: 0.25,
		ExpandRatio: 0.75,
		MinRadius:   1e-12,
	}
}

const (
	// maxDamping bounds the Levenberg-Marquardt parameter search
	maxDamping = 1e20
	// minCurvature floors the diagonal scaling of the damping term
	minCurvature = 1e-12
	// dampingBisections limits the refinement of the damping parameter
	dampingBisections = 60
)

// TrustRegion minimises a Problem inside a box. Each call to Next performs
// one iteration: build a quadratic model at the current iterate, solve it
// inside the current radius, project onto the box and accept or reject the
// candidate by comparing actual and predicted reduction.
type TrustRegion struct {
	problem  Problem
	lsq      LeastSquares
	bounds   Bounds
	settings TrustRegionSettings

	x      []float64
	fx     float64
	radius float64
}

// NewTrustRegion prepares a solver starting at x0, which must lie inside
// bounds. settings may be nil.
func NewTrustRegion(p Problem, bounds Bounds, x0 []float64, settings *TrustRegionSettings) (*TrustRegion, error) {
	n := p.Dims()
	if len(x0) != n {
		return nil, fmt.Errorf("initial point has %d components, problem has %d: %w", len(x0), n, ErrDimensionMismatch)
	}
	if err := bounds.Validate(n); err != nil {
		return nil, err
	}
	if !bounds.Contains(x0) {
		return nil, fmt.Errorf("%v: %w", x0, ErrInfeasibleStart)
	}

	s := DefaultTrustRegionSettings()
	if settings != nil {
		if settings.InitialRadius > 0 {
			s.InitialRadius = settings.InitialRadius
		}
		if settings.MaxRadius > 0 {
			s.MaxRadius = settings.MaxRadius
		}
		if settings.AcceptRatio > 0 {
			s.AcceptRatio = settings.AcceptRatio
		}
		if settings.ShrinkRatio > 0 {
			s.ShrinkRatio = settings.ShrinkRatio
		}
		if settings.ExpandRatio > 0 {
			s.ExpandRatio = settings.ExpandRatio
		}
		if settings.MinRadius > 0 {
			s.MinRadius = settings.MinRadius
		}
	}

	tr := &TrustRegion{
		problem:  p,
		bounds:   bounds,
		settings: s,
		x:        append([]float64(nil), x0...),
	}
	if lsq, ok := p.(LeastSquares); ok {
		tr.lsq = lsq
	}

	tr.fx = p.Func(tr.x)
	tr.radius = s.InitialRadius
	if tr.radius == 0 {
		tr.radius = math.Max(floats.Norm(tr.x, 2), 1)
	}

	return tr, nil
}

// X returns a copy of the current iterate
func (tr *TrustRegion) X() []float64 {
	return append([]float64(nil), tr.x...)
}

// F returns the objective at the current iterate
func (tr *TrustRegion) F() float64 {
	return tr.fx
}

// Radius returns the current trust-region radius
func (tr *TrustRegion) Radius() float64 {
	return tr.radius
}

// Next performs one trust-region iteration and returns the (possibly
// unchanged) iterate and its objective. A rejected candidate is not an error.
func (tr *TrustRegion) Next() ([]float64, float64, error) {
	n := len(tr.x)

	grad := make([]float64, n)
	hess := mat.NewSymDense(n, nil)
	tr.model(grad, hess)

	for _, g := range grad {
		if math.IsNaN(g) || math.IsInf(g, 0) {
			return tr.X(), tr.fx, ErrNonFiniteGradient
		}
	}
	if floats.Norm(grad, 2) == 0 {
		return tr.X(), tr.fx, ErrStationaryPoint
	}

	step, err := tr.solveSubproblem(grad, hess)
	if err != nil {
		return tr.X(), tr.fx, err
	}

	candidate := make([]float64, n)
	floats.AddTo(candidate, tr.x, step)
	tr.bounds.Clamp(candidate)
	floats.SubTo(step, candidate, tr.x)

	predicted := predictedReduction(grad, hess, step)
	if !(predicted > 0) {
		return tr.X(), tr.fx, ErrNoModelDecrease
	}

	fc := tr.problem.Func(candidate)
	if math.IsNaN(fc) || math.IsInf(fc, 0) {
		fc = math.Inf(1)
	}
	rho := (tr.fx - fc) / predicted

	stepNorm := floats.Norm(step, 2)
	switch {
	case rho < tr.settings.ShrinkRatio:
		tr.radius = 0.25 * stepNorm
	case rho > tr.settings.ExpandRatio && stepNorm >= 0.9*tr.radius:
		tr.radius = math.Min(2*tr.radius, tr.settings.MaxRadius)
	}
	if tr.radius < tr.settings.MinRadius*math.Max(1, floats.Norm(tr.x, 2)) {
		return tr.X(), tr.fx, ErrRadiusCollapsed
	}

	if rho > tr.settings.AcceptRatio {
		copy(tr.x, candidate)
		tr.fx = fc
	}

	return tr.X(), tr.fx, nil
}

// model fills the gradient and the Hessian of the local quadratic model at
// the current iterate. Least-squares problems get the Gauss-Newton model
// J^T r, J^T J from a central-difference Jacobian of the residuals.
func (tr *TrustRegion) model(grad []float64, hess *mat.SymDense) {
	if tr.lsq != nil {
		m, n := tr.lsq.NumResiduals(), len(tr.x)

		r := make([]float64, m)
		tr.lsq.Residuals(r, tr.x)

		jac := mat.NewDense(m, n, nil)
		fd.Jacobian(jac, tr.lsq.Residuals, tr.x, &fd.JacobianSettings{Formula: fd.Central})

		mat.NewVecDense(n, grad).MulVec(jac.T(), mat.NewVecDense(m, r))
		hess.SymOuterK(1, jac.T())
		return
	}

	settings := &fd.Settings{Formula: fd.Central}
	fd.Gradient(grad, tr.problem.Func, tr.x, settings)
	fd.Hessian(hess, tr.problem.Func, tr.x, settings)
}

// solveSubproblem returns the step minimising the quadratic model within the
// current radius. The undamped Newton step is used when it fits; otherwise the
// smallest Levenberg-Marquardt damping that brings the step inside is found
// by expanding and then bisecting on a log scale.
func (tr *TrustRegion) solveSubproblem(grad []float64, hess *mat.SymDense) ([]float64, error) {
	fits := func(step []float64, ok bool) bool {
		return ok && floats.Norm(step, 2) <= tr.radius
	}

	if step, ok := dampedStep(grad, hess, 0); fits(step, ok) {
		return step, nil
	}

	lo, hi := 0.0, 1.0
	best, ok := dampedStep(grad, hess, hi)
	for !fits(best, ok) {
		lo = hi
		hi *= 10
		if hi > maxDamping {
			return nil, ErrSubproblemFailed
		}
		best, ok = dampedStep(grad, hess, hi)
	}

	for bisection := 0; bisection < dampingBisections; bisection++ {
		mid := hi / 2
		if lo > 0 {
			mid = math.Sqrt(lo * hi)
		}

		if step, ok := dampedStep(grad, hess, mid); fits(step, ok) {
			hi = mid
			best = step
		} else {
			lo = mid
		}

		if hi-lo <= 1e-3*hi {
			break
		}
	}

	return best, nil
}

// dampedStep solves (H + lambda*diag(H)) p = -g. ok is false when the damped
// matrix is not positive definite or the solution is not finite.
func dampedStep(grad []float64, hess *mat.SymDense, lambda float64) ([]float64, bool) {
	n := len(grad)

	damped := mat.NewSymDense(n, nil)
	damped.CopySym(hess)
	if lambda > 0 {
		for i := 0; i < n; i++ {
			damped.SetSym(i, i, hess.At(i, i)+lambda*math.Max(hess.At(i, i), minCurvature))
		}
	}

	var chol mat.Cholesky
	if !chol.Factorize(damped) {
		return nil, false
	}

	rhs := mat.NewVecDense(n, nil)
	rhs.ScaleVec(-1, mat.NewVecDense(n, grad))

	var step mat.VecDense
	if err := chol.SolveVecTo(&step, rhs); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, false
		}
	}

	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = step.AtVec(i)
		if math.IsNaN(out[i]) || math.IsInf(out[i], 0) {
			return nil, false
		}
	}
	return out, true
}

// predictedReduction is m(0) - m(p) = -(g.p + p.H.p/2)
func predictedReduction(grad []float64, hess *mat.SymDense, step []float64) float64 {
	p := mat.NewVecDense(len(step), step)
	hp := mat.NewVecDense(len(step), nil)
	hp.MulVec(hess, p)
	return -(floats.Dot(grad, step) + 0.5*mat.Dot(p, hp))
}
