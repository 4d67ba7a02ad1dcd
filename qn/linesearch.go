package qn

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	// armijoC is the sufficient decrease constant.
	armijoC = 1e-4
	// backtrack shrinks the step after a failed trial.
	backtrack = 0.5
	// minStepSize ends a line search as failed.
	minStepSize = 1e-10
)

// LineSearchResult is the workspace shared by the minimizer and the line
// search. It holds the current and next points with their values and
// gradients, and is mutated in place on every search.
type LineSearchResult struct {
	stepSize     float64
	valueAtCurr  float64
	valueAtNext  float64
	currPoint    []float64
	nextPoint    []float64
	gradAtCurr   []float64
	gradAtNext   []float64
	pseudoGrad   []float64
	signVector   []float64
	fctEvalCount int
}

// NewLineSearchResult evaluates fn at x0 and returns a workspace whose
// next point is x0.
func NewLineSearchResult(fn Function, x0 []float64) *LineSearchResult {
	n := len(x0)
	lsr := &LineSearchResult{
		currPoint:  make([]float64, n),
		nextPoint:  append([]float64(nil), x0...),
		gradAtCurr: make([]float64, n),
		gradAtNext: make([]float64, n),
	}
	lsr.valueAtNext = fn.ValueAt(lsr.nextPoint)
	fn.GradientAt(lsr.nextPoint, lsr.gradAtNext)
	lsr.fctEvalCount = 1
	return lsr
}

// NewConstrainedLineSearchResult is NewLineSearchResult for an objective
// with an additional l1Cost·||x||₁ term. The stored values include the
// penalty and the pseudo-gradient is filled in.
func NewConstrainedLineSearchResult(fn Function, x0 []float64, l1Cost float64) *LineSearchResult {
	lsr := NewLineSearchResult(fn, x0)
	lsr.valueAtNext += l1Cost * floats.Norm(lsr.nextPoint, 1)
	lsr.pseudoGrad = make([]float64, len(x0))
	lsr.signVector = make([]float64, len(x0))
	pseudoGradient(lsr.pseudoGrad, lsr.nextPoint, lsr.gradAtNext, l1Cost)
	return lsr
}

// StepSize returns the accepted step, or 0 after a failed search.
func (r *LineSearchResult) StepSize() float64 { return r.stepSize }

// ValueAtCurr returns the objective at the current point.
func (r *LineSearchResult) ValueAtCurr() float64 { return r.valueAtCurr }

// ValueAtNext returns the objective at the accepted next point.
func (r *LineSearchResult) ValueAtNext() float64 { return r.valueAtNext }

// CurrPoint returns the current point. The slice is owned by the workspace.
func (r *LineSearchResult) CurrPoint() []float64 { return r.currPoint }

// NextPoint returns the accepted next point.
func (r *LineSearchResult) NextPoint() []float64 { return r.nextPoint }

// GradAtCurr returns the gradient at the current point.
func (r *LineSearchResult) GradAtCurr() []float64 { return r.gradAtCurr }

// GradAtNext returns the gradient at the next point.
func (r *LineSearchResult) GradAtNext() []float64 { return r.gradAtNext }

// PseudoGradAtNext returns the OWL-QN pseudo-gradient at the next point,
// or nil for an unconstrained search.
func (r *LineSearchResult) PseudoGradAtNext() []float64 { return r.pseudoGrad }

// SignVector returns the orthant chosen for the last constrained search.
func (r *LineSearchResult) SignVector() []float64 { return r.signVector }

// FctEvalCount returns the number of objective evaluations so far.
func (r *LineSearchResult) FctEvalCount() int { return r.fctEvalCount }

// advance makes the next point current. The old current buffers become
// scratch space for the next trial point.
func (r *LineSearchResult) advance() {
	r.currPoint, r.nextPoint = r.nextPoint, r.currPoint
	r.gradAtCurr, r.gradAtNext = r.gradAtNext, r.gradAtCurr
	r.valueAtCurr = r.valueAtNext
}

// reject restores the current point as the next one after a failed search.
func (r *LineSearchResult) reject() {
	r.stepSize = 0
	copy(r.nextPoint, r.currPoint)
	copy(r.gradAtNext, r.gradAtCurr)
	r.valueAtNext = r.valueAtCurr
}

// DoLineSearch runs a backtracking Armijo search along direction from the
// next point of lsr, starting at initialStep. On success lsr holds the
// accepted point as next and the starting point as current. When no step
// above the minimum satisfies the condition, or direction is not a
// descent direction, the step is 0 and the point is unchanged.
func DoLineSearch(fn Function, direction []float64, lsr *LineSearchResult, initialStep float64) {
	lsr.advance()
	x, next := lsr.currPoint, lsr.nextPoint
	dirGrad := floats.Dot(direction, lsr.gradAtCurr)
	if dirGrad >= 0 {
		lsr.reject()
		return
	}

	step := initialStep
	for {
		floats.AddScaledTo(next, x, step, direction)
		value := fn.ValueAt(next)
		lsr.fctEvalCount++
		if !math.IsNaN(value) && !math.IsInf(value, 0) && value <= lsr.valueAtCurr+armijoC*step*dirGrad {
			lsr.valueAtNext = value
			break
		}
		step *= backtrack
		if step < minStepSize {
			lsr.reject()
			return
		}
	}
	lsr.stepSize = step
	fn.GradientAt(next, lsr.gradAtNext)
}

// DoConstrainedLineSearch is the OWL-QN variant of DoLineSearch for the
// objective f(x) + l1Cost·||x||₁. Trial points are projected onto the
// orthant of the starting point (given by the sign vector), and sufficient
// decrease is measured along the projected displacement using the
// pseudo-gradient.
func DoConstrainedLineSearch(fn Function, direction []float64, lsr *LineSearchResult, l1Cost, initialStep float64) {
	lsr.advance()
	x, next := lsr.currPoint, lsr.nextPoint
	pg, sign := lsr.pseudoGrad, lsr.signVector

	for i, xi := range x {
		if xi == 0 {
			sign[i] = -pg[i]
		} else {
			sign[i] = xi
		}
	}

	step := initialStep
	for {
		floats.AddScaledTo(next, x, step, direction)
		for i := range next {
			if next[i]*sign[i] <= 0 {
				next[i] = 0
			}
		}
		value := fn.ValueAt(next) + l1Cost*floats.Norm(next, 1)
		lsr.fctEvalCount++

		dirGrad := 0.0
		for i := range next {
			dirGrad += (next[i] - x[i]) * pg[i]
		}
		if !math.IsNaN(value) && !math.IsInf(value, 0) && value <= lsr.valueAtCurr+armijoC*dirGrad {
			lsr.valueAtNext = value
			break
		}
		step *= backtrack
		if step < minStepSize {
			lsr.reject()
			return
		}
	}
	lsr.stepSize = step
	fn.GradientAt(next, lsr.gradAtNext)
	pseudoGradient(pg, next, lsr.gradAtNext, l1Cost)
}

// pseudoGradient writes the OWL-QN pseudo-gradient of f(x)+l1·||x||₁ into
// dst. At zero coordinates it picks the one-sided derivative that allows
// descent, or 0 when neither does.
func pseudoGradient(dst, x, grad []float64, l1 float64) {
	for i := range x {
		switch {
		case x[i] > 0:
			dst[i] = grad[i] + l1
		case x[i] < 0:
			dst[i] = grad[i] - l1
		case grad[i]+l1 < 0:
			dst[i] = grad[i] + l1
		case grad[i]-l1 > 0:
			dst[i] = grad[i] - l1
		default:
			dst[i] = 0
		}
	}
}
