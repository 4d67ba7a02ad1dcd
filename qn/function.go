// Package qn trains maxent models by minimizing the negative
// log-likelihood with L-BFGS, or OWL-QN when an L1 penalty is set.
package qn

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/happyhackingspace/maxent/event"
)

// Function is a differentiable objective.
type Function interface {
	Dimension() int
	ValueAt(x []float64) float64
	// GradientAt writes the gradient at x into grad.
	GradientAt(x []float64, grad []float64)
}

// NegLogLikelihood is the negative log-likelihood of an indexed training
// set under a maxent model, plus an optional L2 penalty l2·||x||². The
// parameter vector is laid out pred*numOutcomes+outcome.
type NegLogLikelihood struct {
	set         *event.IndexedSet
	numOutcomes int
	l2          float64
	scores      []float64
}

// NewNegLogLikelihood creates the objective for set.
func NewNegLogLikelihood(set *event.IndexedSet, l2 float64) *NegLogLikelihood {
	return &NegLogLikelihood{
		set:         set,
		numOutcomes: set.NumOutcomes(),
		l2:          l2,
		scores:      make([]float64, set.NumOutcomes()),
	}
}

// Dimension implements Function.
func (f *NegLogLikelihood) Dimension() int {
	return f.set.NumPredicates() * f.numOutcomes
}

// ValueAt implements Function.
func (f *NegLogLikelihood) ValueAt(x []float64) float64 {
	value := 0.0
	for ei := range f.set.Contexts {
		logZ := f.score(x, ei)
		value += float64(f.set.Counts[ei]) * (logZ - f.scores[f.set.Outcomes[ei]])
	}
	if f.l2 > 0 {
		value += f.l2 * floats.Dot(x, x)
	}
	return value
}

// GradientAt implements Function.
func (f *NegLogLikelihood) GradientAt(x []float64, grad []float64) {
	for i := range grad {
		grad[i] = 0
	}
	k := f.numOutcomes
	for ei, ctx := range f.set.Contexts {
		logZ := f.score(x, ei)
		for o := range f.scores {
			f.scores[o] = math.Exp(f.scores[o] - logZ)
		}
		f.scores[f.set.Outcomes[ei]] -= 1

		count := float64(f.set.Counts[ei])
		for j, pred := range ctx {
			cv := count * f.set.Value(ei, j)
			row := grad[pred*k : (pred+1)*k]
			floats.AddScaled(row, cv, f.scores)
		}
	}
	if f.l2 > 0 {
		floats.AddScaled(grad, 2*f.l2, x)
	}
}

// score fills f.scores with the raw outcome scores of event ei and returns
// their log-sum-exp.
func (f *NegLogLikelihood) score(x []float64, ei int) float64 {
	k := f.numOutcomes
	for o := range f.scores {
		f.scores[o] = 0
	}
	for j, pred := range f.set.Contexts[ei] {
		floats.AddScaled(f.scores, f.set.Value(ei, j), x[pred*k:(pred+1)*k])
	}
	return floats.LogSumExp(f.scores)
}
