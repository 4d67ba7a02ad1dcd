package qn

import (
	"log/slog"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// ErrNonFinite is returned when the objective is NaN or infinite at the
// starting point.
var ErrNonFinite = errors.New("qn: objective is not finite at the starting point")

const (
	// gradNormTol bounds ||g|| / max(1, ||x||) at convergence.
	gradNormTol = 1e-4
	// relValueTol bounds the relative objective change at convergence.
	relValueTol = 1e-4
)

// Iteration reports one accepted (or failed) minimizer step.
type Iteration struct {
	Number       int
	StepSize     float64
	OldValue     float64
	NewValue     float64
	FctEvalCount int
}

// Minimizer is a limited-memory quasi-Newton minimizer. With a positive
// L1 cost it runs OWL-QN on f(x) + L1Cost·||x||₁.
type Minimizer struct {
	iterations  int
	memory      int
	maxFctEval  int
	l1Cost      float64
	onIteration func(Iteration)
}

// NewMinimizer creates a minimizer from the optimization settings of cfg.
func NewMinimizer(cfg Config) *Minimizer {
	m := &Minimizer{
		iterations:  cfg.Iterations,
		memory:      cfg.Memory,
		maxFctEval:  cfg.MaxFunctionEvaluations,
		l1Cost:      cfg.L1Cost,
		onIteration: cfg.OnIteration,
	}
	if m.memory < 1 {
		m.memory = 15
	}
	if m.maxFctEval < 1 {
		m.maxFctEval = 30000
	}
	return m
}

// Minimize starts at the origin and returns the best point found.
func (m *Minimizer) Minimize(fn Function) ([]float64, error) {
	n := fn.Dimension()
	x0 := make([]float64, n)

	l1 := m.l1Cost > 0
	var lsr *LineSearchResult
	if l1 {
		lsr = NewConstrainedLineSearchResult(fn, x0, m.l1Cost)
	} else {
		lsr = NewLineSearchResult(fn, x0)
	}
	if v := lsr.ValueAtNext(); math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, errors.Wrapf(ErrNonFinite, "value %v", v)
	}

	slog.Debug("Minimizing",
		"dimension", n,
		"memory", m.memory,
		"l1", m.l1Cost,
		"value", lsr.ValueAtNext())

	mem := newLBFGS(n, m.memory)
	dir := make([]float64, n)
	for iter := 1; iter <= m.iterations; iter++ {
		g := lsr.GradAtNext()
		if l1 {
			g = lsr.PseudoGradAtNext()
		}
		mem.direction(dir, g)
		if l1 {
			for i := range dir {
				if dir[i]*g[i] >= 0 {
					dir[i] = 0
				}
			}
		}

		initialStep := 1.0
		if iter == 1 {
			norm := floats.Norm(dir, 2)
			if norm == 0 {
				slog.Debug("Minimizer started at a stationary point")
				break
			}
			initialStep = 1 / norm
		}

		if l1 {
			DoConstrainedLineSearch(fn, dir, lsr, m.l1Cost, initialStep)
		} else {
			DoLineSearch(fn, dir, lsr, initialStep)
		}

		it := Iteration{
			Number:       iter,
			StepSize:     lsr.StepSize(),
			OldValue:     lsr.ValueAtCurr(),
			NewValue:     lsr.ValueAtNext(),
			FctEvalCount: lsr.FctEvalCount(),
		}
		slog.Debug("QN iteration",
			"iteration", it.Number,
			"step", it.StepSize,
			"old", it.OldValue,
			"new", it.NewValue,
			"evaluations", it.FctEvalCount)
		if m.onIteration != nil {
			m.onIteration(it)
		}

		if lsr.StepSize() == 0 {
			slog.Warn("Line search failed, stopping", "iteration", iter, "value", lsr.ValueAtNext())
			break
		}
		mem.update(lsr.NextPoint(), lsr.CurrPoint(), lsr.GradAtNext(), lsr.GradAtCurr())

		if m.converged(lsr, l1) {
			slog.Debug("QN converged", "iteration", iter, "value", lsr.ValueAtNext())
			break
		}
	}

	return append([]float64(nil), lsr.NextPoint()...), nil
}

func (m *Minimizer) converged(lsr *LineSearchResult, l1 bool) bool {
	g := lsr.GradAtNext()
	if l1 {
		g = lsr.PseudoGradAtNext()
	}
	xNorm := math.Max(1, floats.Norm(lsr.NextPoint(), 2))
	if floats.Norm(g, 2)/xNorm < gradNormTol {
		return true
	}

	curr, next := lsr.ValueAtCurr(), lsr.ValueAtNext()
	if curr != 0 && math.Abs(curr-next)/math.Abs(curr) < relValueTol {
		return true
	}

	if lsr.FctEvalCount() > m.maxFctEval {
		slog.Debug("Reached function evaluation limit", "limit", m.maxFctEval)
		return true
	}
	return false
}
