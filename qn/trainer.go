package qn

import (
	"github.com/happyhackingspace/maxent/event"
	"github.com/happyhackingspace/maxent/model"
)

// Algorithm is the tag stored in models trained by this package.
const Algorithm = "QN"

// Config holds quasi-Newton training hyperparameters.
type Config struct {
	Iterations int
	// Memory is the number of correction pairs kept by L-BFGS.
	Memory int
	// L1Cost > 0 switches to OWL-QN.
	L1Cost                 float64
	L2Cost                 float64
	MaxFunctionEvaluations int
	OnIteration            func(Iteration)
}

// DefaultConfig returns 100 iterations, memory 15, no regularization and
// at most 30000 function evaluations.
func DefaultConfig() Config {
	return Config{
		Iterations:             100,
		Memory:                 15,
		MaxFunctionEvaluations: 30000,
	}
}

// Trainer fits maxent models by quasi-Newton minimization of the
// negative log-likelihood.
type Trainer struct {
	cfg Config
}

// NewTrainer creates a quasi-Newton trainer.
func NewTrainer(cfg Config) *Trainer {
	return &Trainer{cfg: cfg}
}

// Train fits a model to set. It returns event.ErrInsufficientData when the
// set has fewer than two outcomes.
func (t *Trainer) Train(set *event.IndexedSet) (*model.Model, error) {
	if err := set.CheckOutcomes(); err != nil {
		return nil, err
	}
	fn := NewNegLogLikelihood(set, t.cfg.L2Cost)
	x, err := NewMinimizer(t.cfg).Minimize(fn)
	if err != nil {
		return nil, err
	}
	return model.New(Algorithm,
		append([]string(nil), set.PredLabels...),
		append([]string(nil), set.OutcomeLabels...),
		x, 0)
}
