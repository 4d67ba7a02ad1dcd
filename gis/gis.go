// Package gis trains maxent models with Generalized Iterative Scaling.
package gis

import (
	"log/slog"
	"math"
	"sync"

	"github.com/happyhackingspace/maxent/event"
	"github.com/happyhackingspace/maxent/model"
)

// Algorithm is the tag stored in models trained by this package.
const Algorithm = "GIS"

// Config holds GIS training hyperparameters.
type Config struct {
	Iterations int
	// Threads is the number of workers computing model expectations.
	Threads int
	// Smoothing makes every (predicate, outcome) pair a parameter; pairs
	// never seen in training get SmoothingObservation as observed count.
	Smoothing            bool
	SmoothingObservation float64
	// LLThreshold stops training once the log-likelihood improves by less.
	LLThreshold float64
	OnIteration func(Iteration)
}

// Iteration reports the state of training after one GIS step.
type Iteration struct {
	Number        int
	LogLikelihood float64
	Accuracy      float64
}

// DefaultConfig returns 100 iterations, one thread, no smoothing and an
// LL threshold of 1e-4.
func DefaultConfig() Config {
	return Config{
		Iterations:           100,
		Threads:              1,
		SmoothingObservation: 0.1,
		LLThreshold:          1e-4,
	}
}

// Trainer runs GIS over an indexed training set.
type Trainer struct {
	cfg Config
}

// NewTrainer creates a GIS trainer.
func NewTrainer(cfg Config) *Trainer {
	if cfg.Threads < 1 {
		cfg.Threads = 1
	}
	return &Trainer{cfg: cfg}
}

// params is the flat parameter state, indexed pred*numOutcomes+outcome.
type params struct {
	numOutcomes int
	weights     []float64
	logObserved []float64
	active      []bool
}

// Train fits a model to set. It returns event.ErrInsufficientData when the
// set has fewer than two outcomes.
func (t *Trainer) Train(set *event.IndexedSet) (*model.Model, error) {
	if err := set.CheckOutcomes(); err != nil {
		return nil, err
	}

	numPreds, numOutcomes := set.NumPredicates(), set.NumOutcomes()
	correction := correctionConstant(set)
	p := t.initParams(set)

	threads := min(t.cfg.Threads, max(set.NumEvents(), 1))
	slog.Debug("Training GIS model",
		"events", set.NumEvents(),
		"predicates", numPreds,
		"outcomes", numOutcomes,
		"correction", correction,
		"threads", threads)

	workers := make([]*worker, threads)
	for i := range workers {
		workers[i] = &worker{expected: make([]float64, numPreds*numOutcomes), probs: make([]float64, numOutcomes)}
	}
	expected := make([]float64, numPreds*numOutcomes)

	prevLL := 0.0
	for i := 1; i <= t.cfg.Iterations; i++ {
		ll, acc := expectations(set, p, workers, expected)
		p.update(expected, correction)

		slog.Debug("GIS iteration", "iteration", i, "loglikelihood", ll, "accuracy", acc)
		if t.cfg.OnIteration != nil {
			t.cfg.OnIteration(Iteration{Number: i, LogLikelihood: ll, Accuracy: acc})
		}

		if i > 1 {
			if ll < prevLL {
				slog.Warn("GIS model diverging, stopping", "iteration", i, "loglikelihood", ll, "previous", prevLL)
				break
			}
			if ll-prevLL < t.cfg.LLThreshold {
				slog.Debug("GIS converged", "iteration", i, "loglikelihood", ll)
				break
			}
		}
		prevLL = ll
	}

	return model.New(Algorithm,
		append([]string(nil), set.PredLabels...),
		append([]string(nil), set.OutcomeLabels...),
		p.weights, correction)
}

// correctionConstant is the largest total feature mass of any event.
func correctionConstant(set *event.IndexedSet) float64 {
	c := 0.0
	for ei, ctx := range set.Contexts {
		mass := 0.0
		for j := range ctx {
			mass += set.Value(ei, j)
		}
		c = math.Max(c, mass)
	}
	if c == 0 {
		return 1
	}
	return c
}

func (t *Trainer) initParams(set *event.IndexedSet) *params {
	numOutcomes := set.NumOutcomes()
	n := set.NumPredicates() * numOutcomes
	observed := make([]float64, n)
	for ei, ctx := range set.Contexts {
		oc := set.Outcomes[ei]
		count := float64(set.Counts[ei])
		for j, pred := range ctx {
			observed[pred*numOutcomes+oc] += count * set.Value(ei, j)
		}
	}

	p := &params{
		numOutcomes: numOutcomes,
		weights:     make([]float64, n),
		logObserved: make([]float64, n),
		active:      make([]bool, n),
	}
	for i, obs := range observed {
		switch {
		case obs > 0:
			p.active[i] = true
			p.logObserved[i] = math.Log(obs)
		case t.cfg.Smoothing && t.cfg.SmoothingObservation > 0:
			p.active[i] = true
			p.logObserved[i] = math.Log(t.cfg.SmoothingObservation)
		}
	}
	return p
}

// update applies one scaling step in log space. Parameters with zero
// expected count are left unchanged.
func (p *params) update(expected []float64, correction float64) {
	for i, ok := range p.active {
		if !ok || expected[i] == 0 {
			continue
		}
		p.weights[i] += (p.logObserved[i] - math.Log(expected[i])) / correction
	}
}

type worker struct {
	expected []float64
	probs    []float64
	ll       float64
	correct  int
}

// run scores events [from, to) and accumulates their expectations into
// the worker's own buffers.
func (w *worker) run(set *event.IndexedSet, p *params, from, to int) {
	for i := range w.expected {
		w.expected[i] = 0
	}
	w.ll, w.correct = 0, 0
	k := p.numOutcomes
	for ei := from; ei < to; ei++ {
		ctx := set.Contexts[ei]
		for o := range w.probs {
			w.probs[o] = 0
		}
		for j, pred := range ctx {
			v := set.Value(ei, j)
			row := p.weights[pred*k : (pred+1)*k]
			for o, wt := range row {
				w.probs[o] += wt * v
			}
		}
		model.Softmax(w.probs)

		count := float64(set.Counts[ei])
		for j, pred := range ctx {
			v := set.Value(ei, j)
			base := pred * k
			for o, prob := range w.probs {
				if p.active[base+o] {
					w.expected[base+o] += count * v * prob
				}
			}
		}

		oc := set.Outcomes[ei]
		w.ll += count * math.Log(w.probs[oc])
		best := 0
		for o := 1; o < k; o++ {
			if w.probs[o] > w.probs[best] {
				best = o
			}
		}
		if best == oc {
			w.correct += set.Counts[ei]
		}
	}
}

// expectations fans the events out over the workers in contiguous ranges,
// waits for all of them and sums their buffers in worker order. It returns
// the training log-likelihood and accuracy under the current weights.
func expectations(set *event.IndexedSet, p *params, workers []*worker, expected []float64) (float64, float64) {
	n := set.NumEvents()
	chunk := (n + len(workers) - 1) / len(workers)

	var wg sync.WaitGroup
	for i, w := range workers {
		w := w
		from := min(i*chunk, n)
		to := min(from+chunk, n)
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.run(set, p, from, to)
		}()
	}
	wg.Wait()

	for i := range expected {
		expected[i] = 0
	}
	ll, correct := 0.0, 0
	for _, w := range workers {
		for i, e := range w.expected {
			expected[i] += e
		}
		ll += w.ll
		correct += w.correct
	}
	total := set.TotalCount()
	if total == 0 {
		return ll, 0
	}
	return ll, float64(correct) / float64(total)
}
