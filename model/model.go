// Package model holds trained maxent models: scoring contexts and
// persisting weights.
package model

import (
	"fmt"
	"math"
	"strings"

	"github.com/pkg/errors"

	"github.com/happyhackingspace/maxent/predicate"
)

// ErrCorruptModel is returned when model data has an inconsistent shape.
var ErrCorruptModel = errors.New("model: corrupt model")

const indexLoadFactor = 0.7

// Model is an immutable trained classifier. Weights are laid out
// predicate-major: the weight of (p, k) lives at p*NumOutcomes()+k.
type Model struct {
	algorithm  string
	correction float64
	predicates []string
	outcomes   []string
	weights    []float64
	index      *predicate.IndexTable
}

// New creates a model from trained parameters. The slices are owned by
// the model afterwards.
func New(algorithm string, predicates, outcomes []string, weights []float64, correction float64) (*Model, error) {
	if len(outcomes) == 0 {
		return nil, errors.Wrap(ErrCorruptModel, "no outcomes")
	}
	if len(weights) != len(predicates)*len(outcomes) {
		return nil, errors.Wrapf(ErrCorruptModel, "%d weights for %d predicates and %d outcomes",
			len(weights), len(predicates), len(outcomes))
	}
	seen := make(map[string]struct{}, len(outcomes))
	for _, o := range outcomes {
		if _, dup := seen[o]; dup {
			return nil, errors.Wrapf(ErrCorruptModel, "duplicate outcome %q", o)
		}
		seen[o] = struct{}{}
	}
	index, err := predicate.NewIndexTable(predicates, indexLoadFactor)
	if err != nil {
		return nil, errors.Wrapf(ErrCorruptModel, "%v", err)
	}
	return &Model{
		algorithm:  algorithm,
		correction: correction,
		predicates: predicates,
		outcomes:   outcomes,
		weights:    weights,
		index:      index,
	}, nil
}

// Algorithm returns the name of the trainer that produced the model.
func (m *Model) Algorithm() string { return m.algorithm }

// CorrectionConstant returns the GIS correction constant, or 0.
func (m *Model) CorrectionConstant() float64 { return m.correction }

// NumOutcomes returns the number of outcome labels.
func (m *Model) NumOutcomes() int { return len(m.outcomes) }

// NumPredicates returns the size of the predicate vocabulary.
func (m *Model) NumPredicates() int { return len(m.predicates) }

// Outcome returns the label of outcome id i.
func (m *Model) Outcome(i int) string { return m.outcomes[i] }

// Index returns the id of an outcome label, or -1.
func (m *Model) Index(label string) int {
	for i, o := range m.outcomes {
		if o == label {
			return i
		}
	}
	return -1
}

// Outcomes returns a copy of the outcome labels in id order.
func (m *Model) Outcomes() []string {
	return append([]string(nil), m.outcomes...)
}

// Predicates returns a copy of the predicate labels in id order.
func (m *Model) Predicates() []string {
	return append([]string(nil), m.predicates...)
}

// Weight returns the weight of predicate p for outcome k.
func (m *Model) Weight(p, k int) float64 {
	return m.weights[p*len(m.outcomes)+k]
}

// EvaluateIDs scores predicate ids with optional values (nil means 1 for
// every predicate) and writes the outcome distribution into probs, which
// is allocated when it is too short.
func (m *Model) EvaluateIDs(ids []int, values []float64, probs []float64) []float64 {
	n := len(m.outcomes)
	if len(probs) < n {
		probs = make([]float64, n)
	}
	probs = probs[:n]
	for k := range probs {
		probs[k] = 0
	}
	for i, p := range ids {
		v := 1.0
		if values != nil {
			v = values[i]
		}
		row := m.weights[p*n : (p+1)*n]
		for k, w := range row {
			probs[k] += w * v
		}
	}
	Softmax(probs)
	return probs
}

// Evaluate returns the outcome distribution for a binary context. Unknown
// predicates are ignored.
func (m *Model) Evaluate(context []string) []float64 {
	return m.EvaluateValues(context, nil)
}

// EvaluateValues is Evaluate for real-valued contexts. When values is
// non-nil and its length differs from context, no feature is trusted and
// the uniform distribution is returned.
func (m *Model) EvaluateValues(context []string, values []float64) []float64 {
	if values != nil && len(values) != len(context) {
		return m.EvaluateIDs(nil, nil, nil)
	}
	ids := make([]int, 0, len(context))
	var vals []float64
	if values != nil {
		vals = make([]float64, 0, len(context))
	}
	for i, c := range context {
		id, ok := m.index.Get(c)
		if !ok {
			continue
		}
		ids = append(ids, id)
		if values != nil {
			vals = append(vals, values[i])
		}
	}
	return m.EvaluateIDs(ids, vals, nil)
}

// BestOutcome returns the label with the highest probability. Ties go to
// the lowest outcome id.
func (m *Model) BestOutcome(probs []float64) string {
	best := 0
	for k := 1; k < len(probs); k++ {
		if probs[k] > probs[best] {
			best = k
		}
	}
	return m.outcomes[best]
}

// AllOutcomes renders the distribution as "label[p] label[p] ...".
func (m *Model) AllOutcomes(probs []float64) string {
	var sb strings.Builder
	for k, p := range probs {
		if k > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%s[%.4f]", m.outcomes[k], p)
	}
	return sb.String()
}

// Softmax normalizes raw scores in place into a probability distribution,
// subtracting the maximum first.
func Softmax(scores []float64) {
	if len(scores) == 0 {
		return
	}
	maxScore := scores[0]
	for _, s := range scores[1:] {
		if s > maxScore {
			maxScore = s
		}
	}
	sum := 0.0
	for i, s := range scores {
		e := math.Exp(s - maxScore)
		scores[i] = e
		sum += e
	}
	for i := range scores {
		scores[i] /= sum
	}
}
