package maxent

import (
	"io"
	"log/slog"
	"sort"
	"strconv"

	"github.com/pkg/errors"

	"github.com/happyhackingspace/maxent/event"
	"github.com/happyhackingspace/maxent/model"
)

// EvalResult holds classification accuracy over a set of events.
type EvalResult struct {
	Accuracy float64
	Correct  int
	Total    int
	// Confusion counts predictions per gold outcome:
	// Confusion[gold][predicted].
	Confusion map[string]map[string]int
}

func newEvalResult() *EvalResult {
	return &EvalResult{Confusion: make(map[string]map[string]int)}
}

func (r *EvalResult) add(gold, predicted string) {
	row := r.Confusion[gold]
	if row == nil {
		row = make(map[string]int)
		r.Confusion[gold] = row
	}
	row[predicted]++
	if gold == predicted {
		r.Correct++
	}
	r.Total++
}

func (r *EvalResult) merge(o *EvalResult) {
	for gold, row := range o.Confusion {
		for predicted, n := range row {
			if r.Confusion[gold] == nil {
				r.Confusion[gold] = make(map[string]int)
			}
			r.Confusion[gold][predicted] += n
		}
	}
	r.Correct += o.Correct
	r.Total += o.Total
}

func (r *EvalResult) finish() {
	if r.Total > 0 {
		r.Accuracy = float64(r.Correct) / float64(r.Total)
	}
}

// Evaluate classifies every event of stream with m and compares the best
// outcome with the event's label. Malformed events are skipped.
func Evaluate(m *model.Model, stream event.Stream) (*EvalResult, error) {
	if err := stream.Reset(); err != nil {
		return nil, errors.Wrap(err, "maxent: reset stream")
	}
	result := newEvalResult()
	for {
		ev, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "maxent: read event")
		}
		if err := ev.Validate(); err != nil {
			slog.Warn("Skipping malformed event", "error", err)
			continue
		}
		var probs []float64
		if ev.Values != nil {
			probs = m.EvaluateValues(ev.Context, ev.Values)
		} else {
			probs = m.Evaluate(ev.Context)
		}
		result.add(ev.Outcome, m.BestOutcome(probs))
	}
	result.finish()
	return result, nil
}

// CrossValidate trains and evaluates nFolds models, each tested on one
// fold of events and trained on the others. Events sharing a group label
// always land in the same fold; a nil groups puts each event in its own
// group.
func CrossValidate(events []event.Event, groups []string, nFolds int, cfg TrainConfig) (*EvalResult, error) {
	if groups == nil {
		groups = make([]string, len(events))
		for i := range groups {
			groups[i] = strconv.Itoa(i)
		}
	}
	if len(groups) != len(events) {
		return nil, errors.Errorf("maxent: %d groups for %d events", len(groups), len(events))
	}
	if nFolds < 2 {
		return nil, errors.Errorf("maxent: need at least 2 folds, got %d", nFolds)
	}

	folds := groupKFold(groups, nFolds)
	total := newEvalResult()
	for i, testIdx := range folds {
		testSet := makeTestSet(len(events), testIdx)
		train := filterByIndex(events, testSet, false)
		test := filterByIndex(events, testSet, true)

		m, err := Train(event.NewSliceStream(train), cfg)
		if err != nil {
			return nil, errors.Wrapf(err, "maxent: fold %d", i)
		}
		r, err := Evaluate(m, event.NewSliceStream(test))
		if err != nil {
			return nil, err
		}
		slog.Debug("Evaluated fold", "fold", i, "correct", r.Correct, "total", r.Total)
		total.merge(r)
	}
	total.finish()
	return total, nil
}

// groupKFold assigns groups to folds round-robin in sorted group order and
// returns the event indices of each fold.
func groupKFold(groups []string, nFolds int) [][]int {
	uniqueGroups := make(map[string]bool)
	for _, g := range groups {
		uniqueGroups[g] = true
	}
	sortedGroups := make([]string, 0, len(uniqueGroups))
	for g := range uniqueGroups {
		sortedGroups = append(sortedGroups, g)
	}
	sort.Strings(sortedGroups)

	if nFolds > len(sortedGroups) {
		nFolds = len(sortedGroups)
	}

	groupToFold := make(map[string]int)
	for i, g := range sortedGroups {
		groupToFold[g] = i % nFolds
	}

	folds := make([][]int, nFolds)
	for i, g := range groups {
		fold := groupToFold[g]
		folds[fold] = append(folds[fold], i)
	}
	return folds
}

func makeTestSet(n int, testIdx []int) []bool {
	set := make([]bool, n)
	for _, i := range testIdx {
		set[i] = true
	}
	return set
}

func filterByIndex(events []event.Event, testSet []bool, isTest bool) []event.Event {
	var out []event.Event
	for i := range events {
		if testSet[i] == isTest {
			out = append(out, events[i])
		}
	}
	return out
}
