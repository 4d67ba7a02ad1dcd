package event

// IndexedSet is the integer-indexed training matrix. Contexts, Outcomes,
// Counts and (when real-valued) Values are parallel arrays over events.
type IndexedSet struct {
	Contexts      [][]int
	Outcomes      []int
	Counts        []int
	Values        [][]float64
	PredLabels    []string
	OutcomeLabels []string
	PredCounts    []int
}

// NumEvents returns the number of (possibly merged) events.
func (s *IndexedSet) NumEvents() int { return len(s.Contexts) }

// NumPredicates returns the size of the predicate vocabulary.
func (s *IndexedSet) NumPredicates() int { return len(s.PredLabels) }

// NumOutcomes returns the number of distinct outcome labels.
func (s *IndexedSet) NumOutcomes() int { return len(s.OutcomeLabels) }

// Value returns the value of the j-th active predicate of event ei, which
// is 1 for binary features.
func (s *IndexedSet) Value(ei, j int) float64 {
	if s.Values == nil {
		return 1
	}
	return s.Values[ei][j]
}

// TotalCount returns the number of raw events the set represents.
func (s *IndexedSet) TotalCount() int {
	n := 0
	for _, c := range s.Counts {
		n += c
	}
	return n
}

// CheckOutcomes returns ErrInsufficientData unless the set has at least
// two outcome labels.
func (s *IndexedSet) CheckOutcomes() error {
	if s.NumOutcomes() < 2 {
		return ErrInsufficientData
	}
	return nil
}

func newIndexedSet(events []ComparableEvent, hasValues bool, predLabels, outcomeLabels []string, predCounts []int) *IndexedSet {
	set := &IndexedSet{
		Contexts:      make([][]int, len(events)),
		Outcomes:      make([]int, len(events)),
		Counts:        make([]int, len(events)),
		PredLabels:    predLabels,
		OutcomeLabels: outcomeLabels,
		PredCounts:    predCounts,
	}
	if hasValues {
		set.Values = make([][]float64, len(events))
	}
	for i, ev := range events {
		set.Contexts[i] = ev.Context
		set.Outcomes[i] = ev.Outcome
		set.Counts[i] = ev.SeenCount
		if hasValues {
			values := ev.Values
			if values == nil {
				values = make([]float64, len(ev.Context))
				for j := range values {
					values[j] = 1
				}
			}
			set.Values[i] = values
		}
	}
	return set
}
