package event

import (
	"sort"
)

// ComparableEvent is the integer-indexed form of an Event. Context holds
// sorted predicate ids; Values, if set, is kept aligned with Context.
type ComparableEvent struct {
	Outcome   int
	Context   []int
	Values    []float64
	SeenCount int
}

// NewComparableEvent sorts context (and values in parallel) and returns an
// event seen once. The slices are taken over, not copied.
func NewComparableEvent(outcome int, context []int, values []float64) ComparableEvent {
	ce := ComparableEvent{Outcome: outcome, Context: context, Values: values, SeenCount: 1}
	if values == nil {
		sort.Ints(context)
	} else {
		sort.Sort(byPredicate{context, values})
	}
	return ce
}

type byPredicate struct {
	ids    []int
	values []float64
}

func (b byPredicate) Len() int           { return len(b.ids) }
func (b byPredicate) Less(i, j int) bool { return b.ids[i] < b.ids[j] }
func (b byPredicate) Swap(i, j int) {
	b.ids[i], b.ids[j] = b.ids[j], b.ids[i]
	b.values[i], b.values[j] = b.values[j], b.values[i]
}

// Compare orders events by outcome, then context ids lexicographically,
// then context length, then values. Two events compare equal only when
// their values are identical too, so events carrying different real
// values are never merged.
func (e *ComparableEvent) Compare(o *ComparableEvent) int {
	if e.Outcome != o.Outcome {
		return cmpInt(e.Outcome, o.Outcome)
	}
	n := min(len(e.Context), len(o.Context))
	for i := 0; i < n; i++ {
		if e.Context[i] != o.Context[i] {
			return cmpInt(e.Context[i], o.Context[i])
		}
	}
	if len(e.Context) != len(o.Context) {
		return cmpInt(len(e.Context), len(o.Context))
	}

	switch {
	case e.Values == nil && o.Values == nil:
		return 0
	case e.Values == nil:
		return -1
	case o.Values == nil:
		return 1
	}
	for i := range e.Values {
		if e.Values[i] != o.Values[i] {
			if e.Values[i] < o.Values[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// SortAndMerge sorts events and collapses exact duplicates into one event
// whose SeenCount is the sum of the merged counts.
func SortAndMerge(events []ComparableEvent) []ComparableEvent {
	if len(events) == 0 {
		return events
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Compare(&events[j]) < 0
	})

	merged := events[:1]
	for i := 1; i < len(events); i++ {
		last := &merged[len(merged)-1]
		if last.Compare(&events[i]) == 0 {
			last.SeenCount += events[i].SeenCount
			continue
		}
		merged = append(merged, events[i])
	}
	return merged
}
