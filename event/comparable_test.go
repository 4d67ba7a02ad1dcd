package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewComparableEventSortsValuesInParallel(t *testing.T) {
	ce := NewComparableEvent(1, []int{5, 1, 3}, []float64{0.5, 0.1, 0.3})
	assert.Equal(t, []int{1, 3, 5}, ce.Context)
	assert.Equal(t, []float64{0.1, 0.3, 0.5}, ce.Values)
	assert.Equal(t, 1, ce.SeenCount)
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b ComparableEvent
		want int
	}{
		{"outcome first", NewComparableEvent(0, []int{9}, nil), NewComparableEvent(1, []int{1}, nil), -1},
		{"ids", NewComparableEvent(0, []int{1, 2}, nil), NewComparableEvent(0, []int{1, 3}, nil), -1},
		{"shorter prefix", NewComparableEvent(0, []int{1, 2, 3}, nil), NewComparableEvent(0, []int{1, 2}, nil), 1},
		{"equal", NewComparableEvent(2, []int{3, 1}, nil), NewComparableEvent(2, []int{1, 3}, nil), 0},
		{"binary before valued", NewComparableEvent(0, []int{1}, nil), NewComparableEvent(0, []int{1}, []float64{1}), -1},
		{"values", NewComparableEvent(0, []int{1}, []float64{2}), NewComparableEvent(0, []int{1}, []float64{1}), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Compare(&tt.b))
			assert.Equal(t, -tt.want, tt.b.Compare(&tt.a))
		})
	}
}

func TestSortAndMergeSumsCounts(t *testing.T) {
	a := NewComparableEvent(0, []int{1}, nil)
	a.SeenCount = 3
	events := []ComparableEvent{
		NewComparableEvent(1, []int{2}, nil),
		a,
		NewComparableEvent(0, []int{1}, nil),
	}
	merged := SortAndMerge(events)
	require.Len(t, merged, 2)
	assert.Equal(t, 0, merged[0].Outcome)
	assert.Equal(t, 4, merged[0].SeenCount)
	assert.Equal(t, 1, merged[1].SeenCount)

	assert.Empty(t, SortAndMerge(nil))
}

func TestEventValidate(t *testing.T) {
	assert.NoError(t, (&Event{Outcome: "A", Context: []string{"x"}}).Validate())
	assert.NoError(t, (&Event{Outcome: "A"}).Validate())
	assert.ErrorIs(t, (&Event{Outcome: " ", Context: []string{"x"}}).Validate(), ErrMalformedEvent)
	assert.ErrorIs(t, (&Event{Outcome: "A", Context: []string{"x"}, Values: []float64{1, 2}}).Validate(), ErrMalformedEvent)
	assert.ErrorIs(t, (&Event{Outcome: "A", Context: []string{"x"}, Values: []float64{-1}}).Validate(), ErrMalformedEvent)
}

func TestEventString(t *testing.T) {
	assert.Equal(t, "A x y", (&Event{Outcome: "A", Context: []string{"x", "y"}}).String())
	assert.Equal(t, "B x=1.5", (&Event{Outcome: "B", Context: []string{"x"}, Values: []float64{1.5}}).String())
}
