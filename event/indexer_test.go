package event

import (
	"fmt"
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memIndexer(cfg IndexConfig) (*TwoPassIndexer, afero.Fs) {
	fs := afero.NewMemMapFs()
	return NewTwoPassIndexer(cfg, WithFs(fs), WithTempDir("/tmp")), fs
}

func TestSortAndMergeDuplicates(t *testing.T) {
	const n, m = 7, 5
	var events []Event
	for i := 0; i < n; i++ {
		events = append(events, Event{Outcome: "V", Context: []string{"verb=join", "prep=as"}})
	}
	for i := 0; i < m; i++ {
		events = append(events, Event{Outcome: "N", Context: []string{fmt.Sprintf("noun=%d", i), "prep=as"}})
	}

	for _, x := range []Indexer{
		NewOnePassIndexer(IndexConfig{Cutoff: 1, SortAndMerge: true}),
		func() Indexer { x, _ := memIndexer(IndexConfig{Cutoff: 1, SortAndMerge: true}); return x }(),
	} {
		set, err := x.Index(NewSliceStream(events))
		require.NoError(t, err)
		require.Equal(t, m+1, set.NumEvents())
		assert.Equal(t, n+m, set.TotalCount())

		vid := -1
		for i, l := range set.OutcomeLabels {
			if l == "V" {
				vid = i
			}
		}
		require.NotEqual(t, -1, vid)
		for i, oc := range set.Outcomes {
			if oc == vid {
				assert.Equal(t, n, set.Counts[i])
			} else {
				assert.Equal(t, 1, set.Counts[i])
			}
		}
	}
}

func TestNoMergeKeepsEveryEvent(t *testing.T) {
	events := []Event{
		{Outcome: "A", Context: []string{"x"}},
		{Outcome: "A", Context: []string{"x"}},
		{Outcome: "B", Context: []string{"x"}},
	}
	x, _ := memIndexer(IndexConfig{Cutoff: 1})
	set, err := x.Index(NewSliceStream(events))
	require.NoError(t, err)
	assert.Equal(t, 3, set.NumEvents())
	assert.Equal(t, []int{0, 0, 1}, set.Outcomes)
}

func TestCutoffExcludesRareFeatures(t *testing.T) {
	events := []Event{
		{Outcome: "A", Context: []string{"common", "rare"}},
		{Outcome: "B", Context: []string{"common", "twice"}},
		{Outcome: "A", Context: []string{"common", "twice"}},
	}
	for name, x := range map[string]Indexer{
		"one-pass": NewOnePassIndexer(IndexConfig{Cutoff: 2, SortAndMerge: true}),
		"two-pass": func() Indexer { x, _ := memIndexer(IndexConfig{Cutoff: 2, SortAndMerge: true}); return x }(),
	} {
		set, err := x.Index(NewSliceStream(events))
		require.NoError(t, err, name)
		assert.NotContains(t, set.PredLabels, "rare", name)
		rareFree := true
		for _, ctx := range set.Contexts {
			for _, id := range ctx {
				if id >= set.NumPredicates() {
					rareFree = false
				}
			}
		}
		assert.True(t, rareFree, name)
	}
}

func TestTwoPassVocabulary(t *testing.T) {
	events := []Event{
		{Outcome: "A", Context: []string{"b", "a"}},
		{Outcome: "B", Context: []string{"a", "c"}},
		{Outcome: "A", Context: []string{"c", "b"}},
	}
	x, _ := memIndexer(IndexConfig{Cutoff: 2})
	set, err := x.Index(NewSliceStream(events))
	require.NoError(t, err)

	assert.Equal(t, []string{"b", "a", "c"}, set.PredLabels)
	assert.Equal(t, []int{2, 2, 2}, set.PredCounts)
	assert.Equal(t, []string{"A", "B"}, set.OutcomeLabels)
	assert.Equal(t, []int{0, 1}, set.Contexts[0])
	assert.Equal(t, []int{1, 2}, set.Contexts[1])
	assert.Equal(t, []int{0, 2}, set.Contexts[2])
}

func TestOnePassAdmitsAtThreshold(t *testing.T) {
	events := []Event{
		{Outcome: "A", Context: []string{"f", "g"}},
		{Outcome: "B", Context: []string{"f", "g"}},
		{Outcome: "A", Context: []string{"f"}},
	}
	set, err := NewOnePassIndexer(IndexConfig{Cutoff: 2}).Index(NewSliceStream(events))
	require.NoError(t, err)

	// The first event had no admitted features and is dropped; its
	// outcome label is still registered.
	assert.Equal(t, 2, set.NumEvents())
	assert.Equal(t, []string{"A", "B"}, set.OutcomeLabels)
	assert.Equal(t, []string{"f", "g"}, set.PredLabels)
	assert.Equal(t, []int{3, 2}, set.PredCounts)
}

func TestZeroFeatureEventsDropped(t *testing.T) {
	events := []Event{
		{Outcome: "A", Context: []string{"x", "x"}},
		{Outcome: "B", Context: []string{"y"}},
		{Outcome: "A", Context: []string{"x"}},
	}
	x, _ := memIndexer(IndexConfig{Cutoff: 2, SortAndMerge: true})
	set, err := x.Index(NewSliceStream(events))
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, set.PredLabels)
	assert.Equal(t, []string{"A", "B"}, set.OutcomeLabels)
	require.Equal(t, 2, set.NumEvents())
	assert.Equal(t, []int{0}, set.Contexts[0])
	assert.Equal(t, []int{0, 0}, set.Contexts[1])
}

func TestMalformedEventsSkipped(t *testing.T) {
	events := []Event{
		{Outcome: "A", Context: []string{"x"}, Values: []float64{1}},
		{Outcome: "", Context: []string{"x"}},
		{Outcome: "B", Context: []string{"x"}, Values: []float64{-2}},
		{Outcome: "B", Context: []string{"x", "y"}, Values: []float64{1}},
		{Outcome: "B", Context: []string{"y"}, Values: []float64{0.5}},
	}
	twoPass, _ := memIndexer(IndexConfig{Cutoff: 1})
	for name, x := range map[string]Indexer{
		"two-pass": twoPass,
		"one-pass": NewOnePassIndexer(IndexConfig{Cutoff: 1}),
	} {
		set, err := x.Index(NewSliceStream(events))
		require.NoError(t, err, name)
		assert.Equal(t, 2, set.NumEvents(), name)
		assert.Equal(t, []string{"A", "B"}, set.OutcomeLabels, name)
		require.NotNil(t, set.Values, name)
		assert.Equal(t, []float64{0.5}, set.Values[1], name)
	}
}

func TestEventStringTable(t *testing.T) {
	tests := []struct {
		ev   Event
		want string
	}{
		{Event{Outcome: "A", Context: []string{"x", "y"}}, "A x y"},
		{Event{Outcome: "A", Context: []string{"x", "y"}, Values: []float64{1, 0.5}}, "A x=1 y=0.5"},
		{Event{Outcome: "B", Context: []string{"x", "y"}, Values: []float64{1}}, "B x=1 y"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.ev.String())
	}
}

func TestRealValuesNotMergedWhenDifferent(t *testing.T) {
	events := []Event{
		{Outcome: "A", Context: []string{"x", "y"}, Values: []float64{1, 2}},
		{Outcome: "A", Context: []string{"y", "x"}, Values: []float64{2, 1}},
		{Outcome: "A", Context: []string{"x", "y"}, Values: []float64{3, 2}},
		{Outcome: "B", Context: []string{"x"}},
	}
	set, err := NewOnePassIndexer(IndexConfig{Cutoff: 1, SortAndMerge: true}).Index(NewSliceStream(events))
	require.NoError(t, err)

	// The first two events are the same after sorting; the third differs
	// only in its values and stays separate.
	assert.Equal(t, 3, set.NumEvents())
	assert.Equal(t, []int{2, 1, 1}, set.Counts)
	assert.Equal(t, []float64{1, 2}, set.Values[0])
	assert.Equal(t, []float64{3, 2}, set.Values[1])
	assert.Equal(t, []float64{1}, set.Values[2])
}

func TestTwoPassRemovesTempFile(t *testing.T) {
	x, fs := memIndexer(IndexConfig{Cutoff: 1})
	_, err := x.Index(NewSliceStream([]Event{{Outcome: "A", Context: []string{"x"}}}))
	require.NoError(t, err)

	infos, err := afero.ReadDir(fs, "/tmp")
	require.NoError(t, err)
	assert.Empty(t, infos)
}

type failingStream struct{ n int }

func (f *failingStream) Next() (*Event, error) {
	if f.n == 0 {
		return nil, errors.New("disk on fire")
	}
	f.n--
	return &Event{Outcome: "A", Context: []string{"x"}}, nil
}

func (f *failingStream) Reset() error { return nil }

func TestStreamErrorPropagates(t *testing.T) {
	x, _ := memIndexer(IndexConfig{Cutoff: 1})
	_, err := x.Index(&failingStream{n: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk on fire")
}

func TestTempStorageFailure(t *testing.T) {
	x := NewTwoPassIndexer(IndexConfig{Cutoff: 1}, WithFs(afero.NewReadOnlyFs(afero.NewMemMapFs())))
	_, err := x.Index(NewSliceStream([]Event{{Outcome: "A", Context: []string{"x"}}}))
	require.Error(t, err)
}

func TestCollectResets(t *testing.T) {
	s := NewSliceStream([]Event{{Outcome: "A"}, {Outcome: "B"}})
	_, err := s.Next()
	require.NoError(t, err)

	events, err := Collect(s)
	require.NoError(t, err)
	assert.Len(t, events, 2)

	_, err = s.Next()
	assert.Equal(t, io.EOF, err)
}

func TestCheckOutcomes(t *testing.T) {
	set, err := NewOnePassIndexer(IndexConfig{Cutoff: 1}).Index(NewSliceStream([]Event{
		{Outcome: "A", Context: []string{"x"}},
		{Outcome: "A", Context: []string{"y"}},
	}))
	require.NoError(t, err)
	assert.True(t, errors.Is(set.CheckOutcomes(), ErrInsufficientData))
}
