package beam

import (
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tableScorer returns a fixed random distribution per distinct context.
type tableScorer struct {
	labels []string
	rng    *rand.Rand
	table  map[string][]float64
	calls  int
}

func newTableScorer(seed int64, labels ...string) *tableScorer {
	return &tableScorer{labels: labels, rng: rand.New(rand.NewSource(seed)), table: map[string][]float64{}}
}

func (s *tableScorer) Evaluate(context []string) []float64 {
	s.calls++
	key := strings.Join(context, " ")
	if probs, ok := s.table[key]; ok {
		return probs
	}
	probs := make([]float64, len(s.labels))
	sum := 0.0
	for i := range probs {
		probs[i] = 0.05 + s.rng.Float64()
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	s.table[key] = probs
	return probs
}

func (s *tableScorer) NumOutcomes() int     { return len(s.labels) }
func (s *tableScorer) Outcome(i int) string { return s.labels[i] }

type prevTagContext struct{}

func (prevTagContext) Context(i int, tokens []string, prior []string, _ any) []string {
	prev := "BOS"
	if i > 0 {
		prev = prior[i-1]
	}
	return []string{"w=" + tokens[i], "p=" + prev}
}

// bruteForce enumerates every label sequence and returns the best valid one.
func bruteForce(s *tableScorer, tokens []string, v Validator) ([]string, float64) {
	var best []string
	bestScore := math.Inf(-1)
	var walk func(prefix []string, score float64)
	walk = func(prefix []string, score float64) {
		i := len(prefix)
		if i == len(tokens) {
			if score > bestScore {
				bestScore = score
				best = append([]string(nil), prefix...)
			}
			return
		}
		probs := s.Evaluate(prevTagContext{}.Context(i, tokens, prefix, nil))
		for p, prob := range probs {
			out := s.labels[p]
			if !v.Valid(i, tokens, prefix, out) {
				continue
			}
			walk(append(prefix, out), score+math.Log(prob))
		}
	}
	walk(nil, 0)
	return best, bestScore
}

func TestBestSequenceMatchesBruteForce(t *testing.T) {
	sentences := [][]string{
		{"a"},
		{"a", "b"},
		{"the", "cat", "sat"},
		{"x", "y", "x", "z"},
	}
	for seed := int64(1); seed <= 5; seed++ {
		for _, labels := range [][]string{{"N", "V"}, {"N", "V", "D"}} {
			scorer := newTableScorer(seed, labels...)
			// Width covers every sequence, so nothing is pruned.
			search := New(81, scorer, prevTagContext{})
			for _, tokens := range sentences {
				want, wantScore := bruteForce(scorer, tokens, NoopValidator{})
				got := search.BestSequence(tokens, nil, nil)
				require.NotNil(t, got)
				assert.Equal(t, want, got.Outcomes, "seed %d tokens %v", seed, tokens)
				assert.InDelta(t, wantScore, got.Score, 1e-9)
				assert.Len(t, got.Probs, len(tokens))
			}
		}
	}
}

type wordContext struct{}

func (wordContext) Context(i int, tokens []string, _ []string, _ any) []string {
	return []string{"w=" + tokens[i]}
}

func TestWidthOneIsGreedyArgmax(t *testing.T) {
	tokens := []string{"x", "y", "x", "z", "w"}
	for seed := int64(1); seed <= 5; seed++ {
		scorer := newTableScorer(seed, "N", "V", "D")
		search := New(1, scorer, wordContext{})
		got := search.BestSequence(tokens, nil, nil)
		require.NotNil(t, got)

		want := make([]string, len(tokens))
		wantScore := 0.0
		for i := range tokens {
			probs := scorer.Evaluate(wordContext{}.Context(i, tokens, nil, nil))
			best := 0
			for p := range probs {
				if probs[p] > probs[best] {
					best = p
				}
			}
			want[i] = scorer.labels[best]
			wantScore += math.Log(probs[best])
		}
		assert.Equal(t, want, got.Outcomes, "seed %d", seed)
		assert.InDelta(t, wantScore, got.Score, 1e-9)
	}
}

func TestBestSequencesOrdered(t *testing.T) {
	scorer := newTableScorer(7, "A", "B", "C")
	search := New(5, scorer, prevTagContext{})
	seqs := search.BestSequences(4, []string{"p", "q", "r"}, nil, DefaultMinScore, nil)
	require.Len(t, seqs, 4)
	for i := 1; i < len(seqs); i++ {
		assert.GreaterOrEqual(t, seqs[i-1].Score, seqs[i].Score)
	}
	for _, s := range seqs {
		sum := 0.0
		for _, p := range s.Probs {
			sum += math.Log(p)
		}
		assert.InDelta(t, sum, s.Score, 1e-12)
	}
}

func TestBeamWidthLimitsCandidates(t *testing.T) {
	scorer := newTableScorer(3, "A", "B", "C", "D")
	search := New(2, scorer, prevTagContext{})
	seqs := search.BestSequences(10, []string{"p", "q", "r"}, nil, DefaultMinScore, nil)
	assert.Len(t, seqs, 2)
}

func TestEmptyTokens(t *testing.T) {
	search := New(3, newTableScorer(1, "A", "B"), prevTagContext{})
	seq := search.BestSequence(nil, nil, nil)
	require.NotNil(t, seq)
	assert.Empty(t, seq.Outcomes)
	assert.Equal(t, 0.0, seq.Score)
}

func TestMinScorePrunes(t *testing.T) {
	search := New(3, newTableScorer(1, "A", "B"), prevTagContext{})
	seqs := search.BestSequences(3, []string{"a", "b"}, nil, 0, nil)
	assert.Empty(t, seqs)
	assert.Nil(t, search.BestSequence([]string{"a"}, nil, ValidatorFunc(func(int, []string, []string, string) bool { return false })))
}

func TestBIOValidator(t *testing.T) {
	v := BIOValidator{}
	assert.False(t, v.Valid(0, nil, nil, "I-PER"))
	assert.True(t, v.Valid(0, nil, nil, "B-PER"))
	assert.True(t, v.Valid(0, nil, nil, "O"))
	assert.True(t, v.Valid(1, nil, []string{"B-PER"}, "I-PER"))
	assert.True(t, v.Valid(2, nil, []string{"B-PER", "I-PER"}, "I-PER"))
	assert.False(t, v.Valid(1, nil, []string{"B-LOC"}, "I-PER"))
	assert.False(t, v.Valid(1, nil, []string{"O"}, "I-PER"))
}

func TestDecodingRespectsBIO(t *testing.T) {
	labels := []string{"O", "B-PER", "I-PER", "B-LOC", "I-LOC"}
	tokens := []string{"john", "smith", "lives", "in", "new", "york"}
	for seed := int64(1); seed <= 10; seed++ {
		search := New(4, newTableScorer(seed, labels...), prevTagContext{})
		seq := search.BestSequence(tokens, nil, BIOValidator{})
		require.NotNil(t, seq)
		for i, out := range seq.Outcomes {
			assert.True(t, BIOValidator{}.Valid(i, tokens, seq.Outcomes[:i], out), "seed %d: %v", seed, seq.Outcomes)
		}
	}
}

func TestKnownLabels(t *testing.T) {
	labels := []string{"N", "V", "D"}
	tokens := []string{"a", "b", "c", "d"}
	known := []string{"", "V", "", "D"}
	for seed := int64(1); seed <= 5; seed++ {
		scorer := newTableScorer(seed, labels...)
		v := KnownLabels(known, nil)
		seq := New(3, scorer, prevTagContext{}).BestSequence(tokens, nil, v)
		require.NotNil(t, seq)
		assert.Equal(t, "V", seq.Outcomes[1])
		assert.Equal(t, "D", seq.Outcomes[3])

		want, _ := bruteForce(scorer, tokens, v)
		exact := New(81, scorer, prevTagContext{}).BestSequence(tokens, nil, v)
		assert.Equal(t, want, exact.Outcomes)
	}
}

func TestKnownLabelsWrapsInner(t *testing.T) {
	v := KnownLabels([]string{"I-PER"}, BIOValidator{})
	assert.False(t, v.Valid(0, nil, nil, "I-PER"))
	assert.False(t, v.Valid(0, nil, nil, "O"))
	assert.True(t, KnownLabels(nil, nil).Valid(3, nil, nil, "X"))
}

func TestValidatorFunc(t *testing.T) {
	onlyA := ValidatorFunc(func(_ int, _, _ []string, out string) bool { return out == "A" })
	search := New(2, newTableScorer(4, "A", "B"), prevTagContext{})
	seq := search.BestSequence([]string{"x", "y", "z"}, nil, onlyA)
	require.NotNil(t, seq)
	assert.Equal(t, []string{"A", "A", "A"}, seq.Outcomes)
}

func TestCacheAvoidsRescoring(t *testing.T) {
	tokens := []string{"a", "a", "a", "a"}

	plain := newTableScorer(2, "A", "B")
	New(2, plain, prevTagContext{}).BestSequence(tokens, nil, nil)

	cached := newTableScorer(2, "A", "B")
	search := New(2, cached, prevTagContext{}, WithCacheSize(100))
	first := search.BestSequence(tokens, nil, nil)
	assert.Less(t, cached.calls, plain.calls)

	calls := cached.calls
	second := search.BestSequence(tokens, nil, nil)
	assert.Equal(t, calls, cached.calls)
	assert.Equal(t, first, second)
}
