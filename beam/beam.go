// Package beam decodes the best label sequences for a token sequence by
// beam search over per-position classifier distributions.
package beam

import (
	"math"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru"
)

const (
	// DefaultSize is the default beam width.
	DefaultSize = 3
	// DefaultMinScore prunes sequences whose log score falls to or below it.
	DefaultMinScore = -100000.0
)

// Scorer turns a context into an outcome distribution. *model.Model
// satisfies it.
type Scorer interface {
	Evaluate(context []string) []float64
	NumOutcomes() int
	Outcome(i int) string
}

// ContextGenerator builds the features for position i from the tokens, the
// outcomes decided so far and caller-supplied data.
type ContextGenerator interface {
	Context(i int, tokens []string, prior []string, additional any) []string
}

// Sequence is a partial or complete label sequence with its log score.
type Sequence struct {
	Outcomes []string
	Probs    []float64
	Score    float64
}

// extend returns a copy of s with outcome appended.
func (s *Sequence) extend(outcome string, p float64) *Sequence {
	n := len(s.Outcomes)
	next := &Sequence{
		Outcomes: make([]string, n+1),
		Probs:    make([]float64, n+1),
		Score:    s.Score + math.Log(p),
	}
	copy(next.Outcomes, s.Outcomes)
	copy(next.Probs, s.Probs)
	next.Outcomes[n] = outcome
	next.Probs[n] = p
	return next
}

// Search is a beam search decoder. A Search is not safe for concurrent use.
type Search struct {
	size   int
	scorer Scorer
	gen    ContextGenerator
	cache  *lru.Cache
}

// Option configures a Search.
type Option func(*Search)

// WithCacheSize caches up to n context evaluations. Zero disables caching.
func WithCacheSize(n int) Option {
	return func(s *Search) {
		if n <= 0 {
			s.cache = nil
			return
		}
		cache, err := lru.New(n)
		if err == nil {
			s.cache = cache
		}
	}
}

// New creates a beam search of the given width.
func New(size int, scorer Scorer, gen ContextGenerator, opts ...Option) *Search {
	if size < 1 {
		size = DefaultSize
	}
	s := &Search{size: size, scorer: scorer, gen: gen}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Size returns the beam width.
func (s *Search) Size() int { return s.size }

// BestSequences returns up to k sequences over tokens, best first.
// Sequences scoring at or below minScore are dropped during the search.
// A nil validator accepts every outcome.
func (s *Search) BestSequences(k int, tokens []string, additional any, minScore float64, v Validator) []Sequence {
	if v == nil {
		v = NoopValidator{}
	}
	if s.scorer.NumOutcomes() == 0 {
		return nil
	}
	prev := []*Sequence{{}}
	var next []*Sequence
	sorted := make([]float64, s.scorer.NumOutcomes())

	for i := range tokens {
		n := min(s.size, len(prev))
		for _, top := range prev[:n] {
			probs := s.evaluate(s.gen.Context(i, tokens, top.Outcomes, additional))

			copy(sorted, probs)
			sort.Float64s(sorted)
			threshold := sorted[max(0, len(sorted)-s.size)]

			for p, prob := range probs {
				if prob < threshold {
					continue
				}
				out := s.scorer.Outcome(p)
				if !v.Valid(i, tokens, top.Outcomes, out) {
					continue
				}
				if ns := top.extend(out, prob); ns.Score > minScore {
					next = append(next, ns)
				}
			}

			if len(next) == 0 {
				for p, prob := range probs {
					out := s.scorer.Outcome(p)
					if !v.Valid(i, tokens, top.Outcomes, out) {
						continue
					}
					if ns := top.extend(out, prob); ns.Score > minScore {
						next = append(next, ns)
					}
				}
			}
		}

		sort.SliceStable(next, func(a, b int) bool { return next[a].Score > next[b].Score })
		if len(next) > s.size {
			next = next[:s.size]
		}
		prev, next = next, prev[:0]
	}

	k = min(k, len(prev))
	out := make([]Sequence, k)
	for i := 0; i < k; i++ {
		out[i] = *prev[i]
	}
	return out
}

// BestSequence returns the single best sequence, or nil when every
// candidate was pruned or rejected.
func (s *Search) BestSequence(tokens []string, additional any, v Validator) *Sequence {
	seqs := s.BestSequences(1, tokens, additional, DefaultMinScore, v)
	if len(seqs) == 0 {
		return nil
	}
	return &seqs[0]
}

func (s *Search) evaluate(context []string) []float64 {
	if s.cache == nil {
		return s.scorer.Evaluate(context)
	}
	key := strings.Join(context, "\x00")
	if probs, ok := s.cache.Get(key); ok {
		return probs.([]float64)
	}
	probs := s.scorer.Evaluate(context)
	s.cache.Add(key, probs)
	return probs
}
