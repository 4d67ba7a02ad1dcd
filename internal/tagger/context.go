// Package tagger labels token sequences with a maxent model and beam
// search.
package tagger

import (
	"strconv"
	"strings"

	"github.com/happyhackingspace/maxent/event"
	"github.com/happyhackingspace/maxent/internal/corpus"
	"github.com/happyhackingspace/maxent/internal/textutil"
)

const (
	bos = "*BOS*"
	eos = "*EOS*"
)

// ContextGenerator builds the predicates of token i from the word, its
// neighbours, its affixes and shape, and the tags already assigned.
type ContextGenerator struct {
	// AffixLength bounds prefix and suffix predicates.
	AffixLength int
	// Window is the number of neighbouring words on each side.
	Window int
	// NumberRatio is the digit ratio at which "num=" predicates fire.
	NumberRatio float64
}

// DefaultContextGenerator uses affixes up to 4 runes and two neighbours
// on each side.
func DefaultContextGenerator() ContextGenerator {
	return ContextGenerator{AffixLength: 4, Window: 2, NumberRatio: 0.3}
}

// Context implements beam.ContextGenerator. Additional context is ignored.
func (g ContextGenerator) Context(i int, tokens []string, prior []string, _ any) []string {
	word := tokens[i]
	lower := strings.ToLower(word)
	ctx := []string{
		"bias",
		"w=" + lower,
		"shape=" + textutil.Shape(word),
	}
	if i == 0 {
		ctx = append(ctx, "is-first")
	}
	if i == len(tokens)-1 {
		ctx = append(ctx, "is-last")
	}
	for _, p := range textutil.Prefixes(lower, g.AffixLength) {
		ctx = append(ctx, "pre="+p)
	}
	for _, s := range textutil.Suffixes(lower, g.AffixLength) {
		ctx = append(ctx, "suf="+s)
	}
	if g.NumberRatio > 0 {
		if p := textutil.NumberPattern(word, g.NumberRatio); p != "" {
			ctx = append(ctx, "num="+p)
		}
	}

	for d := 1; d <= g.Window; d++ {
		ctx = append(ctx, "w-"+strconv.Itoa(d)+"="+neighbour(tokens, i-d), "w+"+strconv.Itoa(d)+"="+neighbour(tokens, i+d))
	}

	t1, t2 := bos, bos
	if i > 0 {
		t1 = prior[i-1]
	}
	if i > 1 {
		t2 = prior[i-2]
	}
	ctx = append(ctx, "t-1="+t1, "t-2,t-1="+t2+","+t1, "t-1,w="+t1+","+lower)
	return ctx
}

func neighbour(tokens []string, j int) string {
	switch {
	case j < 0:
		return bos
	case j >= len(tokens):
		return eos
	default:
		return strings.ToLower(tokens[j])
	}
}

// Events turns tagged sentences into one training event per token, using
// the gold tags as prior decisions.
func Events(sentences []corpus.Sentence, gen ContextGenerator) []event.Event {
	var events []event.Event
	for _, s := range sentences {
		for i := range s.Tokens {
			events = append(events, event.Event{
				Outcome: s.Tags[i],
				Context: gen.Context(i, s.Tokens, s.Tags, nil),
			})
		}
	}
	return events
}

// NewEventStream returns a restartable stream over the events of
// sentences.
func NewEventStream(sentences []corpus.Sentence, gen ContextGenerator) event.Stream {
	return event.NewSliceStream(Events(sentences, gen))
}
