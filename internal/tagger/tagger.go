package tagger

import (
	"github.com/pkg/errors"

	"github.com/happyhackingspace/maxent"
	"github.com/happyhackingspace/maxent/beam"
	"github.com/happyhackingspace/maxent/internal/corpus"
	"github.com/happyhackingspace/maxent/model"
)

// Tagger assigns a tag to every token of a sentence.
type Tagger struct {
	search    *beam.Search
	validator beam.Validator
}

// Option configures a Tagger.
type Option func(*options)

type options struct {
	beamSize  int
	cacheSize int
	validator beam.Validator
	gen       ContextGenerator
}

// WithBeamSize sets the number of sequences kept per position.
func WithBeamSize(n int) Option {
	return func(o *options) { o.beamSize = n }
}

// WithCacheSize caches scored contexts across positions.
func WithCacheSize(n int) Option {
	return func(o *options) { o.cacheSize = n }
}

// WithValidator restricts the tags proposed at each position, e.g. to
// well-formed BIO chunks.
func WithValidator(v beam.Validator) Option {
	return func(o *options) { o.validator = v }
}

// WithContextGenerator replaces the default context generator. It must
// match the generator used at training time.
func WithContextGenerator(g ContextGenerator) Option {
	return func(o *options) { o.gen = g }
}

// New creates a tagger over a trained model.
func New(m beam.Scorer, opts ...Option) *Tagger {
	o := options{
		beamSize:  beam.DefaultSize,
		validator: beam.NoopValidator{},
		gen:       DefaultContextGenerator(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	var searchOpts []beam.Option
	if o.cacheSize > 0 {
		searchOpts = append(searchOpts, beam.WithCacheSize(o.cacheSize))
	}
	return &Tagger{
		search:    beam.New(o.beamSize, m, o.gen, searchOpts...),
		validator: o.validator,
	}
}

// Tag returns the best tag sequence for tokens, or nil when no sequence
// satisfies the validator.
func (t *Tagger) Tag(tokens []string) []string {
	return t.TagKnown(tokens, nil)
}

// TagKnown is Tag with some positions fixed in advance: a non-empty
// known[i] forces that tag at position i.
func (t *Tagger) TagKnown(tokens, known []string) []string {
	v := t.validator
	if known != nil {
		v = beam.KnownLabels(known, v)
	}
	seq := t.search.BestSequence(tokens, nil, v)
	if seq == nil {
		return nil
	}
	return seq.Outcomes
}

// TopK returns up to k tag sequences for tokens, best first.
func (t *Tagger) TopK(tokens []string, k int) []beam.Sequence {
	return t.search.BestSequences(k, tokens, nil, beam.DefaultMinScore, t.validator)
}

// Train fits a tagging model on tagged sentences.
func Train(sentences []corpus.Sentence, gen ContextGenerator, cfg maxent.TrainConfig) (*model.Model, error) {
	if len(sentences) == 0 {
		return nil, errors.New("tagger: no training sentences")
	}
	return maxent.Train(NewEventStream(sentences, gen), cfg)
}

// Accuracy counts the tokens of sentences whose predicted tag matches
// the gold tag.
func (t *Tagger) Accuracy(sentences []corpus.Sentence) (correct, total int) {
	for _, s := range sentences {
		pred := t.Tag(s.Tokens)
		for i, gold := range s.Tags {
			if i < len(pred) && pred[i] == gold {
				correct++
			}
			total++
		}
	}
	return correct, total
}
