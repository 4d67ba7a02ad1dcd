package event

import (
	"io"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/happyhackingspace/maxent/predicate"
)

// vocabularyLoadFactor is the load factor of the predicate tables built
// while indexing.
const vocabularyLoadFactor = 0.7

// Indexer turns an event stream into an IndexedSet.
type Indexer interface {
	Index(stream Stream) (*IndexedSet, error)
}

// IndexConfig holds the settings shared by both indexing strategies.
type IndexConfig struct {
	// Cutoff is the minimum number of occurrences for a feature to enter
	// the vocabulary.
	Cutoff int
	// SortAndMerge collapses identical events into one with a higher count.
	SortAndMerge bool
}

// DefaultIndexConfig returns cutoff 5 with sort-and-merge enabled.
func DefaultIndexConfig() IndexConfig {
	return IndexConfig{Cutoff: 5, SortAndMerge: true}
}

// collector assigns outcome ids and accumulates comparable events.
type collector struct {
	outcomeIndex  map[string]int
	outcomeLabels []string
	events        []ComparableEvent
	hasValues     bool
	dropped       int
}

func newCollector() *collector {
	return &collector{outcomeIndex: make(map[string]int)}
}

// add maps ev through lookup. Outcome ids are assigned before the
// zero-feature check, so a dropped event still registers its label.
func (c *collector) add(ev *Event, lookup func(string) (int, bool)) {
	oid, ok := c.outcomeIndex[ev.Outcome]
	if !ok {
		oid = len(c.outcomeLabels)
		c.outcomeIndex[ev.Outcome] = oid
		c.outcomeLabels = append(c.outcomeLabels, ev.Outcome)
	}

	ids := make([]int, 0, len(ev.Context))
	var values []float64
	if ev.Values != nil {
		values = make([]float64, 0, len(ev.Context))
	}
	for i, feat := range ev.Context {
		id, ok := lookup(feat)
		if !ok {
			continue
		}
		ids = append(ids, id)
		if values != nil {
			values = append(values, ev.Values[i])
		}
	}

	if len(ids) == 0 {
		c.dropped++
		slog.Warn("Dropped event with no active features", "outcome", ev.Outcome, "context", ev.Context)
		return
	}
	if values != nil {
		c.hasValues = true
	}
	c.events = append(c.events, NewComparableEvent(oid, ids, values))
}

func (c *collector) build(cfg IndexConfig, predLabels []string, predCounts []int) *IndexedSet {
	events := c.events
	before := len(events)
	if cfg.SortAndMerge {
		events = SortAndMerge(events)
	}
	slog.Debug("Indexed events",
		"events", before,
		"unique", len(events),
		"dropped", c.dropped,
		"predicates", len(predLabels),
		"outcomes", len(c.outcomeLabels))
	return newIndexedSet(events, c.hasValues, predLabels, c.outcomeLabels, predCounts)
}

// nextValid returns the next event that passes validation, logging and
// skipping malformed ones.
func nextValid(next func() (*Event, error)) (*Event, error) {
	for {
		ev, err := next()
		if err != nil {
			return nil, err
		}
		if verr := ev.Validate(); verr != nil {
			slog.Warn("Skipping malformed event", "event", ev.String(), "error", verr)
			continue
		}
		return ev, nil
	}
}

// TwoPassIndexer counts features in a first pass while spilling events to
// a temporary file, then indexes the spilled events against the final
// vocabulary in a second pass.
type TwoPassIndexer struct {
	cfg IndexConfig
	fs  afero.Fs
	dir string
}

// Option configures a TwoPassIndexer.
type Option func(*TwoPassIndexer)

// WithFs sets the filesystem for the temporary event file.
func WithFs(fs afero.Fs) Option {
	return func(x *TwoPassIndexer) { x.fs = fs }
}

// WithTempDir sets the directory for the temporary event file.
func WithTempDir(dir string) Option {
	return func(x *TwoPassIndexer) { x.dir = dir }
}

// NewTwoPassIndexer creates a two-pass indexer that spills to the OS temp
// directory unless configured otherwise.
func NewTwoPassIndexer(cfg IndexConfig, opts ...Option) *TwoPassIndexer {
	x := &TwoPassIndexer{cfg: cfg, fs: afero.NewOsFs()}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Index implements Indexer.
func (x *TwoPassIndexer) Index(stream Stream) (*IndexedSet, error) {
	if err := stream.Reset(); err != nil {
		return nil, errors.Wrap(err, "event: reset stream")
	}

	store, err := newTempStore(x.fs, x.dir)
	if err != nil {
		return nil, err
	}
	defer store.remove()

	slog.Debug("Indexing events, pass 1", "cutoff", x.cfg.Cutoff, "temp", store.file.Name())
	counts := make(map[string]int)
	var order []string
	for {
		ev, err := nextValid(stream.Next)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "event: read stream")
		}
		for _, feat := range ev.Context {
			if _, seen := counts[feat]; !seen {
				order = append(order, feat)
			}
			counts[feat]++
		}
		if err := store.write(ev); err != nil {
			return nil, err
		}
	}

	var predLabels []string
	var predCounts []int
	for _, feat := range order {
		if n := counts[feat]; n >= x.cfg.Cutoff {
			predLabels = append(predLabels, feat)
			predCounts = append(predCounts, n)
		}
	}
	vocab, err := predicate.NewIndexTable(predLabels, vocabularyLoadFactor)
	if err != nil {
		return nil, errors.Wrap(err, "event: build vocabulary")
	}

	slog.Debug("Indexing events, pass 2", "events", store.n, "predicates", vocab.Size())
	r, err := store.rewind()
	if err != nil {
		return nil, err
	}
	c := newCollector()
	for {
		ev, err := r.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		c.add(ev, vocab.Get)
	}
	return c.build(x.cfg, predLabels, predCounts), nil
}

// OnePassIndexer indexes events in a single streaming pass. A feature
// joins the vocabulary as soon as its running count reaches the cutoff;
// events seen before that point do not include it.
type OnePassIndexer struct {
	cfg IndexConfig
}

// NewOnePassIndexer creates a one-pass indexer.
func NewOnePassIndexer(cfg IndexConfig) *OnePassIndexer {
	return &OnePassIndexer{cfg: cfg}
}

// Index implements Indexer.
func (x *OnePassIndexer) Index(stream Stream) (*IndexedSet, error) {
	if err := stream.Reset(); err != nil {
		return nil, errors.Wrap(err, "event: reset stream")
	}

	counts := make(map[string]int)
	vocab := make(map[string]int)
	var predLabels []string
	lookup := func(feat string) (int, bool) {
		id, ok := vocab[feat]
		return id, ok
	}

	c := newCollector()
	for {
		ev, err := nextValid(stream.Next)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "event: read stream")
		}
		for _, feat := range ev.Context {
			counts[feat]++
			if _, ok := vocab[feat]; !ok && counts[feat] >= x.cfg.Cutoff {
				vocab[feat] = len(predLabels)
				predLabels = append(predLabels, feat)
			}
		}
		c.add(ev, lookup)
	}

	predCounts := make([]int, len(predLabels))
	for i, feat := range predLabels {
		predCounts[i] = counts[feat]
	}
	return c.build(x.cfg, predLabels, predCounts), nil
}
