// Package maxent trains and applies maximum entropy classifiers.
//
// Events are indexed into a compact training set, fitted with either
// Generalized Iterative Scaling or a quasi-Newton optimizer, and turned into
// a Model that scores contexts and can be saved and loaded.
//
//	stream := event.NewSliceStream(events)
//	m, _ := maxent.Train(stream, maxent.DefaultTrainConfig())
//	probs := m.Evaluate([]string{"verb=join", "prep=as"})
//	fmt.Println(m.BestOutcome(probs)) // "V"
package maxent

import (
	"log/slog"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/happyhackingspace/maxent/event"
	"github.com/happyhackingspace/maxent/gis"
	"github.com/happyhackingspace/maxent/model"
	"github.com/happyhackingspace/maxent/qn"
)

var (
	// ErrUnknownAlgorithm is returned for an algorithm with no registered
	// trainer.
	ErrUnknownAlgorithm = errors.New("maxent: unknown algorithm")
	// ErrInsufficientData is returned when training data has fewer than two
	// outcomes.
	ErrInsufficientData = event.ErrInsufficientData
)

// Algorithm names a training algorithm.
type Algorithm string

const (
	GIS Algorithm = gis.Algorithm
	QN  Algorithm = qn.Algorithm
)

// ParseAlgorithm resolves an algorithm name case-insensitively.
func ParseAlgorithm(name string) (Algorithm, error) {
	a := Algorithm(strings.ToUpper(strings.TrimSpace(name)))
	if _, ok := trainers[a]; !ok {
		return "", errors.Wrapf(ErrUnknownAlgorithm, "%q", name)
	}
	return a, nil
}

// Trainer fits a model to an indexed training set.
type Trainer interface {
	Train(set *event.IndexedSet) (*model.Model, error)
}

var trainers = map[Algorithm]func(TrainConfig) Trainer{
	GIS: func(cfg TrainConfig) Trainer {
		return gis.NewTrainer(gis.Config{
			Iterations:           cfg.Iterations,
			Threads:              cfg.Threads,
			Smoothing:            cfg.Smoothing,
			SmoothingObservation: cfg.SmoothingObservation,
			LLThreshold:          cfg.LLThreshold,
			OnIteration: func(it gis.Iteration) {
				cfg.progress(Progress{Iteration: it.Number, Objective: it.LogLikelihood, Accuracy: it.Accuracy})
			},
		})
	},
	QN: func(cfg TrainConfig) Trainer {
		return qn.NewTrainer(qn.Config{
			Iterations:             cfg.Iterations,
			Memory:                 cfg.Memory,
			L1Cost:                 cfg.L1Cost,
			L2Cost:                 cfg.L2Cost,
			MaxFunctionEvaluations: cfg.MaxFunctionEvaluations,
			OnIteration: func(it qn.Iteration) {
				cfg.progress(Progress{Iteration: it.Number, Objective: it.NewValue})
			},
		})
	},
}

// NewTrainer returns the trainer registered for cfg.Algorithm.
func NewTrainer(cfg TrainConfig) (Trainer, error) {
	newTrainer, ok := trainers[cfg.Algorithm]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownAlgorithm, "%q", cfg.Algorithm)
	}
	return newTrainer(cfg), nil
}

// Progress reports one training iteration. Objective is the training
// log-likelihood for GIS and the minimized loss for QN. Accuracy is only
// reported by GIS.
type Progress struct {
	Iteration int
	Objective float64
	Accuracy  float64
}

// TrainConfig holds configuration for indexing and training.
type TrainConfig struct {
	Algorithm  Algorithm
	Iterations int

	// Indexing.
	Cutoff       int
	SortAndMerge bool
	OnePass      bool
	// TempDir and Fs locate the two-pass indexer's temporary event file.
	TempDir string
	Fs      afero.Fs

	// GIS.
	Smoothing            bool
	SmoothingObservation float64
	LLThreshold          float64
	Threads              int

	// QN.
	L1Cost                 float64
	L2Cost                 float64
	Memory                 int
	MaxFunctionEvaluations int

	OnIteration func(Progress)
}

// DefaultTrainConfig returns GIS with 100 iterations, cutoff 5,
// sort-and-merge and one thread.
func DefaultTrainConfig() TrainConfig {
	g := gis.DefaultConfig()
	q := qn.DefaultConfig()
	idx := event.DefaultIndexConfig()
	return TrainConfig{
		Algorithm:              GIS,
		Iterations:             g.Iterations,
		Cutoff:                 idx.Cutoff,
		SortAndMerge:           idx.SortAndMerge,
		SmoothingObservation:   g.SmoothingObservation,
		LLThreshold:            g.LLThreshold,
		Threads:                g.Threads,
		Memory:                 q.Memory,
		MaxFunctionEvaluations: q.MaxFunctionEvaluations,
	}
}

func (cfg TrainConfig) progress(p Progress) {
	if cfg.OnIteration != nil {
		cfg.OnIteration(p)
	}
}

func (cfg TrainConfig) indexer() event.Indexer {
	idx := event.IndexConfig{Cutoff: cfg.Cutoff, SortAndMerge: cfg.SortAndMerge}
	if cfg.OnePass {
		return event.NewOnePassIndexer(idx)
	}
	var opts []event.Option
	if cfg.Fs != nil {
		opts = append(opts, event.WithFs(cfg.Fs))
	}
	if cfg.TempDir != "" {
		opts = append(opts, event.WithTempDir(cfg.TempDir))
	}
	return event.NewTwoPassIndexer(idx, opts...)
}

// Train indexes the events of stream and fits a model.
func Train(stream event.Stream, cfg TrainConfig) (*model.Model, error) {
	trainer, err := NewTrainer(cfg)
	if err != nil {
		return nil, err
	}
	set, err := cfg.indexer().Index(stream)
	if err != nil {
		return nil, errors.Wrap(err, "maxent: index events")
	}
	slog.Info("Training model",
		"algorithm", cfg.Algorithm,
		"events", set.NumEvents(),
		"predicates", set.NumPredicates(),
		"outcomes", set.NumOutcomes())
	m, err := trainer.Train(set)
	if err != nil {
		return nil, errors.Wrap(err, "maxent: train")
	}
	return m, nil
}

// Load reads a model file; paths ending in ".gz" are gzip compressed.
func Load(path string) (*model.Model, error) {
	m, err := model.Load(path)
	if err != nil {
		return nil, errors.Wrap(err, "maxent")
	}
	return m, nil
}

// Save writes m to path; paths ending in ".gz" are gzip compressed.
func Save(m *model.Model, path string) error {
	if m == nil {
		return errors.New("maxent: nil model")
	}
	return errors.Wrap(m.Save(path), "maxent")
}
