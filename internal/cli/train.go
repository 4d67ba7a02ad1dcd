package cli

import (
	"log/slog"
	"os"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/spf13/cobra"

	"github.com/happyhackingspace/maxent"
	"github.com/happyhackingspace/maxent/internal/config"
)

// trainFlags holds the training parameters settable on the command line.
// Flags explicitly set override the params file.
type trainFlags struct {
	params    string
	algorithm string
	cfg       maxent.TrainConfig
}

func (f *trainFlags) register(cmd *cobra.Command) {
	f.cfg = maxent.DefaultTrainConfig()
	fl := cmd.Flags()
	fl.StringVar(&f.params, "params", "", "YAML training parameters file")
	fl.StringVar(&f.algorithm, "algorithm", string(f.cfg.Algorithm), "Training algorithm: GIS or QN")
	fl.IntVar(&f.cfg.Iterations, "iterations", f.cfg.Iterations, "Maximum training iterations")
	fl.IntVar(&f.cfg.Cutoff, "cutoff", f.cfg.Cutoff, "Minimum feature count")
	fl.BoolVar(&f.cfg.SortAndMerge, "sort-and-merge", f.cfg.SortAndMerge, "Merge duplicate events")
	fl.BoolVar(&f.cfg.OnePass, "one-pass", f.cfg.OnePass, "Index events in memory with a single pass")
	fl.StringVar(&f.cfg.TempDir, "temp-dir", "", "Directory for the temporary event file")
	fl.BoolVar(&f.cfg.Smoothing, "smoothing", f.cfg.Smoothing, "GIS: smooth unseen predicate/outcome pairs")
	fl.Float64Var(&f.cfg.SmoothingObservation, "smoothing-observation", f.cfg.SmoothingObservation, "GIS: observed count of unseen pairs")
	fl.Float64Var(&f.cfg.LLThreshold, "ll-threshold", f.cfg.LLThreshold, "GIS: stop when log-likelihood improves less")
	fl.IntVar(&f.cfg.Threads, "threads", f.cfg.Threads, "GIS: worker threads")
	fl.Float64Var(&f.cfg.L1Cost, "l1", f.cfg.L1Cost, "QN: L1 regularization cost")
	fl.Float64Var(&f.cfg.L2Cost, "l2", f.cfg.L2Cost, "QN: L2 regularization cost")
	fl.IntVar(&f.cfg.Memory, "memory", f.cfg.Memory, "QN: L-BFGS memory")
	fl.IntVar(&f.cfg.MaxFunctionEvaluations, "max-fct-evals", f.cfg.MaxFunctionEvaluations, "QN: maximum function evaluations")
}

// flagFields lists the flags that copy into TrainConfig when set.
var flagFields = []string{
	"iterations", "cutoff", "sort-and-merge", "one-pass", "temp-dir",
	"smoothing", "smoothing-observation", "ll-threshold", "threads",
	"l1", "l2", "memory", "max-fct-evals",
}

// resolveTrainConfig merges defaults, the params file and explicitly set flags.
func (c *CLI) resolveTrainConfig(cmd *cobra.Command, f *trainFlags) (maxent.TrainConfig, error) {
	cfg := maxent.DefaultTrainConfig()
	if f.params != "" {
		p, err := config.Load(c.fs, f.params)
		if err != nil {
			return cfg, err
		}
		p.Apply(&cfg)
	}

	fl := cmd.Flags()
	if fl.Changed("algorithm") {
		a, err := maxent.ParseAlgorithm(f.algorithm)
		if err != nil {
			return cfg, err
		}
		cfg.Algorithm = a
	}
	for _, name := range flagFields {
		if !fl.Changed(name) {
			continue
		}
		switch name {
		case "iterations":
			cfg.Iterations = f.cfg.Iterations
		case "cutoff":
			cfg.Cutoff = f.cfg.Cutoff
		case "sort-and-merge":
			cfg.SortAndMerge = f.cfg.SortAndMerge
		case "one-pass":
			cfg.OnePass = f.cfg.OnePass
		case "temp-dir":
			cfg.TempDir = f.cfg.TempDir
		case "smoothing":
			cfg.Smoothing = f.cfg.Smoothing
		case "smoothing-observation":
			cfg.SmoothingObservation = f.cfg.SmoothingObservation
		case "ll-threshold":
			cfg.LLThreshold = f.cfg.LLThreshold
		case "threads":
			cfg.Threads = f.cfg.Threads
		case "l1":
			cfg.L1Cost = f.cfg.L1Cost
		case "l2":
			cfg.L2Cost = f.cfg.L2Cost
		case "memory":
			cfg.Memory = f.cfg.Memory
		case "max-fct-evals":
			cfg.MaxFunctionEvaluations = f.cfg.MaxFunctionEvaluations
		}
	}
	cfg.Fs = c.fs
	return cfg, nil
}

// withProgress shows a progress bar over training iterations unless
// logging is verbose or silenced.
func (c *CLI) withProgress(cfg *maxent.TrainConfig) (finish func()) {
	if c.verbose || c.silent {
		return func() {}
	}
	bar := pb.New(cfg.Iterations).SetWriter(os.Stderr)
	cfg.OnIteration = func(maxent.Progress) { bar.Increment() }
	bar.Start()
	return func() { bar.Finish() }
}

func (c *CLI) newTrainCommand() *cobra.Command {
	var data dataFlags
	var tf trainFlags

	cmd := &cobra.Command{
		Use:   "train <modelfile>",
		Short: "Train a model on an event file",
		Args:  cobra.ExactArgs(1),
		Example: `  maxent train model.json --data events.txt
  maxent train model.json.gz --data ppa/training --format ppa --cutoff 1 --threads 4
  maxent train model.json --data docs --format html --algorithm QN --l1 0.5
  maxent train pos.json --data train.pos --format tagged --params params.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			modelPath := args[0]
			cfg, err := c.resolveTrainConfig(cmd, &tf)
			if err != nil {
				return err
			}
			ds, err := openDataset(c.fs, data)
			if err != nil {
				return err
			}
			defer ds.close()

			slog.Info("Training model", "data", data.path, "format", data.format, "algorithm", cfg.Algorithm, "output", modelPath)
			start := time.Now()
			finish := c.withProgress(&cfg)
			m, err := maxent.Train(ds.stream, cfg)
			finish()
			if err != nil {
				return err
			}
			slog.Debug("Training completed", "duration", time.Since(start))
			if err := maxent.Save(m, modelPath); err != nil {
				return err
			}
			slog.Info("Model saved", "path", modelPath, "predicates", m.NumPredicates(), "outcomes", m.NumOutcomes())
			return nil
		},
	}

	data.register(cmd, "Path to training data")
	tf.register(cmd)
	return cmd
}
