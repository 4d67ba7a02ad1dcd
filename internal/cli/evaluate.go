package cli

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/happyhackingspace/maxent"
	"github.com/happyhackingspace/maxent/event"
)

func (c *CLI) newEvaluateCommand() *cobra.Command {
	var data dataFlags
	var tf trainFlags
	var cvFolds int

	cmd := &cobra.Command{
		Use:   "evaluate [modelfile]",
		Short: "Evaluate a model on test data, or cross-validate training settings",
		Args:  cobra.MaximumNArgs(1),
		Example: `  maxent evaluate model.json --data ppa/test --format ppa
  maxent evaluate --data docs --format html --cv 10
  maxent evaluate --data events.txt --cv 5 --algorithm QN --l2 0.1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := openDataset(c.fs, data)
			if err != nil {
				return err
			}
			defer ds.close()

			start := time.Now()
			var result *maxent.EvalResult
			if len(args) == 1 {
				m, err := maxent.Load(args[0])
				if err != nil {
					return err
				}
				slog.Info("Evaluating", "model", args[0], "data", data.path)
				result, err = maxent.Evaluate(m, ds.stream)
				if err != nil {
					return err
				}
			} else {
				cfg, err := c.resolveTrainConfig(cmd, &tf)
				if err != nil {
					return err
				}
				events, err := event.Collect(ds.stream)
				if err != nil {
					return err
				}
				if ds.groups != nil && len(ds.groups) != len(events) {
					return errors.Errorf("%d documents produced %d events", len(ds.groups), len(events))
				}
				slog.Info("Cross-validating", "folds", cvFolds, "events", len(events), "algorithm", cfg.Algorithm)
				result, err = maxent.CrossValidate(events, ds.groups, cvFolds, cfg)
				if err != nil {
					return err
				}
			}
			slog.Debug("Evaluation completed", "duration", time.Since(start))

			fmt.Printf("Accuracy: %.2f%% (%d/%d)\n", result.Accuracy*100, result.Correct, result.Total)
			classes := confusionClasses(result.Confusion)
			printConfusionMatrix(result.Confusion, classes)
			printClassReport(result.Confusion, classes)
			return nil
		},
	}

	data.register(cmd, "Path to evaluation data")
	tf.register(cmd)
	cmd.Flags().IntVar(&cvFolds, "cv", 10, "Number of cross-validation folds when no model is given")
	return cmd
}

func confusionClasses(confusion map[string]map[string]int) []string {
	seen := make(map[string]bool)
	for gold, row := range confusion {
		seen[gold] = true
		for predicted := range row {
			seen[predicted] = true
		}
	}
	classes := make([]string, 0, len(seen))
	for cls := range seen {
		classes = append(classes, cls)
	}
	sort.Strings(classes)
	return classes
}

func printClassReport(confusion map[string]map[string]int, classes []string) {
	predicted := make(map[string]int)
	for _, row := range confusion {
		for cls, n := range row {
			predicted[cls] += n
		}
	}

	fmt.Printf("\nPer-class metrics:\n")
	fmt.Printf("%8s  %6s  %6s  %6s  %7s\n", "class", "prec", "recall", "f1", "support")
	for _, cls := range classes {
		support := 0
		for _, v := range confusion[cls] {
			support += v
		}
		tp := confusion[cls][cls]
		var precision, recall, f1 float64
		if predicted[cls] > 0 {
			precision = float64(tp) / float64(predicted[cls])
		}
		if support > 0 {
			recall = float64(tp) / float64(support)
		}
		if precision+recall > 0 {
			f1 = 2 * precision * recall / (precision + recall)
		}
		fmt.Printf("%8s  %5.1f%%  %5.1f%%  %5.1f%%  %7d\n",
			cls, precision*100, recall*100, f1*100, support)
	}
}

func printConfusionMatrix(confusion map[string]map[string]int, classes []string) {
	if len(confusion) == 0 {
		return
	}

	sort.SliceStable(classes, func(i, j int) bool {
		ti, tj := 0, 0
		for _, v := range confusion[classes[i]] {
			ti += v
		}
		for _, v := range confusion[classes[j]] {
			tj += v
		}
		return ti > tj
	})

	fmt.Printf("\nConfusion matrix (rows=true, cols=predicted):\n")
	fmt.Printf("%8s", "")
	for _, c := range classes {
		fmt.Printf(" %5s", c)
	}
	fmt.Printf("  total  acc%%\n")

	for _, trueClass := range classes {
		fmt.Printf("%8s", trueClass)
		total := 0
		correct := 0
		for _, predClass := range classes {
			count := confusion[trueClass][predClass]
			total += count
			if trueClass == predClass {
				correct = count
			}
			if count == 0 {
				fmt.Printf("   %5s", ".")
			} else {
				fmt.Printf("   %3d", count)
			}
		}
		acc := 0.0
		if total > 0 {
			acc = float64(correct) / float64(total) * 100
		}
		fmt.Printf("  %5d %5.1f\n", total, acc)
	}
}
