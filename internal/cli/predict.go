package cli

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/happyhackingspace/maxent"
	"github.com/happyhackingspace/maxent/internal/corpus"
	"github.com/happyhackingspace/maxent/model"
)

func (c *CLI) newPredictCommand() *cobra.Command {
	var modelPath string
	var realValued, html bool

	cmd := &cobra.Command{
		Use:   "predict [file-or-url]",
		Short: "Print the outcome distribution for contexts read from a file or stdin",
		Args:  cobra.MaximumNArgs(1),
		Example: `  # One context per line: space separated predicates
  echo "verb=join noun=board prep=as prep_obj=director" | maxent predict --model ppa.json

  # Real-valued predicates
  maxent predict contexts.txt --model model.json --real

  # Classify an HTML page with a model trained on --format html
  maxent predict https://example.com/login --model pages.json --html
  curl -s https://example.com/login | maxent predict --model pages.json --html`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && isStdinTerminal() {
				return cmd.Help()
			}

			start := time.Now()
			m, err := maxent.Load(modelPath)
			if err != nil {
				return err
			}
			slog.Debug("Model loaded", "duration", time.Since(start), "predicates", m.NumPredicates())

			if html {
				return predictHTML(m, args)
			}

			in := io.Reader(os.Stdin)
			if len(args) == 1 {
				f, err := c.fs.Open(args[0])
				if err != nil {
					return errors.Wrap(err, "open input")
				}
				defer f.Close()
				in = f
			}
			return predictLines(m, in, os.Stdout, realValued)
		},
	}

	cmd.Flags().StringVar(&modelPath, "model", "model.json", "Path to model file")
	cmd.Flags().BoolVar(&realValued, "real", false, "Parse predicates as name=value")
	cmd.Flags().BoolVar(&html, "html", false, "Input is an HTML page, URL or file")
	return cmd
}

// predictLines writes the best outcome and full distribution for every
// non-blank input line.
func predictLines(m *model.Model, in io.Reader, out io.Writer, realValued bool) error {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var probs []float64
		if realValued {
			// Reuse the event parser with a placeholder outcome.
			ev, err := corpus.ParseRealValued("? " + line)
			if err != nil {
				return err
			}
			probs = m.EvaluateValues(ev.Context, ev.Values)
		} else {
			probs = m.Evaluate(strings.Fields(line))
		}
		fmt.Fprintf(out, "%s\t%s\n", m.BestOutcome(probs), m.AllOutcomes(probs))
	}
	return errors.Wrap(sc.Err(), "read input")
}

func predictHTML(m *model.Model, args []string) error {
	var content, target string
	var err error
	if len(args) == 0 {
		content, target, err = readFromStdin()
	} else {
		target = args[0]
		slog.Debug("Fetching HTML", "target", target)
		content, err = fetchHTML(target)
	}
	if err != nil {
		return err
	}

	d := corpus.Document{Path: target, URL: target, HTML: content}
	if strings.Contains(target, "://") {
		d.Domain = corpus.Domain(target)
	}
	ev, err := corpus.DocumentEvent(d, corpus.DefaultHTMLOptions().Features)
	if err != nil {
		return err
	}
	probs := m.Evaluate(ev.Context)
	fmt.Printf("%s\t%s\n", m.BestOutcome(probs), m.AllOutcomes(probs))
	return nil
}

func isStdinTerminal() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func fetchHTML(target string) (string, error) {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		resp, err := http.Get(target)
		if err != nil {
			return "", errors.Wrap(err, "fetch URL")
		}
		defer func() { _ = resp.Body.Close() }()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", errors.Wrap(err, "read response")
		}
		return string(body), nil
	}
	data, err := os.ReadFile(target)
	if err != nil {
		return "", errors.Wrap(err, "read file")
	}
	return string(data), nil
}

func readFromStdin() (string, string, error) {
	slog.Debug("Reading from stdin")
	body, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", "", errors.Wrap(err, "read stdin")
	}
	content := strings.TrimSpace(string(body))
	if content == "" {
		return "", "", errors.New("stdin is empty")
	}

	if strings.HasPrefix(content, "http://") || strings.HasPrefix(content, "https://") {
		slog.Debug("Stdin contains URL", "url", content)
		html, err := fetchHTML(content)
		if err != nil {
			return "", "", err
		}
		return html, content, nil
	}

	return content, "stdin", nil
}
