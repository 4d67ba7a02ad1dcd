package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/happyhackingspace/maxent"
	"github.com/happyhackingspace/maxent/beam"
	"github.com/happyhackingspace/maxent/internal/tagger"
)

func (c *CLI) newTagCommand() *cobra.Command {
	var modelPath string
	var beamSize, topK int
	var bio bool

	cmd := &cobra.Command{
		Use:   "tag [file]",
		Short: "Tag whitespace-tokenized sentences, one per line",
		Args:  cobra.MaximumNArgs(1),
		Example: `  echo "The dog runs ." | maxent tag --model pos.json
  maxent tag sentences.txt --model chunk.json --bio --top 3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && isStdinTerminal() {
				return cmd.Help()
			}
			m, err := maxent.Load(modelPath)
			if err != nil {
				return err
			}
			opts := []tagger.Option{tagger.WithBeamSize(beamSize), tagger.WithCacheSize(10000)}
			if bio {
				opts = append(opts, tagger.WithValidator(beam.BIOValidator{}))
			}
			tg := tagger.New(m, opts...)

			in := io.Reader(os.Stdin)
			if len(args) == 1 {
				f, err := c.fs.Open(args[0])
				if err != nil {
					return errors.Wrap(err, "open input")
				}
				defer f.Close()
				in = f
			}
			return tagLines(tg, in, os.Stdout, topK)
		},
	}

	cmd.Flags().StringVar(&modelPath, "model", "model.json", "Path to a model trained with --format tagged")
	cmd.Flags().IntVar(&beamSize, "beam", beam.DefaultSize, "Beam size")
	cmd.Flags().IntVar(&topK, "top", 1, "Number of tag sequences to print per sentence")
	cmd.Flags().BoolVar(&bio, "bio", false, "Only produce well-formed BIO chunk tags")
	return cmd
}

// tagLines writes each sentence as word_TAG tokens. With k > 1 every
// sequence is printed on its own line, prefixed by its score.
func tagLines(tg *tagger.Tagger, in io.Reader, out io.Writer, k int) error {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		tokens := strings.Fields(sc.Text())
		if len(tokens) == 0 {
			fmt.Fprintln(out)
			continue
		}
		if k <= 1 {
			fmt.Fprintln(out, join(tokens, tg.Tag(tokens)))
			continue
		}
		for _, seq := range tg.TopK(tokens, k) {
			fmt.Fprintf(out, "%.4f\t%s\n", seq.Score, join(tokens, seq.Outcomes))
		}
	}
	return errors.Wrap(sc.Err(), "read input")
}

func join(tokens, tags []string) string {
	parts := make([]string, len(tokens))
	for i, tok := range tokens {
		tag := "?"
		if i < len(tags) {
			tag = tags[i]
		}
		parts[i] = tok + "_" + tag
	}
	return strings.Join(parts, " ")
}
