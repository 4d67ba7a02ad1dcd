package cli

import (
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/happyhackingspace/maxent/event"
	"github.com/happyhackingspace/maxent/internal/corpus"
	"github.com/happyhackingspace/maxent/internal/tagger"
)

// Data formats accepted by --format.
const (
	formatPlain  = "plain"
	formatReal   = "real"
	formatPPA    = "ppa"
	formatHTML   = "html"
	formatTagged = "tagged"
)

var formats = []string{formatPlain, formatReal, formatPPA, formatHTML, formatTagged}

type dataFlags struct {
	path   string
	format string
}

func (d *dataFlags) register(cmd *cobra.Command, usage string) {
	cmd.Flags().StringVar(&d.path, "data", "", usage)
	cmd.Flags().StringVar(&d.format, "format", formatPlain, "Data format: plain, real, ppa, html or tagged")
	_ = cmd.MarkFlagRequired("data")
}

// dataset is an opened event source. groups is set for document
// collections so that cross-validation keeps a domain in one fold.
type dataset struct {
	stream event.Stream
	groups []string
	close  func() error
}

func openDataset(fs afero.Fs, d dataFlags) (*dataset, error) {
	switch d.format {
	case formatPlain, formatReal, formatPPA:
		open := map[string]func(afero.Fs, string) (*corpus.PlainStream, error){
			formatPlain: corpus.NewPlainStream,
			formatReal:  corpus.NewRealValueStream,
			formatPPA:   corpus.NewPPAStream,
		}[d.format]
		s, err := open(fs, d.path)
		if err != nil {
			return nil, err
		}
		return &dataset{stream: s, close: s.Close}, nil
	case formatHTML:
		s, err := corpus.NewDocumentStream(fs, d.path, corpus.DefaultHTMLOptions())
		if err != nil {
			return nil, err
		}
		return &dataset{stream: s, groups: s.Groups(), close: func() error { return nil }}, nil
	case formatTagged:
		sents, err := corpus.ReadSentences(fs, d.path)
		if err != nil {
			return nil, err
		}
		gen := tagger.DefaultContextGenerator()
		return &dataset{stream: tagger.NewEventStream(sents, gen), close: func() error { return nil }}, nil
	}
	return nil, errors.Errorf("unknown data format %q (want one of %v)", d.format, formats)
}
