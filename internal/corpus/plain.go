// Package corpus reads training data from files into restartable event
// streams.
package corpus

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/happyhackingspace/maxent/event"
)

// ParsePlain parses "outcome f1 f2 ...".
func ParsePlain(line string) (*event.Event, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, errors.New("empty line")
	}
	return &event.Event{Outcome: fields[0], Context: fields[1:]}, nil
}

// ParseRealValued parses "outcome f1=1.5 f2 ...". A feature without a
// numeric "=value" suffix has value 1 and keeps its full text as the
// predicate. Negative values are kept so that indexing rejects the event.
func ParseRealValued(line string) (*event.Event, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, errors.New("empty line")
	}
	ev := &event.Event{
		Outcome: fields[0],
		Context: make([]string, 0, len(fields)-1),
		Values:  make([]float64, 0, len(fields)-1),
	}
	for _, f := range fields[1:] {
		pred, value := f, 1.0
		if i := strings.LastIndexByte(f, '='); i > 0 && i < len(f)-1 {
			if v, err := strconv.ParseFloat(f[i+1:], 64); err == nil {
				pred, value = f[:i], v
			}
		}
		ev.Context = append(ev.Context, pred)
		ev.Values = append(ev.Values, value)
	}
	return ev, nil
}

// PlainStream reads plain event files, one event per line.
type PlainStream struct {
	*lineStream
}

// NewPlainStream opens a plain event file.
func NewPlainStream(fs afero.Fs, path string) (*PlainStream, error) {
	s, err := newLineStream(fs, path, ParsePlain)
	if err != nil {
		return nil, err
	}
	return &PlainStream{s}, nil
}

// NewRealValueStream opens an event file with real-valued features.
func NewRealValueStream(fs afero.Fs, path string) (*PlainStream, error) {
	s, err := newLineStream(fs, path, ParseRealValued)
	if err != nil {
		return nil, err
	}
	return &PlainStream{s}, nil
}
