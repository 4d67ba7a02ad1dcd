package corpus

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/happyhackingspace/maxent/event"
)

// ParsePPA parses a prepositional phrase attachment line
// "id verb noun prep pobj label" into an event labeled with the
// attachment site.
func ParsePPA(line string) (*event.Event, error) {
	f := strings.Fields(line)
	if len(f) != 6 {
		return nil, errors.Errorf("expected 6 fields, got %d", len(f))
	}
	return &event.Event{
		Outcome: f[5],
		Context: []string{
			"verb=" + f[1],
			"noun=" + f[2],
			"prep=" + f[3],
			"prep_obj=" + f[4],
		},
	}, nil
}

// NewPPAStream opens a PrepAttach data file.
func NewPPAStream(fs afero.Fs, path string) (*PlainStream, error) {
	s, err := newLineStream(fs, path, ParsePPA)
	if err != nil {
		return nil, err
	}
	return &PlainStream{s}, nil
}
