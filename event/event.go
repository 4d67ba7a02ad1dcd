// Package event turns streams of labeled training examples into the
// integer-indexed training matrix consumed by the trainers.
package event

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrMalformedEvent is returned by Validate for events that cannot be indexed.
	ErrMalformedEvent = errors.New("event: malformed event")
	// ErrInsufficientData is returned when a training set has fewer than two outcomes.
	ErrInsufficientData = errors.New("event: training data must contain at least two outcomes")
)

// Event is a single training example: an outcome and the features active
// for it. Values, when present, holds one real value per context entry.
type Event struct {
	Outcome string
	Context []string
	Values  []float64
}

// Validate checks the invariants an event must satisfy before indexing.
func (e *Event) Validate() error {
	if strings.TrimSpace(e.Outcome) == "" {
		return errors.Wrap(ErrMalformedEvent, "missing outcome")
	}
	if e.Values == nil {
		return nil
	}
	if len(e.Values) != len(e.Context) {
		return errors.Wrapf(ErrMalformedEvent, "%d values for %d features", len(e.Values), len(e.Context))
	}
	for i, v := range e.Values {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Wrapf(ErrMalformedEvent, "feature %q has invalid value %v", e.Context[i], v)
		}
	}
	return nil
}

// String renders the event the way plain event files store it. Features
// without a matching value are written bare.
func (e *Event) String() string {
	var sb strings.Builder
	sb.WriteString(e.Outcome)
	for i, c := range e.Context {
		sb.WriteByte(' ')
		sb.WriteString(c)
		if i < len(e.Values) {
			fmt.Fprintf(&sb, "=%g", e.Values[i])
		}
	}
	return sb.String()
}

// Stream is a finite, restartable sequence of events. Next returns io.EOF
// once the stream is exhausted; Reset rewinds it to the first event.
type Stream interface {
	Next() (*Event, error)
	Reset() error
}

// SliceStream serves events from memory.
type SliceStream struct {
	events []Event
	pos    int
}

// NewSliceStream creates a stream over events.
func NewSliceStream(events []Event) *SliceStream {
	return &SliceStream{events: events}
}

// Next implements Stream.
func (s *SliceStream) Next() (*Event, error) {
	if s.pos >= len(s.events) {
		return nil, io.EOF
	}
	ev := &s.events[s.pos]
	s.pos++
	return ev, nil
}

// Reset implements Stream.
func (s *SliceStream) Reset() error {
	s.pos = 0
	return nil
}

// Collect drains a stream into memory. The stream is reset first.
func Collect(s Stream) ([]Event, error) {
	if err := s.Reset(); err != nil {
		return nil, errors.Wrap(err, "event: reset stream")
	}
	var events []Event
	for {
		ev, err := s.Next()
		if err == io.EOF {
			return events, nil
		}
		if err != nil {
			return nil, err
		}
		events = append(events, *ev)
	}
}
