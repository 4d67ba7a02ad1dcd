package corpus

import (
	"bufio"
	"io"
	"log/slog"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/happyhackingspace/maxent/event"
)

const maxLineSize = 1 << 20

// lineStream reads one event per non-blank line of a file.
type lineStream struct {
	fs    afero.Fs
	path  string
	parse func(line string) (*event.Event, error)

	file    afero.File
	scanner *bufio.Scanner
	lineNo  int
}

func newLineStream(fs afero.Fs, path string, parse func(string) (*event.Event, error)) (*lineStream, error) {
	s := &lineStream{fs: fs, path: path, parse: parse}
	if err := s.Reset(); err != nil {
		return nil, err
	}
	return s, nil
}

// Next implements event.Stream.
func (s *lineStream) Next() (*event.Event, error) {
	for s.scanner.Scan() {
		s.lineNo++
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" {
			continue
		}
		ev, err := s.parse(line)
		if err != nil {
			slog.Warn("Skipping unparsable line", "path", s.path, "line", s.lineNo, "error", err)
			continue
		}
		return ev, nil
	}
	if err := s.scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "corpus: read %s", s.path)
	}
	return nil, io.EOF
}

// Reset implements event.Stream by reopening the file.
func (s *lineStream) Reset() error {
	if s.file != nil {
		s.file.Close()
	}
	f, err := s.fs.Open(s.path)
	if err != nil {
		return errors.Wrapf(err, "corpus: open %s", s.path)
	}
	s.file = f
	s.scanner = bufio.NewScanner(f)
	s.scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	s.lineNo = 0
	return nil
}

// Close releases the underlying file.
func (s *lineStream) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
