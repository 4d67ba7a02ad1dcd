package event

import (
	"encoding/gob"
	"io"
	"log/slog"

	"github.com/golang/snappy"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// tempStore spills raw events to a snappy-compressed gob file between the
// two indexing passes.
type tempStore struct {
	fs   afero.Fs
	file afero.File
	sw   *snappy.Writer
	enc  *gob.Encoder
	n    int
}

func newTempStore(fs afero.Fs, dir string) (*tempStore, error) {
	f, err := afero.TempFile(fs, dir, "maxent-events-*.gob.sz")
	if err != nil {
		return nil, errors.Wrap(err, "event: create temp file")
	}
	sw := snappy.NewBufferedWriter(f)
	return &tempStore{
		fs:   fs,
		file: f,
		sw:   sw,
		enc:  gob.NewEncoder(sw),
	}, nil
}

func (t *tempStore) write(ev *Event) error {
	if err := t.enc.Encode(ev); err != nil {
		return errors.Wrap(err, "event: write temp file")
	}
	t.n++
	return nil
}

// rewind flushes pending writes and returns a reader positioned at the
// first stored event.
func (t *tempStore) rewind() (*tempReader, error) {
	if err := t.sw.Close(); err != nil {
		return nil, errors.Wrap(err, "event: flush temp file")
	}
	if _, err := t.file.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "event: rewind temp file")
	}
	return &tempReader{dec: gob.NewDecoder(snappy.NewReader(t.file)), remaining: t.n}, nil
}

// remove closes and deletes the file. Failures are logged only.
func (t *tempStore) remove() {
	name := t.file.Name()
	if err := t.file.Close(); err != nil {
		slog.Warn("Cannot close temp event file", "path", name, "error", err)
	}
	if err := t.fs.Remove(name); err != nil {
		slog.Warn("Cannot remove temp event file", "path", name, "error", err)
	}
}

type tempReader struct {
	dec       *gob.Decoder
	remaining int
}

func (r *tempReader) next() (*Event, error) {
	if r.remaining == 0 {
		return nil, io.EOF
	}
	var ev Event
	if err := r.dec.Decode(&ev); err != nil {
		return nil, errors.Wrap(err, "event: read temp file")
	}
	r.remaining--
	return &ev, nil
}
