package model

import (
	"compress/gzip"
	"encoding/json"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

type serializedModel struct {
	Algorithm          string    `json:"algorithm"`
	CorrectionConstant float64   `json:"correction_constant,omitempty"`
	Outcomes           []string  `json:"outcomes"`
	Predicates         []string  `json:"predicates"`
	Weights            []float64 `json:"weights"` // [numPredicates*numOutcomes]
}

// MarshalJSON implements json.Marshaler.
func (m *Model) MarshalJSON() ([]byte, error) {
	return json.Marshal(serializedModel{
		Algorithm:          m.algorithm,
		CorrectionConstant: m.correction,
		Outcomes:           m.outcomes,
		Predicates:         m.predicates,
		Weights:            m.weights,
	})
}

// UnmarshalJSON implements json.Unmarshaler. The decoded model is
// validated the same way New validates its arguments.
func (m *Model) UnmarshalJSON(data []byte) error {
	var sm serializedModel
	if err := json.Unmarshal(data, &sm); err != nil {
		return errors.Wrap(ErrCorruptModel, err.Error())
	}
	if sm.Predicates == nil {
		sm.Predicates = []string{}
	}
	loaded, err := New(sm.Algorithm, sm.Predicates, sm.Outcomes, sm.Weights, sm.CorrectionConstant)
	if err != nil {
		return err
	}
	*m = *loaded
	return nil
}

// Write encodes the model as JSON.
func (m *Model) Write(w io.Writer) error {
	return errors.Wrap(json.NewEncoder(w).Encode(m), "model: encode")
}

// Read decodes a JSON model.
func Read(r io.Reader) (*Model, error) {
	var m Model
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Save writes the model to path on the OS filesystem.
func (m *Model) Save(path string) error {
	return m.SaveFs(afero.NewOsFs(), path)
}

// SaveFs writes the model to path, gzip-compressed when the path ends in
// ".gz".
func (m *Model) SaveFs(fs afero.Fs, path string) error {
	f, err := fs.Create(path)
	if err != nil {
		return errors.Wrapf(err, "model: create %s", path)
	}
	defer f.Close()

	var w io.Writer = f
	var zw *gzip.Writer
	if strings.HasSuffix(path, ".gz") {
		zw = gzip.NewWriter(f)
		w = zw
	}
	if err := m.Write(w); err != nil {
		return err
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			return errors.Wrapf(err, "model: compress %s", path)
		}
	}
	return errors.Wrapf(f.Close(), "model: close %s", path)
}

// Load reads a model from path on the OS filesystem.
func Load(path string) (*Model, error) {
	return LoadFs(afero.NewOsFs(), path)
}

// LoadFs reads a model saved by SaveFs.
func LoadFs(fs afero.Fs, path string) (*Model, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "model: open %s", path)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(ErrCorruptModel, err.Error())
		}
		defer zr.Close()
		r = zr
	}
	m, err := Read(r)
	if err != nil {
		return nil, errors.Wrapf(err, "model: load %s", path)
	}
	return m, nil
}
