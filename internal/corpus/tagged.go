package corpus

import (
	"bufio"
	"io"
	"log/slog"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// Sentence is a tokenized sentence with one tag per token.
type Sentence struct {
	Tokens []string
	Tags   []string
}

// ParseTagged parses a "word_TAG word_TAG ..." line. The tag follows the
// last underscore so that words may contain underscores themselves.
func ParseTagged(line string) (Sentence, error) {
	fields := strings.Fields(line)
	s := Sentence{
		Tokens: make([]string, len(fields)),
		Tags:   make([]string, len(fields)),
	}
	for i, f := range fields {
		j := strings.LastIndexByte(f, '_')
		if j <= 0 || j == len(f)-1 {
			return Sentence{}, errors.Errorf("token %q has no tag", f)
		}
		s.Tokens[i], s.Tags[i] = f[:j], f[j+1:]
	}
	return s, nil
}

// ReadSentences reads every tagged sentence of a file, skipping blank and
// unparsable lines.
func ReadSentences(fs afero.Fs, path string) ([]Sentence, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "corpus: open %s", path)
	}
	defer f.Close()
	return readSentences(f, path)
}

func readSentences(r io.Reader, path string) ([]Sentence, error) {
	var out []Sentence
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		s, err := ParseTagged(line)
		if err != nil {
			slog.Warn("Skipping unparsable sentence", "path", path, "line", lineNo, "error", err)
			continue
		}
		out = append(out, s)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrapf(err, "corpus: read %s", path)
	}
	return out, nil
}
