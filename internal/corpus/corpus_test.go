package corpus

import (
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/happyhackingspace/maxent/event"
	"github.com/happyhackingspace/maxent/internal/features"
)

func writeFile(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
}

func TestPlainStream(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/data/events.txt", "yes a b\n\n  no c  \nmaybe\n")

	s, err := NewPlainStream(fs, "/data/events.txt")
	require.NoError(t, err)
	defer s.Close()

	events, err := event.Collect(s)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, event.Event{Outcome: "yes", Context: []string{"a", "b"}}, events[0])
	assert.Equal(t, "no", events[1].Outcome)
	assert.Equal(t, []string{"c"}, events[1].Context)
	assert.Empty(t, events[2].Context)

	// Streams restart from the first line.
	require.NoError(t, s.Reset())
	ev, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, "yes", ev.Outcome)
}

func TestPlainStreamMissingFile(t *testing.T) {
	_, err := NewPlainStream(afero.NewMemMapFs(), "/nope.txt")
	assert.Error(t, err)
}

func TestParseRealValued(t *testing.T) {
	ev, err := ParseRealValued("out f=1.5 g h=x k=-2 =3")
	require.NoError(t, err)
	assert.Equal(t, "out", ev.Outcome)
	assert.Equal(t, []string{"f", "g", "h=x", "k", "=3"}, ev.Context)
	assert.Equal(t, []float64{1.5, 1, 1, -2, 1}, ev.Values)
	assert.ErrorIs(t, ev.Validate(), event.ErrMalformedEvent)
}

func TestRealValueStreamIndexing(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/rv.txt", "a x=2 y=0.5\nb x=-1\nb y=3\n")

	s, err := NewRealValueStream(fs, "/rv.txt")
	require.NoError(t, err)
	defer s.Close()

	set, err := event.NewOnePassIndexer(event.IndexConfig{Cutoff: 1}).Index(s)
	require.NoError(t, err)
	// The negative-valued event is dropped as malformed.
	assert.Equal(t, 2, set.NumEvents())
	require.NotNil(t, set.Values)
	assert.Equal(t, []float64{2, 0.5}, set.Values[0])
	assert.Equal(t, []float64{3}, set.Values[1])
}

func TestParsePPA(t *testing.T) {
	ev, err := ParsePPA("0 join board as director V")
	require.NoError(t, err)
	assert.Equal(t, "V", ev.Outcome)
	assert.Equal(t, []string{"verb=join", "noun=board", "prep=as", "prep_obj=director"}, ev.Context)

	_, err = ParsePPA("0 join board as V")
	assert.Error(t, err)
}

func TestPPAStreamSkipsBadLines(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/ppa/training", "0 join board as director V\nbroken line\n1 is chairman of N.V. N\n")

	s, err := NewPPAStream(fs, "/ppa/training")
	require.NoError(t, err)
	defer s.Close()

	events, err := event.Collect(s)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "N", events[1].Outcome)
	assert.Equal(t, "prep_obj=N.V.", events[1].Context[3])
}

func TestParseTagged(t *testing.T) {
	s, err := ParseTagged("The_DT snake_case_NN runs_VBZ")
	require.NoError(t, err)
	assert.Equal(t, []string{"The", "snake_case", "runs"}, s.Tokens)
	assert.Equal(t, []string{"DT", "NN", "VBZ"}, s.Tags)

	for _, bad := range []string{"word", "_TAG", "word_"} {
		_, err := ParseTagged(bad)
		assert.Error(t, err, bad)
	}
}

func TestReadSentences(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/tagged.txt", "He_PRP ran_VBD\nbad\n\nIt_PRP is_VBZ ._.\n")

	sents, err := ReadSentences(fs, "/tagged.txt")
	require.NoError(t, err)
	require.Len(t, sents, 2)
	assert.Equal(t, []string{"It", "is", "."}, sents[1].Tokens)
	assert.Equal(t, []string{"PRP", "VBZ", "."}, sents[1].Tags)
}

func TestDomain(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.example.co.uk/login", "example"},
		{"http://news.test.com:8080/a?b=c", "test"},
		{"example.org", "example"},
		{"localhost", "localhost"},
	}
	for _, tt := range tests {
		if got := Domain(tt.url); got != tt.want {
			t.Errorf("Domain(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

const loginPage = `<html><head><title>Sign In</title></head><body>
<p>Welcome back</p>
<form><input name="u"><input type="password" name="p"></form>
<a href="/r">Register</a>
</body></html>`

func htmlCollection(t *testing.T) afero.Fs {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/docs/index.json", `{
		"a.html": {"url": "https://www.example.co.uk/x", "label": "login"},
		"b.html": {"url": "http://news.test.com/", "label": "article"},
		"c.html": {"url": "https://zzz.org/", "label": "login"},
		"d.html": {"url": "https://aaa.org/", "label": ""},
		"e.html": {"url": "https://aab.org/", "label": "article"}
	}`)
	writeFile(t, fs, "/docs/a.html", loginPage)
	writeFile(t, fs, "/docs/b.html", `<html><body><h1>Breaking news</h1></body></html>`)
	writeFile(t, fs, "/docs/c.html", loginPage)
	writeFile(t, fs, "/docs/d.html", `<p>unlabeled</p>`)
	return fs
}

func TestReadDocuments(t *testing.T) {
	fs := htmlCollection(t)

	docs, err := ReadDocuments(fs, "/docs", true)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a.html", docs[0].Path)
	assert.Equal(t, "example", docs[0].Domain)
	assert.Equal(t, "b.html", docs[1].Path)

	docs, err = ReadDocuments(fs, "/docs", false)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "c.html", docs[2].Path)
}

func TestReadDocumentsMissingIndex(t *testing.T) {
	_, err := ReadDocuments(afero.NewMemMapFs(), "/docs", true)
	assert.Error(t, err)
}

func TestDocumentEvent(t *testing.T) {
	ev, err := DocumentEvent(Document{Path: "a.html", Domain: "example", Label: "login", HTML: loginPage},
		DefaultHTMLOptions().Features)
	require.NoError(t, err)
	assert.Equal(t, "login", ev.Outcome)
	assert.Equal(t, []string{
		"title=sign", "title=in",
		"w=welcome", "w=back", "w=register",
		"ng=welcome_back", "ng=back_register",
		"link=register",
		"input=password", "input=text",
		"domain=example",
	}, ev.Context)
}

func TestDocumentStream(t *testing.T) {
	s, err := NewDocumentStream(htmlCollection(t), "/docs", DefaultHTMLOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"example", "test"}, s.Groups())

	for pass := 0; pass < 2; pass++ {
		var outcomes []string
		for {
			ev, err := s.Next()
			if err == io.EOF {
				break
			}
			require.NoError(t, err)
			outcomes = append(outcomes, ev.Outcome)
		}
		assert.Equal(t, []string{"login", "article"}, outcomes)
		require.NoError(t, s.Reset())
	}
}

func TestDocumentStreamGroupsFollowEvents(t *testing.T) {
	docs := []Document{
		{Path: "a.html", Domain: "alpha", Label: "login", HTML: "<title>a</title>"},
		{Path: "broken.html", Domain: "beta", Label: "login"},
		{Path: "c.html", Domain: "gamma", Label: "article", HTML: "<title>c</title>"},
	}
	extract := func(d Document, set features.Set) (*event.Event, error) {
		if d.HTML == "" {
			return nil, errors.New("empty document")
		}
		return DocumentEvent(d, set)
	}
	s := newDocumentStream(docs, DefaultHTMLOptions().Features, extract)

	events, err := event.Collect(s)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, []string{"alpha", "gamma"}, s.Groups())
	assert.Len(t, s.Documents(), len(events))
	assert.Equal(t, "article", events[1].Outcome)
}
