package corpus

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"golang.org/x/net/publicsuffix"

	"github.com/happyhackingspace/maxent/event"
	"github.com/happyhackingspace/maxent/internal/features"
	"github.com/happyhackingspace/maxent/internal/htmlutil"
	"github.com/happyhackingspace/maxent/internal/textutil"
)

// indexEntry is a single entry of index.json.
type indexEntry struct {
	URL   string `json:"url"`
	Label string `json:"label"`
}

// Document is a labeled HTML page of a collection.
type Document struct {
	Path   string
	URL    string
	Domain string
	Label  string
	HTML   string
}

// HTMLOptions controls how a document collection is turned into events.
type HTMLOptions struct {
	Features       features.Set
	DropDuplicates bool
}

// DefaultHTMLOptions returns default features and deduplication.
func DefaultHTMLOptions() HTMLOptions {
	return HTMLOptions{Features: features.Default(), DropDuplicates: true}
}

// ReadDocuments loads a document collection: a folder with index.json
// mapping relative HTML paths to their URL and label. Documents are
// ordered by domain, then path.
func ReadDocuments(fs afero.Fs, folder string, dropDuplicates bool) ([]Document, error) {
	data, err := afero.ReadFile(fs, filepath.Join(folder, "index.json"))
	if err != nil {
		return nil, errors.Wrap(err, "corpus: read index")
	}
	var index map[string]indexEntry
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, errors.Wrap(err, "corpus: parse index")
	}

	docs := make([]Document, 0, len(index))
	for path, info := range index {
		docs = append(docs, Document{Path: path, URL: info.URL, Domain: Domain(info.URL), Label: info.Label})
	}
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].Domain != docs[j].Domain {
			return docs[i].Domain < docs[j].Domain
		}
		return docs[i].Path < docs[j].Path
	})

	seen := make(map[string]bool)
	out := docs[:0]
	for _, d := range docs {
		if d.Label == "" {
			slog.Warn("Skipping unlabeled document", "path", d.Path)
			continue
		}
		html, err := afero.ReadFile(fs, filepath.Join(folder, d.Path))
		if err != nil {
			slog.Warn("Cannot read document", "path", d.Path, "error", err)
			continue
		}
		if dropDuplicates {
			hash := fmt.Sprintf("%x", md5.Sum(html))
			if seen[hash] {
				continue
			}
			seen[hash] = true
		}
		d.HTML = string(html)
		out = append(out, d)
	}
	return out, nil
}

// DocumentEvent extracts context predicates from an HTML document.
func DocumentEvent(d Document, set features.Set) (*event.Event, error) {
	doc, err := htmlutil.LoadHTMLString(d.HTML)
	if err != nil {
		return nil, errors.Wrapf(err, "corpus: parse %s", d.Path)
	}
	var ctx []string
	for _, tok := range textutil.Tokenize(strings.ToLower(htmlutil.Title(doc))) {
		ctx = append(ctx, "title="+tok)
	}
	ctx = append(ctx, set.Features(htmlutil.VisibleText(doc.Selection))...)
	for _, link := range htmlutil.LinkTexts(doc.Selection) {
		for _, tok := range textutil.Tokenize(strings.ToLower(link)) {
			ctx = append(ctx, "link="+tok)
		}
	}
	for _, form := range htmlutil.GetForms(doc) {
		counts := htmlutil.GetTypeCounts(form)
		types := make([]string, 0, len(counts))
		for tp := range counts {
			types = append(types, tp)
		}
		sort.Strings(types)
		for _, tp := range types {
			ctx = append(ctx, "input="+tp)
		}
	}
	if d.Domain != "" {
		ctx = append(ctx, "domain="+d.Domain)
	}
	return &event.Event{Outcome: d.Label, Context: dedup(ctx)}, nil
}

func dedup(ctx []string) []string {
	seen := make(map[string]bool, len(ctx))
	out := ctx[:0]
	for _, c := range ctx {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// DocumentStream is a restartable event stream over a document collection.
// Events are extracted once up front; documents that fail to parse are
// dropped so that Documents and Groups stay aligned with the events.
type DocumentStream struct {
	docs   []Document
	events []*event.Event
	pos    int
}

// NewDocumentStream reads a collection and streams one event per document.
func NewDocumentStream(fs afero.Fs, folder string, opts HTMLOptions) (*DocumentStream, error) {
	docs, err := ReadDocuments(fs, folder, opts.DropDuplicates)
	if err != nil {
		return nil, err
	}
	return newDocumentStream(docs, opts.Features, DocumentEvent), nil
}

func newDocumentStream(docs []Document, set features.Set, extract func(Document, features.Set) (*event.Event, error)) *DocumentStream {
	s := &DocumentStream{}
	for _, d := range docs {
		ev, err := extract(d, set)
		if err != nil {
			slog.Warn("Skipping document", "path", d.Path, "error", err)
			continue
		}
		s.docs = append(s.docs, d)
		s.events = append(s.events, ev)
	}
	return s
}

// Next implements event.Stream.
func (s *DocumentStream) Next() (*event.Event, error) {
	if s.pos >= len(s.events) {
		return nil, io.EOF
	}
	ev := *s.events[s.pos]
	ev.Context = append([]string(nil), ev.Context...)
	s.pos++
	return &ev, nil
}

// Reset implements event.Stream.
func (s *DocumentStream) Reset() error {
	s.pos = 0
	return nil
}

// Groups returns the domain behind every streamed event, in stream order,
// for grouped cross-validation.
func (s *DocumentStream) Groups() []string {
	groups := make([]string, len(s.docs))
	for i, d := range s.docs {
		groups[i] = d.Domain
	}
	return groups
}

// Documents returns the documents that produced an event.
func (s *DocumentStream) Documents() []Document {
	return s.docs
}

// Domain extracts the registrable name of a URL's host without its
// public suffix, e.g. "example" for "https://www.example.co.uk/a".
func Domain(rawURL string) string {
	host := rawURL
	if idx := strings.Index(host, "://"); idx >= 0 {
		host = host[idx+3:]
	}
	if idx := strings.Index(host, "/"); idx >= 0 {
		host = host[:idx]
	}
	if idx := strings.Index(host, ":"); idx >= 0 {
		host = host[:idx]
	}

	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	if idx := strings.Index(domain, "."); idx >= 0 {
		return domain[:idx]
	}
	return domain
}
