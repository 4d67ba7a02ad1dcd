// Package features turns raw text into maxent context predicates.
package features

import (
	"strings"

	"github.com/happyhackingspace/maxent/internal/textutil"
)

// Generator produces context predicates for a piece of text.
type Generator interface {
	Features(text string) []string
}

// BagOfWords emits "w=<token>" for every lowercased token.
type BagOfWords struct{}

// Features implements Generator.
func (BagOfWords) Features(text string) []string {
	tokens := textutil.Tokenize(strings.ToLower(text))
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		out[i] = "w=" + tok
	}
	return out
}

// TokenNgrams emits "ng=<t1>_<t2>..." for token n-grams of length Min to
// Max.
type TokenNgrams struct {
	Min, Max int
}

// Features implements Generator.
func (g TokenNgrams) Features(text string) []string {
	tokens := textutil.Tokenize(strings.ToLower(text))
	grams := textutil.TokenNgrams(tokens, max(g.Min, 2), g.Max, "_")
	for i, ng := range grams {
		grams[i] = "ng=" + ng
	}
	return grams
}

// CharNgrams emits "cg=<ngram>" for character n-grams inside word
// boundaries. Each token is padded with a space on both sides.
type CharNgrams struct {
	Min, Max int
}

// Features implements Generator.
func (g CharNgrams) Features(text string) []string {
	var out []string
	for _, tok := range textutil.Tokenize(strings.ToLower(text)) {
		for _, ng := range textutil.Ngrams(" "+tok+" ", g.Min, g.Max) {
			out = append(out, "cg="+ng)
		}
	}
	return out
}

// NumberPatterns emits "num=<pattern>" for tokens that are mostly digits.
type NumberPatterns struct {
	Ratio float64
}

// Features implements Generator.
func (g NumberPatterns) Features(text string) []string {
	var out []string
	for _, tok := range textutil.Tokenize(text) {
		if p := textutil.NumberPattern(tok, g.Ratio); p != "" {
			out = append(out, "num="+p)
		}
	}
	return out
}

// Set runs several generators and concatenates their output. With Binary
// set, repeated predicates are reported once, in first-seen order.
type Set struct {
	Generators []Generator
	Binary     bool
}

// Default is bag of words plus token bigrams, binary.
func Default() Set {
	return Set{
		Generators: []Generator{BagOfWords{}, TokenNgrams{Min: 2, Max: 2}},
		Binary:     true,
	}
}

// Features implements Generator.
func (s Set) Features(text string) []string {
	var out []string
	for _, g := range s.Generators {
		out = append(out, g.Features(text)...)
	}
	if !s.Binary {
		return out
	}
	seen := make(map[string]bool, len(out))
	uniq := out[:0]
	for _, f := range out {
		if !seen[f] {
			seen[f] = true
			uniq = append(uniq, f)
		}
	}
	return uniq
}
