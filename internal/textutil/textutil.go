// Package textutil provides the text processing shared by feature
// generators and the tagger.
package textutil

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var tokenizeRe = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Tokenize extracts word tokens from text (Unicode letters, digits and underscore).
func Tokenize(text string) []string {
	return tokenizeRe.FindAllString(text, -1)
}

// Ngrams returns minN to maxN character-level n-grams of s.
func Ngrams(s string, minN, maxN int) []string {
	runes := []rune(s)
	textLen := len(runes)
	var res []string
	for n := minN; n <= maxN && n <= textLen; n++ {
		for i := 0; i <= textLen-n; i++ {
			res = append(res, string(runes[i:i+n]))
		}
	}
	return res
}

// TokenNgrams returns n-grams of tokens joined by sep.
func TokenNgrams(tokens []string, minN, maxN int, sep string) []string {
	tLen := len(tokens)
	var res []string
	for n := minN; n <= maxN && n <= tLen; n++ {
		for i := 0; i <= tLen-n; i++ {
			res = append(res, strings.Join(tokens[i:i+n], sep))
		}
	}
	return res
}

var multiSpaceRe = regexp.MustCompile(`\s+`)

// NormalizeWhitespaces collapses runs of whitespace, newlines included,
// into a single space.
func NormalizeWhitespaces(text string) string {
	return multiSpaceRe.ReplaceAllString(text, " ")
}

// Normalize lowercases text and normalizes whitespace.
func Normalize(text string) string {
	return NormalizeWhitespaces(strings.ToLower(text))
}

// NumberPattern maps digits to X and letters to C when at least ratio of
// the runes are digits. It returns "" otherwise.
func NumberPattern(text string, ratio float64) string {
	if text == "" {
		return ""
	}

	digits := 0
	for _, r := range text {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	if float64(digits)/float64(utf8.RuneCountInString(text)) < ratio {
		return ""
	}

	var buf strings.Builder
	for _, r := range text {
		switch {
		case unicode.IsDigit(r):
			buf.WriteRune('X')
		case unicode.IsLetter(r):
			buf.WriteRune('C')
		default:
			buf.WriteRune(r)
		}
	}
	return buf.String()
}

// Shape summarizes the character classes of a word, collapsing repeats:
// "Hello" -> "Xx", "NASA" -> "X", "3.14" -> "d.d", "e-mail" -> "x-x".
func Shape(word string) string {
	var buf strings.Builder
	var last rune
	for _, r := range word {
		var c rune
		switch {
		case unicode.IsUpper(r):
			c = 'X'
		case unicode.IsLetter(r):
			c = 'x'
		case unicode.IsDigit(r):
			c = 'd'
		default:
			c = r
		}
		if c != last {
			buf.WriteRune(c)
			last = c
		}
	}
	return buf.String()
}

// Prefixes returns the prefixes of word of length 1 to n, shortest first.
// Prefixes as long as the word itself are skipped.
func Prefixes(word string, n int) []string {
	runes := []rune(word)
	var res []string
	for i := 1; i <= n && i < len(runes); i++ {
		res = append(res, string(runes[:i]))
	}
	return res
}

// Suffixes returns the suffixes of word of length 1 to n, shortest first.
// Suffixes as long as the word itself are skipped.
func Suffixes(word string, n int) []string {
	runes := []rune(word)
	var res []string
	for i := 1; i <= n && i < len(runes); i++ {
		res = append(res, string(runes[len(runes)-i:]))
	}
	return res
}
