// Package htmlutil loads HTML documents and extracts the text and
// structure used as document features.
package htmlutil

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/happyhackingspace/maxent/internal/textutil"
)

// LoadHTML parses HTML from r into a goquery Document.
func LoadHTML(r io.Reader) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(r)
}

// LoadHTMLString parses an HTML string into a goquery Document.
func LoadHTMLString(htmlStr string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
}

// Title returns the normalized document title.
func Title(doc *goquery.Document) string {
	return strings.TrimSpace(textutil.NormalizeWhitespaces(doc.Find("title").First().Text()))
}

// MetaContent returns the content attribute of <meta name="name">.
func MetaContent(doc *goquery.Document, name string) string {
	var content string
	doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if n, _ := s.Attr("name"); strings.EqualFold(n, name) {
			content, _ = s.Attr("content")
			return false
		}
		return true
	})
	return strings.TrimSpace(content)
}

// hiddenElems never contribute visible text.
var hiddenElems = map[string]bool{
	"head":     true,
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// VisibleText returns the text a reader would see under sel, with
// whitespace normalized and text nodes separated by a single space.
func VisibleText(sel *goquery.Selection) string {
	var parts []string
	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if trimmed := strings.TrimSpace(n.Data); trimmed != "" {
				parts = append(parts, textutil.NormalizeWhitespaces(trimmed))
			}
			return
		case html.ElementNode:
			if hiddenElems[n.Data] {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	for _, n := range sel.Nodes {
		visit(n)
	}
	return strings.Join(parts, " ")
}

// LinkTexts returns the trimmed text of every link under sel.
func LinkTexts(sel *goquery.Selection) []string {
	var texts []string
	sel.Find("a").Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			texts = append(texts, textutil.NormalizeWhitespaces(text))
		}
	})
	return texts
}

// GetForms returns all <form> elements in the document.
func GetForms(doc *goquery.Document) []*goquery.Selection {
	var forms []*goquery.Selection
	doc.Find("form").Each(func(_ int, s *goquery.Selection) {
		forms = append(forms, s)
	})
	return forms
}

// GetTypeCounts returns counts of the input types under sel.
func GetTypeCounts(sel *goquery.Selection) map[string]int {
	counts := make(map[string]int)
	sel.Find("input, textarea, select").Each(func(_ int, s *goquery.Selection) {
		tag := goquery.NodeName(s)
		switch tag {
		case "textarea":
			counts["textarea"]++
		case "select":
			counts["select"]++
		case "input":
			tp, exists := s.Attr("type")
			if !exists {
				tp = "text"
			}
			counts[strings.ToLower(tp)]++
		}
	})
	return counts
}
