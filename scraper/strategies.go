package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Provider markup drifts over time, so every extraction concern
// carries an ordered list of selectors tried in priority order. The
// first selector producing a non-empty result wins; appending a new
// known shape never touches control flow.
type selectorChain []string

// Select returns the nodes matched by the first selector in the
// chain that matches anything, or nil when none do.
func (c selectorChain) Select(doc *goquery.Document) *goquery.Selection {
	for _, sel := range c {
		if s := doc.Find(sel); s.Length() > 0 {
			return s
		}
	}
	return nil
}

// Text returns the trimmed text of the first selector that yields a
// non-empty string within s.
func (c selectorChain) Text(s *goquery.Selection) string {
	for _, sel := range c {
		if text := strings.TrimSpace(s.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// Attr returns the named attribute from the first selector that
// carries it within s.
func (c selectorChain) Attr(s *goquery.Selection, name string) string {
	for _, sel := range c {
		if v, ok := s.Find(sel).First().Attr(name); ok && v != "" {
			return v
		}
	}
	return ""
}
