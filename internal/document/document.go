// Package document adapts goquery selections to the harvest.Node query interface.
package document

import (
	"bytes"
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/hoops-harvester/internal/harvest"
)

// Parser builds goquery documents from fetched pages.
type Parser struct{}

// NewParser returns a Parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse implements harvest.Parser.
func (Parser) Parse(page harvest.Page) (harvest.Node, error) {
	return FromBytes(page.Body)
}

// FromBytes parses raw HTML into a document root node.
func FromBytes(body []byte) (harvest.Node, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return Wrap(doc.Selection), nil
}

// Selection is a harvest.Node over a goquery selection.
type Selection struct {
	sel *goquery.Selection
}

// Wrap returns sel as a harvest.Node.
func Wrap(sel *goquery.Selection) *Selection {
	return &Selection{sel: sel}
}

// Find implements harvest.Node.
func (s *Selection) Find(selector string) []harvest.Node {
	matches := s.sel.Find(selector)
	out := make([]harvest.Node, 0, matches.Length())
	matches.Each(func(_ int, m *goquery.Selection) {
		out = append(out, Wrap(m))
	})
	return out
}

// First implements harvest.Node.
func (s *Selection) First(selector string) (harvest.Node, bool) {
	match := s.sel.Find(selector).First()
	if match.Length() == 0 {
		return nil, false
	}
	return Wrap(match), true
}

// Text implements harvest.Node.
func (s *Selection) Text() string {
	return s.sel.Text()
}

// Attr implements harvest.Node.
func (s *Selection) Attr(name string) (string, bool) {
	return s.sel.Attr(name)
}

// HasClass reports whether the node carries the class.
func (s *Selection) HasClass(class string) bool {
	return s.sel.HasClass(class)
}
