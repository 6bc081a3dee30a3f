package feed

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed/atom"

	"AptScanner/internal/domain"
	"AptScanner/internal/ports"
)

// AtomParser extracts listing entries from an Atom document.
type AtomParser struct {
	parser *atom.Parser
}

var _ ports.FeedParser = (*AtomParser)(nil)

// NewAtomParser builds a parser backed by gofeed's Atom implementation.
func NewAtomParser() *AtomParser {
	return &AtomParser{parser: &atom.Parser{}}
}

// Parse returns entries in document order. A malformed document or an entry
// without an id fails the whole parse.
func (p *AtomParser) Parse(data []byte) ([]domain.Entry, error) {
	doc, err := p.parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse atom: %w", err)
	}

	entries := make([]domain.Entry, 0, len(doc.Entries))
	for i, item := range doc.Entries {
		if item == nil {
			continue
		}

		id := strings.TrimSpace(item.ID)
		if id == "" {
			return nil, fmt.Errorf("entry %d has no id", i)
		}

		var body string
		if item.Content != nil {
			body = item.Content.Value
		}

		entries = append(entries, domain.Entry{
			ID:            id,
			Title:         strings.TrimSpace(item.Title),
			Link:          entryLink(item.Links),
			PublishedDate: datePart(item.Updated),
			BodyHTML:      body,
		})
	}

	return entries, nil
}

// entryLink prefers the alternate link; Atom treats a missing rel as alternate.
func entryLink(links []*atom.Link) string {
	var first string
	for _, l := range links {
		if l == nil {
			continue
		}
		if first == "" {
			first = l.Href
		}
		if l.Rel == "" || l.Rel == "alternate" {
			return l.Href
		}
	}
	return first
}

func datePart(updated string) string {
	day, _, _ := strings.Cut(strings.TrimSpace(updated), "T")
	return day
}
