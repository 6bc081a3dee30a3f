package classifier

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PlainText strips markup from a feed body and collapses whitespace.
// Bodies that cannot be parsed are returned unchanged.
func PlainText(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}

	doc.Find("script, style").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}
