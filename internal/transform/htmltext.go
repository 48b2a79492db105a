package transform

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"
)

// PlainText returns the visible text of an HTML fragment, whitespace-collapsed
// and NFC-normalized. Unparseable input is returned collapsed but otherwise as is.
func PlainText(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	text := html
	if strings.ContainsAny(html, "<&") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err == nil {
			// Block boundaries become spaces so "<p>a</p><p>b</p>" is "a b".
			doc.Find("br, p, li, h1, h2, h3, div").Each(func(_ int, sel *goquery.Selection) {
				sel.AppendHtml(" ")
			})
			text = doc.Text()
		}
	}
	return norm.NFC.String(strings.Join(strings.Fields(text), " "))
}
