package htmlutil

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

// CleanText collapses a scraped text node into a single printable line.
// Unicode space separators (scraped HTML is full of &nbsp;) map to a
// plain space instead of being dropped, so they never glue words
// together.
func CleanText(s string) string {
	var out strings.Builder
	for _, c := range s {
		if unicode.IsSpace(c) {
			out.WriteRune(' ')
			continue
		}
		if unicode.IsPrint(c) {
			out.WriteRune(c)
		}
	}
	cleaned := strings.Trim(out.String(), " ")
	return innerWhitespace.ReplaceAllString(cleaned, " ")
}

// CellTexts returns the cleaned text of each cell matched under sel, in
// document order. Scraped tables are addressed positionally, so order
// matters here.
func CellTexts(sel *goquery.Selection) []string {
	var cells []string
	sel.Each(func(_ int, cell *goquery.Selection) {
		cells = append(cells, CleanText(cell.Text()))
	})
	return cells
}
