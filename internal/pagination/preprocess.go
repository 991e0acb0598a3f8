package pagination

import (
	"strings"

	"golang.org/x/net/html"
)

// Preprocess drops paragraphs that carry neither text nor markup and ensures
// every surviving paragraph has a word count. Markup is preserved untouched
// for the renderer; it is only inspected here to count words.
func Preprocess(paragraphs []Paragraph) []Paragraph {
	out := make([]Paragraph, 0, len(paragraphs))
	for _, p := range paragraphs {
		if strings.TrimSpace(p.Text) == "" && strings.TrimSpace(p.Markup) == "" {
			continue
		}
		if p.Type == "" {
			p.Type = ParagraphTypeRegular
		}
		if p.WordCount <= 0 {
			p.WordCount = countParagraphWords(p)
		}
		out = append(out, p)
	}
	return out
}

func countParagraphWords(p Paragraph) int {
	if strings.TrimSpace(p.Text) != "" {
		return len(strings.Fields(p.Text))
	}
	return len(strings.Fields(stripMarkup(p.Markup)))
}

// stripMarkup replaces every tag with a single space so that words adjacent
// to a tag boundary are never merged ("foo</b><i>bar" stays two words).
func stripMarkup(markup string) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(markup))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			b.Write(z.Text())
		default:
			b.WriteByte(' ')
		}
	}
}
