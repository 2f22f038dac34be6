package ingestion

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

// TextExtractor turns a fetched document body into plain text suitable for
// ExtractField and ExtractScope.
type TextExtractor interface {
	Extract(body []byte) (string, error)
}

// TextExtractorFunc adapts a function to TextExtractor.
type TextExtractorFunc func(body []byte) (string, error)

func (f TextExtractorFunc) Extract(body []byte) (string, error) { return f(body) }

var blockElements = map[string]bool{
	"address": true, "article": true, "blockquote": true, "dd": true, "div": true,
	"dl": true, "dt": true, "fieldset": true, "figcaption": true, "figure": true,
	"form": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"hr": true, "li": true, "main": true, "ol": true, "p": true, "pre": true,
	"section": true, "table": true, "tbody": true, "td": true, "th": true, "thead": true,
	"tr": true, "ul": true,
}

// HTMLExtractor keeps the line structure of block elements so that line
// based heuristics still see "Label: value" rows.
type HTMLExtractor struct{}

func (HTMLExtractor) Extract(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("script, style, nav, footer, header, aside, noscript").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}

	var b strings.Builder
	writeText(root, &b)
	return normalizeLines(b.String()), nil
}

func writeText(sel *goquery.Selection, b *strings.Builder) {
	sel.Contents().Each(func(i int, s *goquery.Selection) {
		name := goquery.NodeName(s)
		switch {
		case name == "#text":
			b.WriteString(collapseInline(s.Text()))
		case name == "br":
			b.WriteByte('\n')
		case blockElements[name]:
			b.WriteByte('\n')
			writeText(s, b)
			b.WriteByte('\n')
		case strings.HasPrefix(name, "#"):
			// comments and doctype
		default:
			writeText(s, b)
		}
	})
}

// collapseInline folds a text node's whitespace to single spaces while
// keeping a boundary space so adjacent inline nodes do not run together.
func collapseInline(s string) string {
	if s == "" {
		return ""
	}
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return " "
	}
	out := strings.Join(fields, " ")
	if unicode.IsSpace(rune(s[0])) {
		out = " " + out
	}
	if unicode.IsSpace(rune(s[len(s)-1])) {
		out += " "
	}
	return out
}

// PlainTextExtractor returns the body as text, dropping invalid UTF-8.
type PlainTextExtractor struct{}

func (PlainTextExtractor) Extract(body []byte) (string, error) {
	return normalizeLines(strings.ToValidUTF8(string(body), "")), nil
}

// normalizeLines collapses whitespace inside each line and squeezes runs of
// blank lines down to one.
func normalizeLines(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")

	out := make([]string, 0, len(lines))
	blank := true
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}

	return strings.TrimSpace(strings.Join(out, "\n"))
}
