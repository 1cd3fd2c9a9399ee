// Package richtext converts model markdown into clipboard HTML and decides
// which applications receive rich paste.
package richtext

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// compactStyle keeps lists and paragraphs tight in mail and chat clients.
const compactStyle = `<style>
ul, ol { margin: 0 0 12px 0 !important; padding-left: 20px !important; }
li { margin: 0 !important; margin-left: 20px !important; padding: 0 !important; padding-left: 20px !important; line-height: 1.2 !important; }
p { margin: 0 !important; margin-bottom: 8px !important; }
</style>`

// Converter renders GitHub flavoured markdown with hard line breaks.
type Converter struct {
	md goldmark.Markdown
}

// NewConverter creates a Converter.
func NewConverter() *Converter {
	return &Converter{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
	}
}

// MarkdownToHTML renders markdown prefixed with the compact style block.
func (c *Converter) MarkdownToHTML(markdown string) (string, error) {
	if strings.TrimSpace(markdown) == "" {
		return "", fmt.Errorf("empty markdown")
	}
	var buf bytes.Buffer
	buf.WriteString(compactStyle)
	if err := c.md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return buf.String(), nil
}

var blockTags = "p, div, li, h1, h2, h3, h4, h5, h6, tr, pre, blockquote"

// PlainText flattens HTML into readable text: one line per block element,
// list items prefixed with "- ", style and script content dropped.
func PlainText(htmlContent string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("style, script").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("li").Each(func(_ int, s *goquery.Selection) {
		s.PrependHtml("- ")
	})
	doc.Find(blockTags).Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	lines := strings.Split(doc.Text(), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n"), nil
}

// LooksLikeHTML reports whether text appears to be an HTML fragment.
func LooksLikeHTML(text string) bool {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, "<") {
		return false
	}
	for _, tag := range []string{"<p", "<div", "<ul", "<ol", "<b>", "<strong", "<br", "<h1", "<h2", "<h3", "<span", "<style"} {
		if strings.Contains(strings.ToLower(t), tag) {
			return true
		}
	}
	return false
}
