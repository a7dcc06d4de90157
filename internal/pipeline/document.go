package pipeline

import (
	"fmt"
	"strings"

	"github.com/mdpress/mdpress/internal/paginate"
)

// documentTemplate wraps the paged body in a complete HTML5 document.
const documentTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Document</title>
<style>%s</style>
</head>
<body>
%s</body>
</html>`

// SanitizeCSS escapes sequences that could break out of a <style> block.
// Prevents CSS injection by escaping </style> and similar closing sequences.
func SanitizeCSS(css string) string {
	// Escape </ sequences to prevent closing the style tag prematurely
	return strings.ReplaceAll(css, "</", `<\/`)
}

// RenderPages emits the final page sequence as fixed page-box containers.
// Each page carries its 1-based index and, when numbered, its display
// number in data attributes for CSS-driven page-number rendering. An
// unnumbered page gets an empty data-page-number.
func RenderPages(pages []*paginate.Page) (string, error) {
	var sb strings.Builder
	for _, p := range pages {
		display := ""
		if p.Display > 0 {
			display = fmt.Sprintf("%d", p.Display)
		}
		fmt.Fprintf(&sb, "<div class=\"page\" data-page-index=\"%d\" data-page-number=\"%s\">\n", p.Index, display)
		for _, b := range p.Blocks {
			markup, err := b.OuterHTML()
			if err != nil {
				return "", err
			}
			sb.WriteString(markup)
			sb.WriteString("\n")
		}
		sb.WriteString("</div>\n")
	}
	return sb.String(), nil
}

// BuildDocument wraps a rendered body and stylesheet into a standalone
// HTML5 document ready for printing.
func BuildDocument(body, css string) string {
	return fmt.Sprintf(documentTemplate, SanitizeCSS(css), body)
}
