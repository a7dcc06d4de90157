package pipeline

import (
	"context"
	"regexp"
	"strings"
)

// Placeholders use Unicode Private Use Area characters. These are guaranteed
// not to conflict with any standard characters and pass through Goldmark
// unchanged, so raw HTML stays disabled (no html.WithUnsafe). Post-processing
// converts them to real markup after HTML generation.
const (
	MarkStartPlaceholder   = "\uE000" // ==highlight== opening
	MarkEndPlaceholder     = "\uE001" // ==highlight== closing
	PageBreakPlaceholder   = "\uE002" // \newpage directive
	LayoutStartPlaceholder = "\uE003" // <row>/<col> layout tag opening
	LayoutEndPlaceholder   = "\uE004" // <row>/<col> layout tag closing
)

// Precompiled regex patterns for performance.
var (
	// Line ending normalization
	crlfOrCR = regexp.MustCompile(`\r\n?`)

	// Compress multiple blank lines to max 2
	multipleBlankLines = regexp.MustCompile(`\n{3,}`)

	// Highlight syntax ==text==
	highlightPattern = regexp.MustCompile(`==(.*?)==`)

	// Manual page break directives on their own line
	pageBreakPattern = regexp.MustCompile(`(?m)^\\(newpage|pagebreak)[ \t]*$`)

	// Layout tags <row>/<col> (or md- prefixed) on their own line
	layoutTagPattern = regexp.MustCompile(`(?mi)^<(/?)(?:md-)?(row|col)((?:\s[^>]*)?)>[ \t]*$`)

	// width attribute inside a <col> tag
	colWidthPattern = regexp.MustCompile(`(?i)\bwidth\s*=\s*["']?([^"'\s>]+)`)

	// Layout placeholder paragraph emitted by Goldmark
	layoutParagraphPattern = regexp.MustCompile(
		"<p>" + LayoutStartPlaceholder + "([^" + LayoutEndPlaceholder + "]*)" + LayoutEndPlaceholder + "</p>")

	// Layout placeholder that ended up inline
	layoutStrayPattern = regexp.MustCompile(
		LayoutStartPlaceholder + "[^" + LayoutEndPlaceholder + "]*" + LayoutEndPlaceholder)
)

// MarkdownPreprocessor defines the contract for markdown preprocessing.
type MarkdownPreprocessor interface {
	PreprocessMarkdown(ctx context.Context, content string) string
}

// CommonMarkPreprocessor applies transformations before CommonMark conversion.
type CommonMarkPreprocessor struct{}

// PreprocessMarkdown applies all transformations to prepare Markdown for
// conversion. Order matters: line endings first, then directive and syntax
// conversions, then blank line compression.
func (p *CommonMarkPreprocessor) PreprocessMarkdown(ctx context.Context, content string) string {
	// Check for cancellation before processing
	if ctx.Err() != nil {
		return content
	}

	content = normalizeLineEndings(content)
	content = convertPageBreaks(content)
	content = convertLayoutTags(content)
	content = convertHighlights(content)
	content = compressBlankLines(content)
	return content
}

// normalizeLineEndings converts \r\n and \r to \n.
func normalizeLineEndings(content string) string {
	return crlfOrCR.ReplaceAllString(content, "\n")
}

// compressBlankLines limits consecutive blank lines to 2 maximum.
func compressBlankLines(content string) string {
	return multipleBlankLines.ReplaceAllString(content, "\n\n")
}

// convertHighlights transforms ==text== to placeholder markers.
func convertHighlights(content string) string {
	return highlightPattern.ReplaceAllString(content, MarkStartPlaceholder+"$1"+MarkEndPlaceholder)
}

// convertPageBreaks turns \newpage and \pagebreak lines into a placeholder
// paragraph. Surrounding blank lines ensure Goldmark emits it as its own
// block, which ConvertPlaceholders then rewrites to the marker element.
func convertPageBreaks(content string) string {
	return pageBreakPattern.ReplaceAllString(content, "\n"+PageBreakPlaceholder+"\n")
}

// convertLayoutTags turns <row>/<col> layout tags on their own lines into
// placeholder paragraphs. A <col> width attribute travels inside the
// placeholder token. Tags embedded in running text pass through and are
// escaped by Goldmark like any other raw HTML.
func convertLayoutTags(content string) string {
	return layoutTagPattern.ReplaceAllStringFunc(content, func(tag string) string {
		m := layoutTagPattern.FindStringSubmatch(tag)
		token := m[1] + strings.ToLower(m[2])
		if token == "col" {
			if w := colWidthPattern.FindStringSubmatch(m[3]); w != nil {
				token += ":" + w[1]
			}
		}
		return "\n" + LayoutStartPlaceholder + token + LayoutEndPlaceholder + "\n"
	})
}

// layoutTagFor maps a placeholder token back to its custom element tag.
// The md- spelling keeps the HTML parser from treating <col> as a table
// column; TransformLayout rewrites these elements into layout divs.
func layoutTagFor(token string) string {
	switch {
	case token == "row":
		return "<md-row>"
	case token == "/row":
		return "</md-row>"
	case token == "col":
		return "<md-col>"
	case token == "/col":
		return "</md-col>"
	case strings.HasPrefix(token, "col:"):
		return `<md-col width="` + token[len("col:"):] + `">`
	}
	return ""
}

// ConvertPlaceholders converts placeholder markers back to markup after
// Goldmark HTML conversion: highlight placeholders become <mark> tags, the
// page break placeholder paragraph becomes the reserved marker element
// consumed by the packer, and layout placeholder paragraphs become the
// md-row/md-col elements TransformLayout rewrites.
func ConvertPlaceholders(content string) string {
	content = strings.ReplaceAll(content, "<p>"+PageBreakPlaceholder+"</p>", `<div class="page-break"></div>`)
	content = layoutParagraphPattern.ReplaceAllStringFunc(content, func(p string) string {
		return layoutTagFor(layoutParagraphPattern.FindStringSubmatch(p)[1])
	})
	// A placeholder that ended up inline (e.g. inside other text) is
	// dropped rather than rendered as a private-use glyph.
	content = strings.ReplaceAll(content, PageBreakPlaceholder, "")
	content = layoutStrayPattern.ReplaceAllString(content, "")
	content = strings.ReplaceAll(content, LayoutStartPlaceholder, "")
	content = strings.ReplaceAll(content, LayoutEndPlaceholder, "")
	content = strings.ReplaceAll(content, MarkStartPlaceholder, "<mark>")
	content = strings.ReplaceAll(content, MarkEndPlaceholder, "</mark>")
	return content
}
