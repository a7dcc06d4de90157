// Package dom models the content blocks the pagination engine operates on.
//
// A block is one top-level element of the rendered HTML fragment (paragraph,
// heading, list, table, image container, ...). Blocks are immutable from the
// engine's point of view: operations that change a block's children return a
// fresh clone and never touch the original tree.
package dom

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gosimple/slug"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrParseFragment indicates the HTML fragment could not be parsed.
var ErrParseFragment = errors.New("failed to parse HTML fragment")

// PageBreakClass is the reserved class marking a manual page break element.
// The element is consumed by the packer and never rendered.
const PageBreakClass = "page-break"

// Kind classifies a block for the packer.
type Kind int

const (
	// KindOrdinary is any block without special packing behavior.
	KindOrdinary Kind = iota
	// KindHeading is an h1-h6 element, subject to orphan avoidance.
	KindHeading
	// KindPageBreak is a manual page break marker.
	KindPageBreak
	// KindMedia is a block containing at least one embedded image.
	KindMedia
)

// Block is one top-level content unit. The zero value is not usable;
// obtain blocks from ParseBlocks or from Block methods.
type Block struct {
	node     *html.Node
	kind     Kind
	level    int    // heading level 1-6, 0 otherwise
	identity string // anchor id (headings), "" otherwise
}

// ParseBlocks parses an HTML fragment and returns its direct child elements
// as the content block sequence. Inter-element whitespace text nodes are
// skipped; stray text runs are wrapped in a paragraph so no visible content
// is lost.
func ParseBlocks(fragment string) ([]*Block, error) {
	body := &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFragment, err)
	}

	var blocks []*Block
	for _, n := range nodes {
		switch n.Type {
		case html.ElementNode:
			blocks = append(blocks, newBlock(n))
		case html.TextNode:
			if strings.TrimSpace(n.Data) == "" {
				continue
			}
			p := &html.Node{Type: html.ElementNode, Data: "p", DataAtom: atom.P}
			p.AppendChild(&html.Node{Type: html.TextNode, Data: n.Data})
			blocks = append(blocks, newBlock(p))
		}
	}
	return blocks, nil
}

// newBlock classifies a detached element node and derives its identity.
func newBlock(n *html.Node) *Block {
	b := &Block{node: n}

	if hasClass(n, PageBreakClass) {
		b.kind = KindPageBreak
		return b
	}

	if lvl := headingLevel(n); lvl > 0 {
		b.kind = KindHeading
		b.level = lvl
		b.identity = attr(n, "id")
		if b.identity == "" {
			// Goldmark normally emits ids; slugify as a fallback so the
			// TOC resolver can still match the heading.
			if text := collectText(n); strings.TrimSpace(text) != "" {
				b.identity = slug.Make(text)
			}
		}
		return b
	}

	if containsTag(n, "img") {
		b.kind = KindMedia
	}
	return b
}

// Kind returns the block's classification.
func (b *Block) Kind() Kind { return b.kind }

// IsHeading reports whether the block is an h1-h6 element.
func (b *Block) IsHeading() bool { return b.kind == KindHeading }

// Level returns the heading level (1-6), or 0 for non-headings.
func (b *Block) Level() int { return b.level }

// Identity returns the block's stable anchor id, or "" when it has none.
func (b *Block) Identity() string { return b.identity }

// IsEffectivelyEmpty reports whether the block contributes no visible
// content: no media, table, list, quote, rule or preformatted descendants,
// and its text collapses to nothing. Blocks holding only <br> elements
// count as empty.
func (b *Block) IsEffectivelyEmpty() bool {
	if b.kind == KindPageBreak {
		return true
	}
	if containsAnyTag(b.node, contentTags) {
		return false
	}
	return strings.TrimSpace(collectText(b.node)) == ""
}

// contentTags are descendants that make a block non-empty regardless of text.
var contentTags = map[string]bool{
	"img": true, "table": true, "ul": true, "ol": true,
	"blockquote": true, "hr": true, "pre": true, "svg": true,
	"video": true, "iframe": true, "canvas": true,
}

// VisibleText returns the block's text content with markup stripped.
func (b *Block) VisibleText() string { return collectText(b.node) }

// OuterHTML serializes the block back to HTML.
func (b *Block) OuterHTML() (string, error) {
	var sb strings.Builder
	if err := html.Render(&sb, b.node); err != nil {
		return "", fmt.Errorf("rendering block: %w", err)
	}
	return sb.String(), nil
}

// TrimLeadingBreaks returns a block with leading <br> elements and
// whitespace-only text children removed. The receiver is never modified;
// if nothing needs trimming the receiver itself is returned.
func (b *Block) TrimLeadingBreaks() *Block {
	drop := 0
	for c := b.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode && strings.TrimSpace(c.Data) == "" {
			drop++
			continue
		}
		if c.Type == html.ElementNode && c.Data == "br" {
			drop++
			continue
		}
		break
	}
	if drop == 0 {
		return b
	}

	clone := shallowClone(b.node)
	i := 0
	for c := b.node.FirstChild; c != nil; c = c.NextSibling {
		if i >= drop {
			clone.AppendChild(deepClone(c))
		}
		i++
	}
	nb := newBlock(clone)
	// Trimming never changes what the block is, only what it contains.
	nb.kind = b.kind
	nb.level = b.level
	nb.identity = b.identity
	return nb
}

// headingLevel returns 1-6 for h1-h6 elements, 0 otherwise.
func headingLevel(n *html.Node) int {
	switch n.DataAtom {
	case atom.H1:
		return 1
	case atom.H2:
		return 2
	case atom.H3:
		return 3
	case atom.H4:
		return 4
	case atom.H5:
		return 5
	case atom.H6:
		return 6
	}
	return 0
}

// attr returns the value of the named attribute, or "".
func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

// hasClass reports whether the element carries the given class token.
func hasClass(n *html.Node, class string) bool {
	for _, token := range strings.Fields(attr(n, "class")) {
		if token == class {
			return true
		}
	}
	return false
}

// containsTag reports whether any descendant (or the node itself) is the
// given element.
func containsTag(n *html.Node, tag string) bool {
	if n.Type == html.ElementNode && n.Data == tag {
		return true
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if containsTag(c, tag) {
			return true
		}
	}
	return false
}

// containsAnyTag reports whether any descendant element is in the given set.
func containsAnyTag(n *html.Node, tags map[string]bool) bool {
	if n.Type == html.ElementNode && tags[n.Data] {
		return true
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if containsAnyTag(c, tags) {
			return true
		}
	}
	return false
}

// collectText concatenates all text node descendants.
func collectText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// shallowClone copies a node without its children or tree links.
func shallowClone(n *html.Node) *html.Node {
	clone := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
	}
	clone.Attr = append([]html.Attribute(nil), n.Attr...)
	return clone
}

// deepClone copies a node and its entire subtree.
func deepClone(n *html.Node) *html.Node {
	clone := shallowClone(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		clone.AppendChild(deepClone(c))
	}
	return clone
}
