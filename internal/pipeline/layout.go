package pipeline

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Custom layout element names. The preprocessor emits these for <row>/<col>
// tags authored in markdown.
const (
	layoutRowTag = "md-row"
	layoutColTag = "md-col"
)

// TransformLayout rewrites md-row/md-col layout elements into
// div.layout-row / div.layout-col containers. Each column becomes a flex
// child; a width attribute is carried over as a data-col-width attribute
// plus an inline flex-basis style. A row with no direct column children is
// left untouched, as is a fragment without layout tags.
func TransformLayout(fragment string) string {
	if !strings.Contains(fragment, "<"+layoutRowTag) {
		return fragment
	}

	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), body)
	if err != nil {
		return fragment
	}
	for _, n := range nodes {
		body.AppendChild(n)
	}

	// Document order puts outer rows first, so nested rows are still
	// attached (inside a moved column) when their turn comes.
	for _, row := range findAllTags(body, layoutRowTag) {
		transformRow(row)
	}

	var sb strings.Builder
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&sb, c); err != nil {
			return fragment
		}
	}
	return sb.String()
}

// transformRow replaces one md-row element with a layout-row div holding
// one layout-col div per direct md-col child. Direct children of the row
// outside any column do not survive the rewrite.
func transformRow(row *html.Node) {
	var cols []*html.Node
	for c := row.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == layoutColTag {
			cols = append(cols, c)
		}
	}
	if len(cols) == 0 {
		return
	}

	rowDiv := layoutDiv("layout-row")
	for _, col := range cols {
		colDiv := layoutDiv("layout-col")
		if w := strings.TrimSpace(nodeAttr(col, "width")); w != "" {
			colDiv.Attr = append(colDiv.Attr,
				html.Attribute{Key: "data-col-width", Val: w},
				html.Attribute{Key: "style", Val: "flex: 0 0 " + w + "; max-width: " + w + ";"},
			)
		}
		for child := col.FirstChild; child != nil; {
			next := child.NextSibling
			col.RemoveChild(child)
			colDiv.AppendChild(child)
			child = next
		}
		rowDiv.AppendChild(colDiv)
	}

	row.Parent.InsertBefore(rowDiv, row)
	row.Parent.RemoveChild(row)
}

func layoutDiv(class string) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
		Attr:     []html.Attribute{{Key: "class", Val: class}},
	}
}

// findAllTags collects descendant elements with the given tag in document
// order.
func findAllTags(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == tag {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

// nodeAttr returns the value of the named attribute, or "".
func nodeAttr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}
