package pipeline

import (
	"strings"

	"github.com/mdpress/mdpress/internal/dom"
	"github.com/mdpress/mdpress/internal/paginate"
)

// CollectTOC builds table-of-contents entries from the heading blocks of the
// source sequence, in document order. Page numbers are left unresolved; the
// resolver fills them in after pagination is final. Headings outside
// [minDepth, maxDepth] and headings without a usable identity are skipped.
func CollectTOC(blocks []*dom.Block, minDepth, maxDepth int) []paginate.TOCEntry {
	if minDepth < 1 {
		minDepth = 1
	}
	if maxDepth < minDepth {
		maxDepth = 6
	}

	var entries []paginate.TOCEntry
	for _, b := range blocks {
		if !b.IsHeading() || b.Identity() == "" {
			continue
		}
		if b.Level() < minDepth || b.Level() > maxDepth {
			continue
		}
		text := strings.TrimSpace(b.VisibleText())
		if text == "" {
			continue
		}
		entries = append(entries, paginate.TOCEntry{
			Identity: b.Identity(),
			Level:    b.Level(),
			Text:     text,
		})
	}
	return entries
}
