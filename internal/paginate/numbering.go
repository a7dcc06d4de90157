package paginate

// Numbering configures user-visible page numbers. Pages before FirstPage
// are unnumbered; the page at FirstPage receives FirstValue, and numbering
// increments by one per subsequent page.
type Numbering struct {
	FirstPage  int // 1-based index of the first numbered page
	FirstValue int // number displayed on that page
}

// Normalize clamps out-of-range values to the default of 1, mirroring how
// the caller treats missing or non-numeric input.
func (n Numbering) Normalize() Numbering {
	if n.FirstPage < 1 {
		n.FirstPage = 1
	}
	if n.FirstValue < 1 {
		n.FirstValue = 1
	}
	return n
}

// TOCEntry is a table-of-contents line enriched with its final page number.
// PageNumber is 0 while unresolved, and stays 0 when the heading falls on an
// unnumbered page or is not found at all.
type TOCEntry struct {
	Identity   string
	Level      int
	Text       string
	PageNumber int
}

// Resolve assigns Index and Display to every page and back-fills each TOC
// entry with the number of the first page containing a block whose identity
// matches. It is a full re-scan over the final page sequence: block
// splitting and heading eviction can shift headings across page boundaries,
// so any estimate computed before pagination is stale.
func Resolve(pages []*Page, cfg Numbering, entries []TOCEntry) []TOCEntry {
	cfg = cfg.Normalize()

	for i, p := range pages {
		p.Index = i + 1
		if p.Index < cfg.FirstPage {
			p.Display = 0
		} else {
			p.Display = cfg.FirstValue + (p.Index - cfg.FirstPage)
		}
	}

	resolved := make([]TOCEntry, len(entries))
	for i, e := range entries {
		e.PageNumber = 0
		if e.Identity != "" {
			if p := findPage(pages, e.Identity); p != nil {
				e.PageNumber = p.Display
			}
		}
		resolved[i] = e
	}
	return resolved
}

// findPage returns the first page containing a block with the given
// identity, or nil.
func findPage(pages []*Page, identity string) *Page {
	for _, p := range pages {
		for _, b := range p.Blocks {
			if b.Identity() == identity {
				return p
			}
		}
	}
	return nil
}
