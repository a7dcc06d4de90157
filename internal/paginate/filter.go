package paginate

// DropLeadingBlank removes pages from the front of the sequence while the
// first page is visually empty and at least one more page remains. The
// visible document therefore never opens on a blank page, and a genuinely
// empty document still yields exactly one page.
func DropLeadingBlank(pages []*Page) []*Page {
	for len(pages) > 1 && pages[0].IsBlank() {
		pages = pages[1:]
	}
	return pages
}
