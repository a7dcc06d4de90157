package mdpress

import (
	"fmt"

	"github.com/mdpress/mdpress/internal/chromium"
)

// buildPageCSS generates the fixed page-box rules for the given geometry.
// Each page is a self-contained box: printing uses zero browser margins and
// @page sized to the paper, so one .page div maps to one PDF page. Overflow
// from an unsplittable oversized block is clipped by the box.
func buildPageCSS(box chromium.PageBox) string {
	return fmt.Sprintf(`@page { size: %.2fin %.2fin; margin: 0; }
html, body { margin: 0; padding: 0; }
.page {
  width: %.2fpx;
  height: %.2fpx;
  padding: %.2fpx;
  box-sizing: border-box;
  overflow: hidden;
  position: relative;
  background: #fff;
  page-break-after: always;
  break-after: page;
}
.page[data-page-number]:not([data-page-number=""])::after {
  content: attr(data-page-number);
  position: absolute;
  bottom: %.2fpx;
  left: 0;
  right: 0;
  text-align: center;
  font-size: 11px;
  color: #59636e;
}
.page-break { display: none; }
`,
		box.PaperWidthIn, box.PaperHeightIn,
		box.WidthPx, box.HeightPx, box.MarginPx,
		box.MarginPx/2,
	)
}
