package chromium

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mdpress/mdpress/internal/dom"
)

// surfaceTemplate is the scaffold loaded into the measurement page. The
// #measure container has the exact content width of the target page; block
// clones are laid out inside it and their bottom extent read back.
const surfaceTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
html, body { margin: 0; padding: 0; }
#measure { width: %.2fpx; position: absolute; left: 0; top: 0; visibility: hidden; }
%s
</style>
</head>
<body>
<div id="measure"></div>
</body>
</html>`

// measureScript replaces the container content and reports the bottom
// offset of the last child plus its trailing margin, in CSS pixels.
const measureScript = `(html) => {
	const box = document.getElementById('measure');
	box.innerHTML = html;
	const last = box.lastElementChild;
	if (!last) {
		return 0;
	}
	const boxTop = box.getBoundingClientRect().top;
	const rect = last.getBoundingClientRect();
	const margin = parseFloat(getComputedStyle(last).marginBottom) || 0;
	return rect.bottom - boxTop + margin;
}`

// Surface is a live, hidden measurement page. It is an expensive off-screen
// resource: callers must Close it on every exit path. A Surface is not safe
// for concurrent use.
type Surface struct {
	engine *Engine
	page   page
}

// page is the subset of rod.Page the surface needs, abstracted for tests.
type page interface {
	SetDocumentContent(html string) error
	EvalFloat(ctx context.Context, js string, arg string) (float64, error)
	Close() error
}

// NewSurface opens a measurement page sized to the given box, styled with
// the same CSS the final document will use so measured heights match the
// print rendering.
func (e *Engine) NewSurface(ctx context.Context, box PageBox, css string) (*Surface, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := e.ensureBrowser(); err != nil {
		return nil, err
	}

	p, err := e.browser.Page(blankTarget())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}

	doc := fmt.Sprintf(surfaceTemplate, box.ContentWidthPx(), sanitizeSurfaceCSS(css))
	rp := &rodPage{p: p, timeout: e.timeout}
	if err := rp.SetDocumentContent(doc); err != nil {
		_ = rp.Close()
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}

	return &Surface{engine: e, page: rp}, nil
}

// Measure lays out the given blocks in the surface container and returns
// the consumed vertical extent. Implements paginate.Oracle.
func (s *Surface) Measure(ctx context.Context, blocks []*dom.Block) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var sb strings.Builder
	for _, b := range blocks {
		markup, err := b.OuterHTML()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrMeasure, err)
		}
		sb.WriteString(markup)
	}

	height, err := s.page.EvalFloat(ctx, measureScript, sb.String())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMeasure, err)
	}
	return height, nil
}

// Close disposes the measurement page.
func (s *Surface) Close() error {
	return s.page.Close()
}

// sanitizeSurfaceCSS escapes sequences that could close the scaffold's
// style block.
func sanitizeSurfaceCSS(css string) string {
	return strings.ReplaceAll(css, "</", `<\/`)
}

var _ interface {
	Measure(ctx context.Context, blocks []*dom.Block) (float64, error)
} = (*Surface)(nil)

// defaultEvalTimeout bounds a single measurement probe when the caller's
// context carries no deadline.
const defaultEvalTimeout = 10 * time.Second
