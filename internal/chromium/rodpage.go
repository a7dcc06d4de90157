package chromium

import (
	"context"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// blankTarget creates an empty page target.
func blankTarget() proto.TargetCreateTarget {
	return proto.TargetCreateTarget{URL: "about:blank"}
}

// rodPage adapts *rod.Page to the page interface used by Surface.
type rodPage struct {
	p       *rod.Page
	timeout time.Duration
}

func (r *rodPage) SetDocumentContent(html string) error {
	return r.p.SetDocumentContent(html)
}

// EvalFloat runs a single-argument JS function on the page and returns its
// numeric result. The caller's deadline applies when present; otherwise a
// per-probe timeout guards against a hung renderer.
func (r *rodPage) EvalFloat(ctx context.Context, js string, arg string) (float64, error) {
	p := r.p.Context(ctx)
	if _, ok := ctx.Deadline(); !ok {
		timeout := r.timeout
		if timeout <= 0 {
			timeout = defaultEvalTimeout
		}
		p = p.Timeout(timeout)
	}
	res, err := p.Eval(js, arg)
	if err != nil {
		return 0, err
	}
	return res.Value.Num(), nil
}

func (r *rodPage) Close() error {
	return r.p.Close()
}

var _ page = (*rodPage)(nil)
