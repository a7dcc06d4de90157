package paginate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/mdpress/mdpress/internal/dom"
)

// scriptedOracle sums per-block heights keyed by the block's visible text.
// Blocks with unknown or empty text fall back to def.
type scriptedOracle struct {
	heights map[string]float64
	def     float64
}

func (o *scriptedOracle) Measure(_ context.Context, blocks []*dom.Block) (float64, error) {
	var total float64
	for _, b := range blocks {
		key := strings.TrimSpace(b.VisibleText())
		if h, ok := o.heights[key]; ok {
			total += h
			continue
		}
		total += o.def
	}
	return total, nil
}

// failingOracle always errors.
type failingOracle struct{}

func (failingOracle) Measure(context.Context, []*dom.Block) (float64, error) {
	return 0, errors.New("boom")
}

// noSplit never finds a split point.
type noSplit struct{}

func (noSplit) Split(*dom.Block) (*dom.Block, *dom.Block, bool) { return nil, nil, false }

func mustBlocks(t *testing.T, fragment string) []*dom.Block {
	t.Helper()
	blocks, err := dom.ParseBlocks(fragment)
	if err != nil {
		t.Fatalf("ParseBlocks(%q) error: %v", fragment, err)
	}
	return blocks
}

func pageTexts(p *Page) []string {
	texts := make([]string, len(p.Blocks))
	for i, b := range p.Blocks {
		texts[i] = strings.TrimSpace(b.VisibleText())
	}
	return texts
}

func TestPack_FillsPagesInOrder(t *testing.T) {
	blocks := mustBlocks(t,
		"<p>a</p><p>b</p><p>c</p><p>d</p><p>e</p><p>f</p><p>g</p><p>h</p>")
	oracle := &scriptedOracle{def: 10}

	pages, err := Pack(context.Background(), blocks, oracle, noSplit{}, 40)
	if err != nil {
		t.Fatalf("Pack() error: %v", err)
	}

	if len(pages) != 2 {
		t.Fatalf("len(pages) = %d, want 2", len(pages))
	}
	want := [][]string{{"a", "b", "c", "d"}, {"e", "f", "g", "h"}}
	for i, p := range pages {
		got := pageTexts(p)
		if strings.Join(got, ",") != strings.Join(want[i], ",") {
			t.Errorf("page %d = %v, want %v", i, got, want[i])
		}
	}
}

func TestPack_FractionalHeightsFillWithoutOverflow(t *testing.T) {
	var sb strings.Builder
	sb.WriteString(`<h1 id="title">Title</h1><p>short text</p>`)
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&sb, "<p>filler %d</p>", i)
	}
	blocks := mustBlocks(t, sb.String())

	oracle := &scriptedOracle{
		heights: map[string]float64{"Title": 2, "short text": 1},
		def:     1.1,
	}
	limit := 40.0

	pages, err := Pack(context.Background(), blocks, oracle, noSplit{}, limit)
	if err != nil {
		t.Fatalf("Pack() error: %v", err)
	}

	if len(pages) != 2 {
		t.Fatalf("len(pages) = %d, want 2", len(pages))
	}

	first := pageTexts(pages[0])
	// 2 + 1 + 33*1.1 = 39.3 fits; the 34th filler would overflow.
	if len(first) != 35 {
		t.Fatalf("page 1 holds %d blocks, want 35", len(first))
	}
	if first[0] != "Title" || first[1] != "short text" {
		t.Errorf("page 1 starts with %v, want title then short text", first[:2])
	}

	var total int
	for i, p := range pages {
		total += len(p.Blocks)
		h, err := oracle.Measure(context.Background(), p.Blocks)
		if err != nil {
			t.Fatalf("Measure() error: %v", err)
		}
		if h > limit {
			t.Errorf("page %d measures %.2f, exceeds limit %.2f", i, h, limit)
		}
	}
	if total != len(blocks) {
		t.Errorf("total blocks across pages = %d, want %d", total, len(blocks))
	}
}

func TestPack_ConservesBlocks(t *testing.T) {
	blocks := mustBlocks(t,
		"<p>a</p><h2 id=\"x\">x</h2><p>b</p><ul><li>c</li></ul><p>d</p>")
	oracle := &scriptedOracle{def: 15}

	pages, err := Pack(context.Background(), blocks, oracle, noSplit{}, 40)
	if err != nil {
		t.Fatalf("Pack() error: %v", err)
	}

	var total int
	for _, p := range pages {
		total += len(p.Blocks)
	}
	if total != len(blocks) {
		t.Errorf("total blocks across pages = %d, want %d", total, len(blocks))
	}
}

func TestPack_ManualBreaks(t *testing.T) {
	tests := []struct {
		name     string
		fragment string
		want     [][]string
	}{
		{
			name:     "break between paragraphs",
			fragment: `<p>a</p><div class="page-break"></div><p>b</p>`,
			want:     [][]string{{"a"}, {"b"}},
		},
		{
			name:     "leading break produces no empty page",
			fragment: `<div class="page-break"></div><p>a</p>`,
			want:     [][]string{{"a"}},
		},
		{
			name:     "adjacent breaks collapse",
			fragment: `<p>a</p><div class="page-break"></div><div class="page-break"></div><p>b</p>`,
			want:     [][]string{{"a"}, {"b"}},
		},
		{
			name:     "trailing break is consumed",
			fragment: `<p>a</p><div class="page-break"></div>`,
			want:     [][]string{{"a"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oracle := &scriptedOracle{def: 10}
			pages, err := Pack(context.Background(), mustBlocks(t, tt.fragment), oracle, noSplit{}, 100)
			if err != nil {
				t.Fatalf("Pack() error: %v", err)
			}
			if len(pages) != len(tt.want) {
				t.Fatalf("len(pages) = %d, want %d", len(pages), len(tt.want))
			}
			for i, p := range pages {
				for _, b := range p.Blocks {
					if b.Kind() == dom.KindPageBreak {
						t.Errorf("page %d contains a page break marker", i)
					}
				}
				got := pageTexts(p)
				if strings.Join(got, ",") != strings.Join(tt.want[i], ",") {
					t.Errorf("page %d = %v, want %v", i, got, tt.want[i])
				}
			}
		})
	}
}

func TestPack_EmptyInput(t *testing.T) {
	tests := []struct {
		name     string
		fragment string
	}{
		{name: "no blocks", fragment: ""},
		{name: "whitespace only", fragment: "<p>   </p><p><br></p>"},
		{name: "breaks only", fragment: `<div class="page-break"></div>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oracle := &scriptedOracle{def: 10}
			pages, err := Pack(context.Background(), mustBlocks(t, tt.fragment), oracle, noSplit{}, 40)
			if err != nil {
				t.Fatalf("Pack() error: %v", err)
			}
			if len(pages) != 1 {
				t.Fatalf("len(pages) = %d, want exactly 1", len(pages))
			}
			if !pages[0].IsBlank() {
				t.Error("single page should be blank")
			}
		})
	}
}

func TestPack_HeadingNotOrphaned(t *testing.T) {
	// The heading fits at the bottom of page 1, but its follower does not.
	blocks := mustBlocks(t, `<p>filler</p><h2 id="s">section</h2><p>body</p>`)
	oracle := &scriptedOracle{
		heights: map[string]float64{"filler": 30, "section": 10, "body": 20},
	}

	pages, err := Pack(context.Background(), blocks, oracle, noSplit{}, 40)
	if err != nil {
		t.Fatalf("Pack() error: %v", err)
	}

	if len(pages) != 2 {
		t.Fatalf("len(pages) = %d, want 2", len(pages))
	}
	if got := pageTexts(pages[0]); len(got) != 1 || got[0] != "filler" {
		t.Errorf("page 1 = %v, want [filler]", got)
	}
	if got := pageTexts(pages[1]); len(got) != 2 || got[0] != "section" || got[1] != "body" {
		t.Errorf("page 2 = %v, want [section body]", got)
	}
}

func TestPack_HeadingStaysWhenFollowerFits(t *testing.T) {
	blocks := mustBlocks(t, `<p>filler</p><h2 id="s">section</h2><p>body</p>`)
	oracle := &scriptedOracle{
		heights: map[string]float64{"filler": 10, "section": 10, "body": 10},
	}

	pages, err := Pack(context.Background(), blocks, oracle, noSplit{}, 40)
	if err != nil {
		t.Fatalf("Pack() error: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("len(pages) = %d, want 1", len(pages))
	}
}

func TestPack_HeadingBeforeManualBreakIsNotAnOrphan(t *testing.T) {
	// A heading immediately followed by a manual break validly ends its page.
	blocks := mustBlocks(t, `<p>filler</p><h2 id="s">section</h2><div class="page-break"></div><p>body</p>`)
	oracle := &scriptedOracle{
		heights: map[string]float64{"filler": 20, "section": 10, "body": 10},
	}

	pages, err := Pack(context.Background(), blocks, oracle, noSplit{}, 40)
	if err != nil {
		t.Fatalf("Pack() error: %v", err)
	}

	if len(pages) != 2 {
		t.Fatalf("len(pages) = %d, want 2", len(pages))
	}
	if got := pageTexts(pages[0]); len(got) != 2 || got[1] != "section" {
		t.Errorf("page 1 = %v, want [filler section]", got)
	}
}

func TestPack_TrailingHeadingMovesWithOverflowingBlock(t *testing.T) {
	// The pair opens the next page together even if it overflows again;
	// re-measuring the pair would orphan the heading after all.
	blocks := mustBlocks(t, `<p>filler</p><h2 id="s">section</h2><p>big</p>`)
	oracle := &scriptedOracle{
		heights: map[string]float64{"filler": 20, "section": 10, "big": 50},
	}

	pages, err := Pack(context.Background(), blocks, oracle, noSplit{}, 40)
	if err != nil {
		t.Fatalf("Pack() error: %v", err)
	}

	if len(pages) != 2 {
		t.Fatalf("len(pages) = %d, want 2", len(pages))
	}
	if got := pageTexts(pages[1]); len(got) != 2 || got[0] != "section" || got[1] != "big" {
		t.Errorf("page 2 = %v, want [section big]", got)
	}
}

func TestPack_OversizedBlockAccepted(t *testing.T) {
	blocks := mustBlocks(t, "<p>huge</p><p>after</p>")
	oracle := &scriptedOracle{heights: map[string]float64{"huge": 100, "after": 10}}

	pages, err := Pack(context.Background(), blocks, oracle, noSplit{}, 40)
	if err != nil {
		t.Fatalf("Pack() error: %v", err)
	}

	if len(pages) != 2 {
		t.Fatalf("len(pages) = %d, want 2", len(pages))
	}
	if got := pageTexts(pages[0]); len(got) != 1 || got[0] != "huge" {
		t.Errorf("page 1 = %v, want the oversized block alone", got)
	}
}

func TestPack_SplitsBeforeFirstImage(t *testing.T) {
	blocks := mustBlocks(t, `<div><p>intro</p><p><img src="x.png">caption</p></div>`)
	// The whole block overflows; each half fits on its own page but not
	// together.
	oracle := &scriptedOracle{
		heights: map[string]float64{"intro": 30, "caption": 30, "introcaption": 100},
	}

	pages, err := Pack(context.Background(), blocks, oracle, dom.ImageSplitter{}, 40)
	if err != nil {
		t.Fatalf("Pack() error: %v", err)
	}

	if len(pages) != 2 {
		t.Fatalf("len(pages) = %d, want 2", len(pages))
	}
	if got := strings.TrimSpace(pages[0].Blocks[0].VisibleText()); got != "intro" {
		t.Errorf("page 1 text = %q, want %q", got, "intro")
	}
	if got := strings.TrimSpace(pages[1].Blocks[0].VisibleText()); got != "caption" {
		t.Errorf("page 2 text = %q, want %q", got, "caption")
	}
}

func TestPack_FirstOnPageTrimsLeadingBreaks(t *testing.T) {
	blocks := mustBlocks(t, "<p>a</p><p><br><br>b</p>")
	// The untrimmed second block would overflow; trimmed it fits the next
	// page.
	oracle := &scriptedOracle{heights: map[string]float64{"a": 30, "b": 20}}

	pages, err := Pack(context.Background(), blocks, oracle, noSplit{}, 40)
	if err != nil {
		t.Fatalf("Pack() error: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("len(pages) = %d, want 2", len(pages))
	}
	html, err := pages[1].Blocks[0].OuterHTML()
	if err != nil {
		t.Fatalf("OuterHTML() error: %v", err)
	}
	if strings.Contains(html, "<br") {
		t.Errorf("leading breaks survived trimming: %s", html)
	}
}

func TestPack_NoOverflowProperty(t *testing.T) {
	blocks := mustBlocks(t,
		"<p>a</p><p>b</p><h2 id=\"h\">h</h2><p>c</p><p>d</p><p>e</p>")
	oracle := &scriptedOracle{def: 12}
	const limit = 40.0

	pages, err := Pack(context.Background(), blocks, oracle, noSplit{}, limit)
	if err != nil {
		t.Fatalf("Pack() error: %v", err)
	}

	// Every multi-block page must measure within the limit.
	for i, p := range pages {
		if len(p.Blocks) < 2 {
			continue
		}
		h, err := oracle.Measure(context.Background(), p.Blocks)
		if err != nil {
			t.Fatal(err)
		}
		if h > limit {
			t.Errorf("page %d measures %.0f, over limit %.0f", i, h, limit)
		}
	}
}

func TestPack_MeasureError(t *testing.T) {
	blocks := mustBlocks(t, "<p>a</p>")
	_, err := Pack(context.Background(), blocks, failingOracle{}, noSplit{}, 40)
	if !errors.Is(err, ErrMeasure) {
		t.Errorf("error = %v, want ErrMeasure", err)
	}
}

func TestPack_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	blocks := mustBlocks(t, "<p>a</p>")
	_, err := Pack(ctx, blocks, &scriptedOracle{def: 10}, noSplit{}, 40)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestPage_IsBlank(t *testing.T) {
	blank := mustBlocks(t, "<p>  </p><p><br></p>")
	content := mustBlocks(t, "<p>text</p>")

	if got := (&Page{Blocks: blank}).IsBlank(); !got {
		t.Error("whitespace-only page should be blank")
	}
	if got := (&Page{Blocks: content}).IsBlank(); got {
		t.Error("page with text should not be blank")
	}
	if got := (&Page{}).IsBlank(); !got {
		t.Error("empty page should be blank")
	}
}

func TestDropLeadingBlank(t *testing.T) {
	blank := &Page{Blocks: mustBlocks(t, "<p> </p>")}
	blank2 := &Page{Blocks: mustBlocks(t, "<p><br></p>")}
	content := &Page{Blocks: mustBlocks(t, "<p>x</p>")}

	t.Run("drops all leading blanks", func(t *testing.T) {
		got := DropLeadingBlank([]*Page{blank, blank2, content})
		if len(got) != 1 || got[0] != content {
			t.Errorf("got %d pages, want only the content page", len(got))
		}
	})

	t.Run("keeps interior blanks", func(t *testing.T) {
		got := DropLeadingBlank([]*Page{content, blank})
		if len(got) != 2 {
			t.Errorf("got %d pages, want 2", len(got))
		}
	})

	t.Run("all blank keeps one page", func(t *testing.T) {
		got := DropLeadingBlank([]*Page{blank, blank2})
		if len(got) != 1 {
			t.Errorf("got %d pages, want 1", len(got))
		}
	})

	t.Run("empty sequence unchanged", func(t *testing.T) {
		if got := DropLeadingBlank(nil); len(got) != 0 {
			t.Errorf("got %d pages, want 0", len(got))
		}
	})
}
