// Package paginate partitions a flat sequence of content blocks into
// discrete, non-overflowing pages.
//
// The packer is a pure function of (blocks, oracle, limit): it holds no
// ambient state, so any measurement backend that can report the vertical
// extent of a candidate page can drive it, including scripted test doubles.
package paginate

import (
	"context"
	"errors"
	"fmt"

	"github.com/mdpress/mdpress/internal/dom"
)

// ErrMeasure indicates the measurement oracle failed.
var ErrMeasure = errors.New("page measurement failed")

// Oracle reports the vertical extent consumed by a candidate page holding
// the given blocks. Implementations own a live measurement surface; the
// packer only cares whether the result fits within the page content height.
type Oracle interface {
	Measure(ctx context.Context, blocks []*dom.Block) (float64, error)
}

// Splitter attempts to partition a block that does not fit on an empty page.
// ok is false when no safe split point exists.
type Splitter interface {
	Split(b *dom.Block) (before, after *dom.Block, ok bool)
}

// Page is an ordered run of blocks plus its resolved position and
// user-visible number. Index and Display are filled in by Resolve.
type Page struct {
	Blocks  []*dom.Block
	Index   int // 1-based position in the final filtered sequence
	Display int // user-visible page number, 0 = unnumbered
}

// Pack consumes the block sequence in order and produces the page sequence.
// limit is the page content height in the oracle's unit, already reduced by
// the safety margin. An empty or whitespace-only input yields exactly one
// (empty) page.
//
// The input slice is never modified; split parts replace their source block
// only in the packer's private work list.
func Pack(ctx context.Context, blocks []*dom.Block, oracle Oracle, splitter Splitter, limit float64) ([]*Page, error) {
	work := append([]*dom.Block(nil), blocks...)

	var pages []*Page
	var buf []*dom.Block

	flush := func() {
		if len(buf) > 0 {
			pages = append(pages, &Page{Blocks: buf})
			buf = nil
		}
	}

	for i := 0; i < len(work); {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		b := work[i]

		// A manual break flushes and is itself consumed. Adjacent or
		// leading markers never produce empty pages: flush is a no-op
		// on an empty buffer.
		if b.Kind() == dom.KindPageBreak {
			flush()
			i++
			continue
		}

		cand := b
		if len(buf) == 0 {
			cand = b.TrimLeadingBreaks()
			if cand.IsEffectivelyEmpty() {
				// Cannot start a page and contributes nothing.
				i++
				continue
			}
		}

		buf = append(buf, cand)
		height, err := oracle.Measure(ctx, buf)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMeasure, err)
		}

		if height <= limit {
			if cand.IsHeading() {
				if err := lookAheadHeading(ctx, &buf, &pages, cand, work, i, oracle, limit); err != nil {
					return nil, err
				}
			}
			i++
			continue
		}

		// Overflow: retract the tentative append.
		buf = buf[:len(buf)-1]

		if len(buf) == 0 {
			// First-on-page overflow: split before the first embedded
			// image and retry from the same position, or accept the
			// oversized block as-is (it will be clipped by the page box).
			if before, after, ok := splitter.Split(cand); ok {
				rest := make([]*dom.Block, 0, len(work)-i+1)
				rest = append(rest, before, after)
				rest = append(rest, work[i+1:]...)
				work = append(work[:i:i], rest...)
				continue
			}
			buf = append(buf, cand)
			i++
			continue
		}

		// The page had prior content. Move a trailing heading along with
		// the new block so it is not stranded at the bottom of the page.
		if last := buf[len(buf)-1]; last.IsHeading() {
			buf = buf[:len(buf)-1]
			flush()
			buf = []*dom.Block{last, cand}
			i++
			continue
		}

		// Plain overflow: close the page and reprocess the block as the
		// first block of the next page (which re-trims it and, if it
		// alone overflows, routes it through the split path above).
		flush()
	}

	flush()

	if len(pages) == 0 {
		pages = append(pages, &Page{})
	}
	return pages, nil
}

// lookAheadHeading probes whether the heading just accepted into the buffer
// can be joined by its follower. If the pair overflows, the heading is
// evicted, the page is flushed without it, and the heading carries forward
// to open the next page. The probe is measurement only and never leaves the
// follower in the buffer.
func lookAheadHeading(ctx context.Context, buf *[]*dom.Block, pages *[]*Page, heading *dom.Block, work []*dom.Block, i int, oracle Oracle, limit float64) error {
	if i+1 >= len(work) {
		return nil
	}
	next := work[i+1]
	if next.Kind() == dom.KindPageBreak {
		// The break forces a flush right after the heading; nothing
		// could have joined it, so standing alone is not an orphan.
		return nil
	}

	probe := make([]*dom.Block, len(*buf)+1)
	copy(probe, *buf)
	probe[len(*buf)] = next

	height, err := oracle.Measure(ctx, probe)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMeasure, err)
	}
	if height <= limit {
		return nil
	}

	*buf = (*buf)[:len(*buf)-1]
	if len(*buf) > 0 {
		*pages = append(*pages, &Page{Blocks: *buf})
	}
	*buf = []*dom.Block{heading}
	return nil
}

// IsBlank reports whether every block on the page is effectively empty.
// A page with no blocks at all is blank.
func (p *Page) IsBlank() bool {
	for _, b := range p.Blocks {
		if !b.IsEffectivelyEmpty() {
			return false
		}
	}
	return true
}
