package dom

import (
	"strings"
	"testing"
)

func TestImageSplitter_Split(t *testing.T) {
	t.Run("splits before the child holding the first image", func(t *testing.T) {
		b := parseOne(t, `<div><p>intro</p><p><img src="a.png">caption</p><p>outro</p></div>`)

		before, after, ok := ImageSplitter{}.Split(b)
		if !ok {
			t.Fatal("Split() ok = false, want true")
		}

		beforeHTML, err := before.OuterHTML()
		if err != nil {
			t.Fatalf("OuterHTML() error: %v", err)
		}
		if strings.Contains(beforeHTML, "<img") {
			t.Errorf("before half contains the image: %s", beforeHTML)
		}
		if !strings.Contains(beforeHTML, "intro") {
			t.Errorf("before half missing intro: %s", beforeHTML)
		}

		afterHTML, err := after.OuterHTML()
		if err != nil {
			t.Fatalf("OuterHTML() error: %v", err)
		}
		if !strings.Contains(afterHTML, "<img") {
			t.Errorf("after half missing the image: %s", afterHTML)
		}
		if !strings.Contains(afterHTML, "outro") {
			t.Errorf("after half missing trailing content: %s", afterHTML)
		}
	})

	t.Run("no image means no split", func(t *testing.T) {
		b := parseOne(t, "<div><p>a</p><p>b</p></div>")
		if _, _, ok := (ImageSplitter{}).Split(b); ok {
			t.Error("Split() ok = true, want false")
		}
	})

	t.Run("image as first child leaves empty head", func(t *testing.T) {
		b := parseOne(t, `<div><p><img src="a.png"></p><p>text</p></div>`)
		if _, _, ok := (ImageSplitter{}).Split(b); ok {
			t.Error("Split() ok = true, want false when the head half is empty")
		}
	})

	t.Run("bare image block cannot divide", func(t *testing.T) {
		b := parseOne(t, `<img src="a.png">`)
		if _, _, ok := (ImageSplitter{}).Split(b); ok {
			t.Error("Split() ok = true, want false for a bare image")
		}
	})

	t.Run("original block unchanged", func(t *testing.T) {
		b := parseOne(t, `<div><p>intro</p><p><img src="a.png"></p></div>`)
		origHTML, err := b.OuterHTML()
		if err != nil {
			t.Fatalf("OuterHTML() error: %v", err)
		}

		_, _, _ = ImageSplitter{}.Split(b)

		gotHTML, err := b.OuterHTML()
		if err != nil {
			t.Fatalf("OuterHTML() error: %v", err)
		}
		if gotHTML != origHTML {
			t.Errorf("block mutated by Split: %s -> %s", origHTML, gotHTML)
		}
	})

	t.Run("halves keep the wrapper element", func(t *testing.T) {
		b := parseOne(t, `<blockquote><p>quote</p><p><img src="a.png">fig</p></blockquote>`)
		before, after, ok := ImageSplitter{}.Split(b)
		if !ok {
			t.Fatal("Split() ok = false, want true")
		}
		for name, half := range map[string]*Block{"before": before, "after": after} {
			html, err := half.OuterHTML()
			if err != nil {
				t.Fatalf("OuterHTML() error: %v", err)
			}
			if !strings.HasPrefix(html, "<blockquote") {
				t.Errorf("%s half lost the wrapper: %s", name, html)
			}
		}
	})
}
