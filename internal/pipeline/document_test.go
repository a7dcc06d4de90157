package pipeline

import (
	"strings"
	"testing"

	"github.com/mdpress/mdpress/internal/paginate"
)

func TestSanitizeCSS(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "escapes closing sequences",
			input:    "body { } </style><script>alert(1)</script>",
			expected: `body { } <\/style><script>alert(1)<\/script>`,
		},
		{
			name:     "plain CSS unchanged",
			input:    "body { color: red; }",
			expected: "body { color: red; }",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeCSS(tt.input); got != tt.expected {
				t.Errorf("SanitizeCSS() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestRenderPages(t *testing.T) {
	pages := []*paginate.Page{
		{Blocks: blocksFrom(t, "<p>one</p>"), Index: 1, Display: 0},
		{Blocks: blocksFrom(t, "<p>two</p><p>three</p>"), Index: 2, Display: 1},
	}

	body, err := RenderPages(pages)
	if err != nil {
		t.Fatalf("RenderPages() error: %v", err)
	}

	if got := strings.Count(body, `<div class="page"`); got != 2 {
		t.Errorf("page container count = %d, want 2", got)
	}
	if !strings.Contains(body, `data-page-index="1" data-page-number=""`) {
		t.Errorf("unnumbered page attributes missing: %s", body)
	}
	if !strings.Contains(body, `data-page-index="2" data-page-number="1"`) {
		t.Errorf("numbered page attributes missing: %s", body)
	}
	if !strings.Contains(body, "<p>two</p>") || !strings.Contains(body, "<p>three</p>") {
		t.Errorf("page content missing: %s", body)
	}
}

func TestBuildDocument(t *testing.T) {
	doc := BuildDocument("<div class=\"page\"></div>\n", "body { margin: 0; } </style>")

	for _, want := range []string{
		"<!DOCTYPE html>",
		`<meta charset="utf-8">`,
		`<div class="page"></div>`,
		"body { margin: 0; }",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("document missing %q", want)
		}
	}

	// Injected CSS cannot close the style block.
	if strings.Contains(doc, "} </style></head>") {
		t.Error("CSS escaped the style block")
	}
	if !strings.Contains(doc, `<\/style>`) {
		t.Error("closing sequence was not escaped")
	}
}
