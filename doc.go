// Package mdpress converts Markdown documents into discrete, non-overflowing
// pages and prints them to PDF using headless Chrome.
//
// Unlike plain HTML-to-PDF printing, mdpress paginates the rendered content
// itself: blocks are packed onto fixed page boxes against live browser
// measurements, headings are kept together with their following content,
// oversized blocks are split before their first embedded image, leading
// blank pages are dropped, and final page numbers (with a configurable
// numbering offset) are resolved for on-page display and the table of
// contents.
//
// # Quick Start
//
// Create a converter, convert markdown, and close when done:
//
//	conv, err := mdpress.NewConverter()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conv.Close()
//
//	result, err := conv.Convert(ctx, mdpress.Input{
//	    Markdown: "# Hello\n\nWorld",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile("output.pdf", result.PDF, 0644)
//
// The result contains the PDF bytes (result.PDF), the paged HTML
// (result.HTML), the final page count, and resolved TOC entries when
// Input.TOC is set. Use Input.HTMLOnly to skip PDF generation, e.g. for a
// live preview.
//
// # Conversion Pipeline
//
//  1. Markdown preprocessing (line normalization, ==highlight== syntax,
//     \newpage manual break directives)
//  2. Markdown to HTML conversion via Goldmark (GFM, syntax highlighting)
//  3. Content block parsing (each top-level element is one block)
//  4. Page packing against a hidden Chromium measurement surface
//  5. Blank page filtering and page number / TOC resolution
//  6. Paged HTML assembly and PDF printing via headless Chrome (go-rod)
//
// # Manual Page Breaks
//
// A line containing only \newpage (or \pagebreak) forces a page boundary.
// The directive is consumed and never rendered; breaks at the start or end
// of a document, or doubled up, produce no empty pages.
//
// # Page Numbering
//
// Input.Numbering selects the first numbered page and its value:
//
//	result, err := conv.Convert(ctx, mdpress.Input{
//	    Markdown:  content,
//	    Numbering: mdpress.Numbering{FirstPage: 2, FirstValue: 1},
//	})
//
// Pages before FirstPage carry no number; TOC entries pointing at
// unnumbered pages resolve to 0.
//
// # Parallel Processing
//
// For batch conversion, use ConverterPool to manage multiple browser
// instances:
//
//	pool := mdpress.NewConverterPool(4)
//	defer pool.Close()
//
//	conv, err := pool.Acquire()
//	defer pool.Release(conv)
//
// # Browser Requirements
//
// Measurement and PDF generation require Chrome/Chromium. The go-rod
// library automatically downloads a managed Chromium instance on first run
// (~/.cache/rod/browser/).
//
// For containers and CI environments, set ROD_NO_SANDBOX=1 to disable the
// Chrome sandbox. Use ROD_BROWSER_BIN to specify a custom Chrome binary.
package mdpress
