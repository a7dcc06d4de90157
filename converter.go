package mdpress

import (
	"context"
	"fmt"
	"os"

	"github.com/mdpress/mdpress/internal/assets"
	"github.com/mdpress/mdpress/internal/chromium"
	"github.com/mdpress/mdpress/internal/dom"
	"github.com/mdpress/mdpress/internal/fileutil"
	"github.com/mdpress/mdpress/internal/paginate"
	"github.com/mdpress/mdpress/internal/pipeline"
)

// Compile-time interface implementation checks.
// These ensure implementations satisfy their interfaces at compile time,
// catching signature mismatches before runtime.
var (
	_ pipeline.MarkdownPreprocessor = (*pipeline.CommonMarkPreprocessor)(nil)
	_ pipeline.HTMLConverter        = (*pipeline.GoldmarkConverter)(nil)
	_ paginate.Oracle               = (*chromium.Surface)(nil)
	_ paginate.Splitter             = dom.ImageSplitter{}
	_ browserBackend                = (*engineBackend)(nil)
)

// measureSurface is a live measurement surface owned for the duration of
// one pagination run and disposed on every exit path.
type measureSurface interface {
	paginate.Oracle
	Close() error
}

// browserBackend abstracts the headless browser so tests can drive the
// pipeline with scripted measurements and no Chrome.
type browserBackend interface {
	NewSurface(ctx context.Context, box chromium.PageBox, css string) (measureSurface, error)
	PrintHTML(ctx context.Context, htmlContent string, box chromium.PageBox) ([]byte, error)
	Close() error
}

// engineBackend adapts chromium.Engine to the browserBackend seam.
type engineBackend struct {
	engine *chromium.Engine
}

func (b *engineBackend) NewSurface(ctx context.Context, box chromium.PageBox, css string) (measureSurface, error) {
	return b.engine.NewSurface(ctx, box, css)
}

func (b *engineBackend) PrintHTML(ctx context.Context, htmlContent string, box chromium.PageBox) ([]byte, error) {
	return b.engine.PrintHTML(ctx, htmlContent, box)
}

func (b *engineBackend) Close() error {
	return b.engine.Close()
}

// Converter orchestrates the markdown-to-paginated-PDF pipeline.
// Create with NewConverter(), use Convert() per document, Close() when done.
// A Converter is not safe for concurrent Convert calls; use ConverterPool
// for parallelism.
type Converter struct {
	cfg           converterConfig
	assetLoader   assets.AssetLoader
	preprocessor  pipeline.MarkdownPreprocessor
	htmlConverter pipeline.HTMLConverter
	backend       browserBackend
}

// NewConverter creates a Converter with default configuration.
// Use options to customize behavior (e.g., WithTimeout, WithStyle).
// Returns an error if style resolution fails.
func NewConverter(opts ...Option) (*Converter, error) {
	c := &Converter{
		cfg:           converterConfig{timeout: defaultTimeout},
		assetLoader:   assets.NewEmbeddedLoader(),
		preprocessor:  &pipeline.CommonMarkPreprocessor{},
		htmlConverter: pipeline.NewGoldmarkConverter(),
	}

	for _, opt := range opts {
		opt(c)
	}

	// Handle WithAssetPath: load styles from the directory, embedded fallback
	if c.cfg.assetPath != "" {
		loader, err := assets.NewDirLoader(c.cfg.assetPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidAssetPath, err)
		}
		c.assetLoader = loader
	}

	if err := c.resolveStyle(); err != nil {
		return nil, err
	}

	// Create browser backend if not injected (e.g., by tests)
	if c.backend == nil {
		c.backend = &engineBackend{engine: chromium.NewEngine(c.cfg.timeout)}
	}

	return c, nil
}

// Convert runs the full pipeline: preprocess, Goldmark, block parsing,
// pagination against a live measurement surface, blank page filtering,
// page number and TOC resolution, paged HTML assembly, and (unless
// HTMLOnly) PDF printing. One call is one atomic pipeline run.
// Recovers from internal panics to prevent crashes from propagating to callers.
func (c *Converter) Convert(ctx context.Context, input Input) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v", r)
		}
	}()

	if err := c.validateInput(input); err != nil {
		return nil, err
	}

	mdContent := c.preprocessor.PreprocessMarkdown(ctx, input.Markdown)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	fragment, err := c.htmlConverter.ToHTML(ctx, mdContent)
	if err != nil {
		return nil, fmt.Errorf("converting to HTML: %w", err)
	}
	fragment = pipeline.TransformLayout(fragment)

	blocks, err := dom.ParseBlocks(fragment)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBlockParse, err)
	}

	box := input.Page.box()
	styleCSS := c.cfg.resolvedStyle
	if input.CSS != "" {
		styleCSS += "\n" + input.CSS
	}

	// The measurement surface uses the same content styles as the final
	// document so probed heights match the print rendering.
	surface, err := c.backend.NewSurface(ctx, box, styleCSS)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := surface.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	limit := box.ContentHeightPx() - safetyMarginPx
	pages, err := paginate.Pack(ctx, blocks, surface, dom.ImageSplitter{}, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPagination, err)
	}
	pages = paginate.DropLeadingBlank(pages)

	var entries []paginate.TOCEntry
	if input.TOC != nil {
		minDepth := input.TOC.MinDepth
		if minDepth == 0 {
			minDepth = DefaultTOCMinDepth
		}
		maxDepth := input.TOC.MaxDepth
		if maxDepth == 0 {
			maxDepth = DefaultTOCMaxDepth
		}
		entries = pipeline.CollectTOC(blocks, minDepth, maxDepth)
	}

	numbering := paginate.Numbering{
		FirstPage:  input.Numbering.FirstPage,
		FirstValue: input.Numbering.FirstValue,
	}
	entries = paginate.Resolve(pages, numbering, entries)

	body, err := pipeline.RenderPages(pages)
	if err != nil {
		return nil, fmt.Errorf("rendering pages: %w", err)
	}
	doc := pipeline.BuildDocument(body, buildPageCSS(box)+styleCSS)

	res := &Result{
		HTML:      []byte(doc),
		PageCount: len(pages),
	}
	if input.TOC != nil {
		res.TOC = toPublicTOC(entries)
	}

	if input.HTMLOnly {
		return res, nil
	}

	pdfBytes, err := c.backend.PrintHTML(ctx, doc, box)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}
	res.PDF = pdfBytes
	return res, nil
}

// PrintHTML prints a complete, caller-assembled HTML document to PDF
// without running the markdown pipeline. Page geometry defaults apply
// when page is nil.
func (c *Converter) PrintHTML(ctx context.Context, htmlContent string, page *PageSettings) ([]byte, error) {
	if htmlContent == "" {
		return nil, ErrHTMLConversion
	}
	if err := page.Validate(); err != nil {
		return nil, err
	}
	pdf, err := c.backend.PrintHTML(ctx, htmlContent, page.box())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}
	return pdf, nil
}

// Close releases resources (headless Chrome browser).
func (c *Converter) Close() error {
	if c.backend != nil {
		return c.backend.Close()
	}
	return nil
}

// resolveStyle resolves the style input (name, path, or CSS content) to CSS
// content. Called during NewConverter after options are applied.
func (c *Converter) resolveStyle() error {
	input := c.cfg.styleInput
	if input == "" {
		css, err := c.assetLoader.LoadStyle(assets.DefaultStyleName)
		if err != nil {
			return fmt.Errorf("loading default style: %w", err)
		}
		c.cfg.resolvedStyle = css
		return nil
	}

	// File path? (contains / or \)
	if fileutil.IsFilePath(input) {
		content, err := os.ReadFile(input) // #nosec G304 -- user-provided path
		if err != nil {
			return fmt.Errorf("loading style file %q: %w", input, err)
		}
		c.cfg.resolvedStyle = string(content)
		return nil
	}

	// CSS content? (contains {)
	if fileutil.IsCSS(input) {
		c.cfg.resolvedStyle = input
		return nil
	}

	// Style name -> use asset loader
	css, err := c.assetLoader.LoadStyle(input)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrStyleNotFound, input)
	}
	c.cfg.resolvedStyle = css
	return nil
}

// validateInput checks that required fields are present and valid.
//
// This is a TRUST BOUNDARY for direct library users who build Input
// manually. CLI and server users have their input validated earlier at
// config load time; both paths converge here.
func (c *Converter) validateInput(input Input) error {
	if input.Markdown == "" {
		return ErrEmptyMarkdown
	}
	if err := input.Page.Validate(); err != nil {
		return err
	}
	if err := input.TOC.Validate(); err != nil {
		return err
	}
	return nil
}

// toPublicTOC converts resolved entries to the public type.
func toPublicTOC(entries []paginate.TOCEntry) []TOCEntry {
	out := make([]TOCEntry, len(entries))
	for i, e := range entries {
		out[i] = TOCEntry{
			Identity:   e.Identity,
			Level:      e.Level,
			Text:       e.Text,
			PageNumber: e.PageNumber,
		}
	}
	return out
}
