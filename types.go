package mdpress

import (
	"fmt"
	"strings"
	"time"

	"github.com/mdpress/mdpress/internal/chromium"
)

// Page size constants.
const (
	PageSizeLetter = "letter"
	PageSizeA4     = "a4"
	PageSizeLegal  = "legal"
)

// Orientation constants.
const (
	OrientationPortrait  = "portrait"
	OrientationLandscape = "landscape"
)

// Margin bounds in inches.
const (
	MinMargin     = 0.25
	MaxMargin     = 3.0
	DefaultMargin = 0.5
)

// cssDPI converts physical inches to CSS pixels.
const cssDPI = 96.0

// safetyMarginPx is subtracted from the page content height before fit
// checks, absorbing cross-pass measurement rounding.
const safetyMarginPx = 4.0

// paperDims maps page sizes to portrait dimensions in inches.
var paperDims = map[string][2]float64{
	PageSizeLetter: {8.5, 11},
	PageSizeA4:     {8.27, 11.69},
	PageSizeLegal:  {8.5, 14},
}

// PageSettings configures the physical page geometry.
type PageSettings struct {
	Size        string  // "letter", "a4", "legal"
	Orientation string  // "portrait", "landscape"
	Margin      float64 // inches, applied to all sides
}

// DefaultPageSettings returns page settings with default values.
func DefaultPageSettings() *PageSettings {
	return &PageSettings{
		Size:        PageSizeA4,
		Orientation: OrientationPortrait,
		Margin:      DefaultMargin,
	}
}

// Validate checks that page settings are valid.
// Returns nil if p is nil (nil means use defaults).
// Does not mutate - uses case-insensitive comparison.
func (p *PageSettings) Validate() error {
	if p == nil {
		return nil
	}

	if _, ok := paperDims[strings.ToLower(p.Size)]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidPageSize, p.Size)
	}

	switch strings.ToLower(p.Orientation) {
	case OrientationPortrait, OrientationLandscape:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidOrientation, p.Orientation)
	}

	if p.Margin < MinMargin || p.Margin > MaxMargin {
		return fmt.Errorf("%w: %.2f (must be between %.2f and %.2f)", ErrInvalidMargin, p.Margin, MinMargin, MaxMargin)
	}

	return nil
}

// box derives the page box geometry used by measurement and printing.
// Must be called on validated settings; nil receives the defaults.
func (p *PageSettings) box() chromium.PageBox {
	if p == nil {
		p = DefaultPageSettings()
	}
	dims := paperDims[strings.ToLower(p.Size)]
	w, h := dims[0], dims[1]
	if strings.ToLower(p.Orientation) == OrientationLandscape {
		w, h = h, w
	}
	return chromium.PageBox{
		WidthPx:       w * cssDPI,
		HeightPx:      h * cssDPI,
		MarginPx:      p.Margin * cssDPI,
		PaperWidthIn:  w,
		PaperHeightIn: h,
	}
}

// Numbering configures user-visible page numbers. Pages before FirstPage
// are unnumbered; the page at FirstPage shows FirstValue and numbering
// increments by one per page after it. Values below 1 (including zero
// values from missing input) fall back to 1.
type Numbering struct {
	FirstPage  int
	FirstValue int
}

// TOC depth bounds and defaults.
const (
	DefaultTOCMinDepth = 1
	DefaultTOCMaxDepth = 3
)

// TOC configures table-of-contents entry collection.
type TOC struct {
	MinDepth int // lowest heading level included (default 1)
	MaxDepth int // deepest heading level included (default 3)
}

// Validate checks TOC depths. Returns nil if t is nil (nil means no TOC).
func (t *TOC) Validate() error {
	if t == nil {
		return nil
	}
	if t.MinDepth != 0 && (t.MinDepth < 1 || t.MinDepth > 6) {
		return fmt.Errorf("%w: min depth %d", ErrInvalidTOCDepth, t.MinDepth)
	}
	if t.MaxDepth != 0 && (t.MaxDepth < 1 || t.MaxDepth > 6) {
		return fmt.Errorf("%w: max depth %d", ErrInvalidTOCDepth, t.MaxDepth)
	}
	if t.MinDepth != 0 && t.MaxDepth != 0 && t.MaxDepth < t.MinDepth {
		return fmt.Errorf("%w: max depth %d below min depth %d", ErrInvalidTOCDepth, t.MaxDepth, t.MinDepth)
	}
	return nil
}

// TOCEntry is a resolved table-of-contents line. PageNumber is 0 when the
// heading sits on an unnumbered page or was not found after pagination.
type TOCEntry struct {
	Identity   string
	Level      int
	Text       string
	PageNumber int
}

// Input contains conversion parameters.
type Input struct {
	Markdown  string        // Markdown content (required)
	CSS       string        // Custom CSS appended after the style (optional)
	Page      *PageSettings // Page geometry (optional, nil = defaults)
	Numbering Numbering     // Page numbering (zero value = number from page 1)
	TOC       *TOC          // TOC collection (optional, nil = no TOC)
	HTMLOnly  bool          // Skip PDF generation (debugging, live preview)
}

// Result holds the outputs of a conversion.
type Result struct {
	HTML      []byte     // final paged HTML document
	PDF       []byte     // nil when HTMLOnly
	PageCount int        // pages after blank filtering
	TOC       []TOCEntry // resolved entries, nil when Input.TOC was nil
}

// Option configures a Converter.
type Option func(*Converter)

// converterConfig holds internal configuration for Converter.
type converterConfig struct {
	timeout       time.Duration
	styleInput    string
	resolvedStyle string
	assetPath     string
}

// defaultTimeout is used when no timeout is specified.
const defaultTimeout = 30 * time.Second

// WithTimeout sets the browser operation timeout.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("mdpress: WithTimeout duration must be positive")
	}
	return func(c *Converter) {
		c.cfg.timeout = d
	}
}

// WithStyle selects the base stylesheet: a built-in style name, a CSS file
// path, or literal CSS content.
func WithStyle(style string) Option {
	return func(c *Converter) {
		c.cfg.styleInput = style
	}
}

// WithAssetPath loads styles from a directory instead of the embedded set.
func WithAssetPath(path string) Option {
	return func(c *Converter) {
		c.cfg.assetPath = path
	}
}
