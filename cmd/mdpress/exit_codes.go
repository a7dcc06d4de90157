package main

import (
	"context"
	"errors"
	"os"

	mdpress "github.com/mdpress/mdpress"
	"github.com/mdpress/mdpress/internal/assets"
	"github.com/mdpress/mdpress/internal/chromium"
	"github.com/mdpress/mdpress/internal/config"
	"github.com/mdpress/mdpress/internal/hints"
)

// Exit codes for the mdpress CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess = 0 // Successful conversion
	ExitGeneral = 1 // General/unexpected error
	ExitUsage   = 2 // Invalid flags, config, or validation
	ExitIO      = 3 // File not found, permission denied
	ExitBrowser = 4 // Browser/Chrome errors
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Browser errors (exit 4)
	if errors.Is(err, chromium.ErrBrowserConnect) ||
		errors.Is(err, chromium.ErrPageCreate) ||
		errors.Is(err, chromium.ErrPageLoad) ||
		errors.Is(err, chromium.ErrMeasure) ||
		errors.Is(err, mdpress.ErrPDFGeneration) {
		return ExitBrowser
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrReadMarkdown) ||
		errors.Is(err, ErrWriteOutput) ||
		errors.Is(err, ErrNoInput) {
		return ExitIO
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, mdpress.ErrEmptyMarkdown) ||
		errors.Is(err, mdpress.ErrInvalidPageSize) ||
		errors.Is(err, mdpress.ErrInvalidOrientation) ||
		errors.Is(err, mdpress.ErrInvalidMargin) ||
		errors.Is(err, mdpress.ErrInvalidTOCDepth) ||
		errors.Is(err, mdpress.ErrStyleNotFound) ||
		errors.Is(err, mdpress.ErrInvalidAssetPath) ||
		errors.Is(err, ErrInvalidExtension) ||
		errors.Is(err, ErrInvalidWorkerCount) ||
		errors.Is(err, ErrInvalidTimeout) {
		return ExitUsage
	}

	return ExitGeneral
}

// hintFor returns an actionable hint for common failures, empty otherwise.
func hintFor(err error) string {
	switch {
	case errors.Is(err, chromium.ErrBrowserConnect):
		return hints.ForBrowserConnect()
	case errors.Is(err, context.DeadlineExceeded):
		return hints.ForTimeout()
	case errors.Is(err, config.ErrConfigNotFound):
		return hints.ForConfigNotFound()
	case errors.Is(err, mdpress.ErrStyleNotFound):
		return hints.ForStyleNotFound(assets.NewEmbeddedLoader().ListStyles())
	case errors.Is(err, ErrWriteOutput):
		return hints.ForOutputDirectory()
	}
	return ""
}
