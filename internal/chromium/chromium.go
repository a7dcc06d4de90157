// Package chromium drives headless Chrome via go-rod for the two browser
// concerns of the engine: the measurement surface the packer probes block
// heights against, and final PDF printing of the paged document.
//
// Rod automatically downloads a managed Chromium on first run. Containers
// and CI should set ROD_NO_SANDBOX=1; ROD_BROWSER_BIN selects a custom
// binary.
package chromium

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"

	"github.com/mdpress/mdpress/internal/process"
)

// Sentinel errors for browser operations.
var (
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrPageLoad       = errors.New("failed to load page")
	ErrPDFGeneration  = errors.New("PDF generation failed")
	ErrMeasure        = errors.New("measurement surface failed")
)

// PageBox describes the physical page geometry in the units each consumer
// needs: CSS pixels for layout and measurement, inches for the PDF printer.
type PageBox struct {
	WidthPx       float64 // full page width
	HeightPx      float64 // full page height
	MarginPx      float64 // inner padding on all sides
	PaperWidthIn  float64
	PaperHeightIn float64
}

// ContentWidthPx returns the width available to content.
func (b PageBox) ContentWidthPx() float64 {
	return b.WidthPx - 2*b.MarginPx
}

// ContentHeightPx returns the height available to content.
func (b PageBox) ContentHeightPx() float64 {
	return b.HeightPx - 2*b.MarginPx
}

// Engine owns one browser instance shared by measurement surfaces and the
// printer. It connects lazily on first use and must be closed by the caller.
type Engine struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	timeout  time.Duration
}

// NewEngine creates an Engine. The browser is not launched until first use.
func NewEngine(timeout time.Duration) *Engine {
	return &Engine{timeout: timeout}
}

// ensureBrowser lazily launches and connects to the browser.
func (e *Engine) ensureBrowser() error {
	if e.browser != nil {
		return nil
	}

	l := launcher.New()

	// Use pre-installed browser if specified (Docker/containerized environments)
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		l = l.Bin(bin)
	}

	// NoSandbox required for CI and containerized environments
	if os.Getenv("CI") == "true" || os.Getenv("ROD_NO_SANDBOX") == "1" || os.Getenv("ROD_BROWSER_BIN") != "" {
		l = l.NoSandbox(true)
	}

	u, err := l.Launch()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	e.browser = rod.New().ControlURL(u)
	if err := e.browser.Connect(); err != nil {
		e.browser = nil
		l.Kill()
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	e.launcher = l
	return nil
}

// Close releases browser resources. Chrome forks helper processes that can
// outlive the main process, so the whole process group is killed after the
// graceful close.
func (e *Engine) Close() error {
	if e.browser == nil {
		return nil
	}
	err := e.browser.Close()
	e.browser = nil

	if e.launcher != nil {
		pid := e.launcher.PID()
		e.launcher.Kill()
		if pid > 0 {
			process.KillProcessGroup(pid)
		}
		e.launcher = nil
	}
	return err
}
