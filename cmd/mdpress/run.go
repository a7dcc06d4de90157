package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	mdpress "github.com/mdpress/mdpress"
	"github.com/mdpress/mdpress/internal/config"
)

// Sentinel errors for CLI operations.
var (
	ErrNoInput            = errors.New("no input specified")
	ErrReadMarkdown       = errors.New("failed to read markdown file")
	ErrWriteOutput        = errors.New("failed to write output file")
	ErrInvalidExtension   = errors.New("file must have .md or .markdown extension")
	ErrInvalidWorkerCount = errors.New("invalid worker count")
	ErrInvalidTimeout     = errors.New("invalid timeout")
)

// File permission constants.
const (
	dirPermissions  = 0o750
	filePermissions = 0o644
)

// fileToConvert is a single discovered input file.
type fileToConvert struct {
	inputPath  string
	outputPath string
}

// conversionResult holds the outcome of a single conversion.
type conversionResult struct {
	inputPath  string
	outputPath string
	toc        []mdpress.TOCEntry
	err        error
	duration   time.Duration
}

// run drives the whole CLI invocation: config, options, discovery, and
// parallel conversion.
func run(ctx context.Context, flags *cliFlags, args []string) error {
	if err := validateWorkers(flags.workers); err != nil {
		return err
	}

	var cfg config.Config
	if flags.config != "" {
		loaded, err := config.Load(flags.config)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = *loaded
	}

	opts, err := buildOptions(flags, &cfg)
	if err != nil {
		return err
	}

	input, err := buildInputSettings(flags, &cfg)
	if err != nil {
		return err
	}

	pool := newPool(flags, opts)
	defer pool.Close()

	// stdin -> stdout mode: one document, no discovery.
	if len(args) > 0 && args[0] == "-" {
		return runStdin(ctx, pool, flags, input)
	}

	inputPath, err := resolveInputPath(args)
	if err != nil {
		return err
	}
	files, err := discoverFiles(inputPath, flags.output, outputExt(flags))
	if err != nil {
		return fmt.Errorf("discovering files: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no markdown files found in %s", inputPath)
	}

	results := convertBatch(ctx, pool, files, flags, input)

	failed := printResults(results, flags)
	if failed > 0 {
		return fmt.Errorf("%d conversion(s) failed", failed)
	}
	return nil
}

// runStdin converts stdin markdown and writes the result to stdout or the
// --output path.
func runStdin(ctx context.Context, pool *mdpress.ConverterPool, flags *cliFlags, settings inputSettings) error {
	content, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrReadMarkdown, err)
	}

	conv, err := pool.Acquire()
	if err != nil {
		return err
	}
	defer pool.Release(conv)

	result, err := conv.Convert(ctx, settings.input(string(content)))
	if err != nil {
		return err
	}

	out := result.PDF
	if flags.htmlOnly {
		out = result.HTML
	}

	if flags.output != "" && flags.output != "-" {
		// #nosec G306 -- output documents are meant to be readable
		if err := os.WriteFile(flags.output, out, filePermissions); err != nil {
			return fmt.Errorf("%w: %v", ErrWriteOutput, err)
		}
	} else if _, err := os.Stdout.Write(out); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteOutput, err)
	}

	if flags.toc {
		printTOC(os.Stderr, "", result.TOC)
	}
	return nil
}

// inputSettings is everything that goes into an Input except the markdown.
type inputSettings struct {
	page      *mdpress.PageSettings
	numbering mdpress.Numbering
	toc       *mdpress.TOC
	htmlOnly  bool
}

func (s inputSettings) input(markdown string) mdpress.Input {
	return mdpress.Input{
		Markdown:  markdown,
		Page:      s.page,
		Numbering: s.numbering,
		TOC:       s.toc,
		HTMLOnly:  s.htmlOnly,
	}
}

// buildOptions translates flags and config into converter options.
func buildOptions(flags *cliFlags, cfg *config.Config) ([]mdpress.Option, error) {
	var opts []mdpress.Option

	if flags.timeout != "" {
		d, err := time.ParseDuration(flags.timeout)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTimeout, flags.timeout)
		}
		opts = append(opts, mdpress.WithTimeout(d))
	}

	style := flags.style
	if style == "" {
		style = cfg.Style
	}
	if style != "" {
		opts = append(opts, mdpress.WithStyle(style))
	}

	if flags.assetPath != "" {
		opts = append(opts, mdpress.WithAssetPath(flags.assetPath))
	}

	return opts, nil
}

// buildInputSettings merges CLI flags over config values. CLI wins.
func buildInputSettings(flags *cliFlags, cfg *config.Config) (inputSettings, error) {
	s := inputSettings{htmlOnly: flags.htmlOnly}

	page, err := buildPageSettings(flags, cfg)
	if err != nil {
		return s, err
	}
	s.page = page

	s.numbering = mdpress.Numbering{
		FirstPage:  cfg.Numbering.FirstPage,
		FirstValue: cfg.Numbering.FirstValue,
	}
	if flags.firstNumberedPage > 0 {
		s.numbering.FirstPage = flags.firstNumberedPage
	}
	if flags.firstNumberValue > 0 {
		s.numbering.FirstValue = flags.firstNumberValue
	}

	if flags.toc || cfg.TOC.Enabled {
		toc := &mdpress.TOC{
			MinDepth: cfg.TOC.MinDepth,
			MaxDepth: cfg.TOC.MaxDepth,
		}
		if flags.tocMinDepth > 0 {
			toc.MinDepth = flags.tocMinDepth
		}
		if flags.tocMaxDepth > 0 {
			toc.MaxDepth = flags.tocMaxDepth
		}
		if err := toc.Validate(); err != nil {
			return s, err
		}
		s.toc = toc
	}

	return s, nil
}

// buildPageSettings merges page flags over config; nil means library
// defaults.
func buildPageSettings(flags *cliFlags, cfg *config.Config) (*mdpress.PageSettings, error) {
	hasFlags := flags.pageSize != "" || flags.orientation != "" || flags.margin > 0
	hasConfig := cfg.Page.Size != "" || cfg.Page.Orientation != "" || cfg.Page.Margin > 0
	if !hasFlags && !hasConfig {
		return nil, nil
	}

	ps := &mdpress.PageSettings{
		Size:        cfg.Page.Size,
		Orientation: cfg.Page.Orientation,
		Margin:      cfg.Page.Margin,
	}
	if flags.pageSize != "" {
		ps.Size = flags.pageSize
	}
	if flags.orientation != "" {
		ps.Orientation = flags.orientation
	}
	if flags.margin > 0 {
		ps.Margin = flags.margin
	}

	if ps.Size == "" {
		ps.Size = mdpress.PageSizeA4
	}
	if ps.Orientation == "" {
		ps.Orientation = mdpress.OrientationPortrait
	}
	if ps.Margin == 0 {
		ps.Margin = mdpress.DefaultMargin
	}

	if err := ps.Validate(); err != nil {
		return nil, err
	}
	return ps, nil
}

// resolveInputPath determines the input path from args.
func resolveInputPath(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	return "", ErrNoInput
}

func outputExt(flags *cliFlags) string {
	if flags.htmlOnly {
		return ".html"
	}
	return ".pdf"
}

// discoverFiles finds all markdown files to convert.
func discoverFiles(inputPath, outputDir, ext string) ([]fileToConvert, error) {
	info, err := os.Stat(inputPath)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		if err := validateMarkdownExtension(inputPath); err != nil {
			return nil, err
		}
		outPath := resolveOutputPath(inputPath, outputDir, "", ext)
		return []fileToConvert{{inputPath: inputPath, outputPath: outPath}}, nil
	}

	var files []fileToConvert
	err = filepath.WalkDir(inputPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		e := filepath.Ext(path)
		if e != ".md" && e != ".markdown" {
			return nil
		}
		outPath := resolveOutputPath(path, outputDir, inputPath, ext)
		files = append(files, fileToConvert{inputPath: path, outputPath: outPath})
		return nil
	})

	return files, err
}

// resolveOutputPath determines the output path for a markdown file.
func resolveOutputPath(inputPath, outputDir, baseInputDir, ext string) string {
	inExt := filepath.Ext(inputPath)
	base := strings.TrimSuffix(filepath.Base(inputPath), inExt)

	if outputDir == "" {
		return filepath.Join(filepath.Dir(inputPath), base+ext)
	}

	if strings.HasSuffix(outputDir, ext) {
		return outputDir
	}

	if baseInputDir != "" {
		relPath, err := filepath.Rel(baseInputDir, inputPath)
		if err == nil {
			return filepath.Join(outputDir, filepath.Dir(relPath), base+ext)
		}
	}

	return filepath.Join(outputDir, base+ext)
}

// validateMarkdownExtension checks that the file has a markdown extension.
func validateMarkdownExtension(path string) error {
	ext := filepath.Ext(path)
	if ext != ".md" && ext != ".markdown" {
		return fmt.Errorf("%w: got %q", ErrInvalidExtension, ext)
	}
	return nil
}

// validateWorkers checks that the worker count is within valid bounds.
func validateWorkers(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d (must be >= 0, 0 means auto)", ErrInvalidWorkerCount, n)
	}
	if n > mdpress.MaxPoolSize {
		return fmt.Errorf("%w: %d (maximum is %d)", ErrInvalidWorkerCount, n, mdpress.MaxPoolSize)
	}
	return nil
}

// convertBatch processes files concurrently using the converter pool.
func convertBatch(ctx context.Context, pool *mdpress.ConverterPool, files []fileToConvert, flags *cliFlags, settings inputSettings) []conversionResult {
	concurrency := pool.Size()
	if concurrency > len(files) {
		concurrency = len(files)
	}

	results := make([]conversionResult, len(files))
	var wg sync.WaitGroup
	jobs := make(chan int, len(files))

	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			conv, err := pool.Acquire()
			if err != nil {
				for idx := range jobs {
					results[idx] = conversionResult{inputPath: files[idx].inputPath, err: err}
				}
				return
			}
			defer pool.Release(conv)

			for idx := range jobs {
				if ctx.Err() != nil {
					results[idx] = conversionResult{inputPath: files[idx].inputPath, err: ctx.Err()}
					continue
				}
				results[idx] = convertFile(ctx, conv, files[idx], flags, settings)
			}
		}()
	}

	for i := range files {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
	return results
}

// convertFile processes a single file and returns the result.
func convertFile(ctx context.Context, conv *mdpress.Converter, f fileToConvert, flags *cliFlags, settings inputSettings) conversionResult {
	start := time.Now()
	result := conversionResult{inputPath: f.inputPath, outputPath: f.outputPath}

	content, err := os.ReadFile(f.inputPath) // #nosec G304 -- discovered path
	if err != nil {
		result.err = fmt.Errorf("%w: %v", ErrReadMarkdown, err)
		result.duration = time.Since(start)
		return result
	}

	if err := os.MkdirAll(filepath.Dir(f.outputPath), dirPermissions); err != nil {
		result.err = fmt.Errorf("creating output directory: %w", err)
		result.duration = time.Since(start)
		return result
	}

	res, err := conv.Convert(ctx, settings.input(string(content)))
	if err != nil {
		result.err = err
		result.duration = time.Since(start)
		return result
	}
	result.toc = res.TOC

	out := res.PDF
	if flags.htmlOnly {
		out = res.HTML
	}
	// #nosec G306 -- output documents are meant to be readable
	if err := os.WriteFile(f.outputPath, out, filePermissions); err != nil {
		result.err = fmt.Errorf("%w: %v", ErrWriteOutput, err)
	}

	result.duration = time.Since(start)
	return result
}

// printResults outputs conversion results and returns the failure count.
func printResults(results []conversionResult, flags *cliFlags) int {
	var succeeded, failed int

	for _, r := range results {
		if r.err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "FAILED %s: %v\n", r.inputPath, r.err)
			continue
		}

		succeeded++
		if flags.quiet {
			continue
		}

		if flags.verbose {
			fmt.Fprintf(os.Stdout, "%s -> %s (%v)\n", r.inputPath, r.outputPath, r.duration.Round(time.Millisecond))
		} else {
			fmt.Fprintf(os.Stdout, "Created %s\n", r.outputPath)
		}

		if flags.toc {
			printTOC(os.Stdout, r.inputPath, r.toc)
		}
	}

	if !flags.quiet && len(results) > 1 {
		fmt.Fprintf(os.Stdout, "\n%d succeeded, %d failed\n", succeeded, failed)
	}

	return failed
}

// printTOC writes resolved TOC entries as indented text. Entries on
// unnumbered pages show a dash instead of a page number.
func printTOC(w io.Writer, label string, entries []mdpress.TOCEntry) {
	if label != "" {
		fmt.Fprintf(w, "TOC for %s:\n", label)
	}
	for _, e := range entries {
		indent := strings.Repeat("  ", e.Level-1)
		if e.PageNumber > 0 {
			fmt.Fprintf(w, "%s%s  %d\n", indent, e.Text, e.PageNumber)
		} else {
			fmt.Fprintf(w, "%s%s  -\n", indent, e.Text)
		}
	}
}
