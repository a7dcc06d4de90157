package main

import (
	"fmt"

	flag "github.com/spf13/pflag"
)

// cliFlags holds all mdpress command-line flags.
type cliFlags struct {
	config  string
	output  string
	workers int
	timeout string
	quiet   bool
	verbose bool
	version bool

	style     string
	assetPath string

	pageSize    string
	orientation string
	margin      float64

	firstNumberedPage int
	firstNumberValue  int

	toc         bool
	tocMinDepth int
	tocMaxDepth int

	htmlOnly bool
}

// parseFlags parses command-line flags and returns positional args.
func parseFlags(args []string) (*cliFlags, []string, error) {
	fs := flag.NewFlagSet("mdpress", flag.ContinueOnError)
	f := &cliFlags{}

	fs.StringVarP(&f.config, "config", "c", "", "config file path (YAML)")
	fs.StringVarP(&f.output, "output", "o", "", "output file or directory")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel workers (0 = auto)")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "browser timeout (e.g., 30s, 2m)")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show detailed timing")
	fs.BoolVar(&f.version, "version", false, "print version and exit")

	fs.StringVar(&f.style, "style", "", "style name, CSS file path, or inline CSS")
	fs.StringVar(&f.assetPath, "asset-path", "", "custom style directory")

	fs.StringVarP(&f.pageSize, "page-size", "p", "", "page size: letter, a4, legal")
	fs.StringVar(&f.orientation, "orientation", "", "page orientation: portrait, landscape")
	fs.Float64Var(&f.margin, "margin", 0, "page margin in inches (0.25-3.0)")

	fs.IntVar(&f.firstNumberedPage, "first-numbered-page", 0, "1-based index of the first numbered page")
	fs.IntVar(&f.firstNumberValue, "first-number-value", 0, "number shown on the first numbered page")

	fs.BoolVar(&f.toc, "toc", false, "print the resolved table of contents")
	fs.IntVar(&f.tocMinDepth, "toc-min-depth", 0, "min heading depth for TOC (1-6, default: 1)")
	fs.IntVar(&f.tocMaxDepth, "toc-max-depth", 0, "max heading depth for TOC (1-6, default: 3)")

	fs.BoolVar(&f.htmlOnly, "html-only", false, "output paged HTML instead of PDF")

	fs.Usage = func() { printUsage(fs) }

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	return f, fs.Args(), nil
}

func printUsage(fs *flag.FlagSet) {
	w := fs.Output()
	fmt.Fprintln(w, "Usage: mdpress [flags] <input.md | directory | ->")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Converts markdown to a paginated PDF. With a directory, every")
	fmt.Fprintln(w, "markdown file under it is converted in parallel. With \"-\",")
	fmt.Fprintln(w, "markdown is read from stdin and the PDF written to stdout.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprint(w, fs.FlagUsages())
}
