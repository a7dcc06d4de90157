package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	mdpress "github.com/mdpress/mdpress"
	"github.com/mdpress/mdpress/internal/config"
)

func TestValidateWorkers(t *testing.T) {
	tests := []struct {
		n       int
		wantErr bool
	}{
		{0, false},
		{1, false},
		{mdpress.MaxPoolSize, false},
		{-1, true},
		{mdpress.MaxPoolSize + 1, true},
	}
	for _, tt := range tests {
		err := validateWorkers(tt.n)
		if tt.wantErr && !errors.Is(err, ErrInvalidWorkerCount) {
			t.Errorf("validateWorkers(%d) = %v, want ErrInvalidWorkerCount", tt.n, err)
		}
		if !tt.wantErr && err != nil {
			t.Errorf("validateWorkers(%d) = %v, want nil", tt.n, err)
		}
	}
}

func TestValidateMarkdownExtension(t *testing.T) {
	for _, path := range []string{"a.md", "dir/b.markdown"} {
		if err := validateMarkdownExtension(path); err != nil {
			t.Errorf("validateMarkdownExtension(%q) = %v, want nil", path, err)
		}
	}
	for _, path := range []string{"a.txt", "b", "c.pdf"} {
		if err := validateMarkdownExtension(path); !errors.Is(err, ErrInvalidExtension) {
			t.Errorf("validateMarkdownExtension(%q) = %v, want ErrInvalidExtension", path, err)
		}
	}
}

func TestResolveOutputPath(t *testing.T) {
	tests := []struct {
		name         string
		inputPath    string
		outputDir    string
		baseInputDir string
		ext          string
		want         string
	}{
		{
			name:      "next to input when no output set",
			inputPath: filepath.Join("docs", "a.md"),
			ext:       ".pdf",
			want:      filepath.Join("docs", "a.pdf"),
		},
		{
			name:      "explicit output file",
			inputPath: "a.md",
			outputDir: filepath.Join("out", "custom.pdf"),
			ext:       ".pdf",
			want:      filepath.Join("out", "custom.pdf"),
		},
		{
			name:         "mirrors tree under output dir",
			inputPath:    filepath.Join("src", "sub", "a.md"),
			outputDir:    "out",
			baseInputDir: "src",
			ext:          ".pdf",
			want:         filepath.Join("out", "sub", "a.pdf"),
		},
		{
			name:      "html extension",
			inputPath: "a.md",
			outputDir: "out",
			ext:       ".html",
			want:      filepath.Join("out", "a.html"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveOutputPath(tt.inputPath, tt.outputDir, tt.baseInputDir, tt.ext)
			if got != tt.want {
				t.Errorf("resolveOutputPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDiscoverFiles(t *testing.T) {
	t.Run("single file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "doc.md")
		if err := os.WriteFile(path, []byte("# x"), 0o600); err != nil {
			t.Fatal(err)
		}

		files, err := discoverFiles(path, "", ".pdf")
		if err != nil {
			t.Fatalf("discoverFiles() error: %v", err)
		}
		if len(files) != 1 {
			t.Fatalf("found %d files, want 1", len(files))
		}
		if files[0].outputPath != filepath.Join(dir, "doc.pdf") {
			t.Errorf("outputPath = %q", files[0].outputPath)
		}
	})

	t.Run("single file wrong extension", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "doc.txt")
		if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := discoverFiles(path, "", ".pdf"); !errors.Is(err, ErrInvalidExtension) {
			t.Errorf("error = %v, want ErrInvalidExtension", err)
		}
	})

	t.Run("directory walk skips non-markdown", func(t *testing.T) {
		dir := t.TempDir()
		sub := filepath.Join(dir, "sub")
		if err := os.MkdirAll(sub, 0o750); err != nil {
			t.Fatal(err)
		}
		for _, name := range []string{"a.md", "b.markdown", "c.txt"} {
			if err := os.WriteFile(filepath.Join(sub, name), []byte("x"), 0o600); err != nil {
				t.Fatal(err)
			}
		}

		files, err := discoverFiles(dir, "", ".pdf")
		if err != nil {
			t.Fatalf("discoverFiles() error: %v", err)
		}
		if len(files) != 2 {
			t.Errorf("found %d files, want 2: %+v", len(files), files)
		}
	})

	t.Run("missing input", func(t *testing.T) {
		if _, err := discoverFiles(filepath.Join(t.TempDir(), "nope.md"), "", ".pdf"); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("error = %v, want os.ErrNotExist", err)
		}
	})
}

func TestBuildOptions(t *testing.T) {
	t.Run("invalid timeout", func(t *testing.T) {
		_, err := buildOptions(&cliFlags{timeout: "nope"}, &config.Config{})
		if !errors.Is(err, ErrInvalidTimeout) {
			t.Errorf("error = %v, want ErrInvalidTimeout", err)
		}
	})

	t.Run("negative timeout", func(t *testing.T) {
		_, err := buildOptions(&cliFlags{timeout: "-5s"}, &config.Config{})
		if !errors.Is(err, ErrInvalidTimeout) {
			t.Errorf("error = %v, want ErrInvalidTimeout", err)
		}
	})

	t.Run("config style used when flag absent", func(t *testing.T) {
		opts, err := buildOptions(&cliFlags{}, &config.Config{Style: "default"})
		if err != nil {
			t.Fatalf("buildOptions() error: %v", err)
		}
		if len(opts) != 1 {
			t.Errorf("got %d options, want 1", len(opts))
		}
	})
}

func TestBuildPageSettings(t *testing.T) {
	t.Run("nil when nothing set", func(t *testing.T) {
		ps, err := buildPageSettings(&cliFlags{}, &config.Config{})
		if err != nil {
			t.Fatalf("buildPageSettings() error: %v", err)
		}
		if ps != nil {
			t.Errorf("settings = %+v, want nil", ps)
		}
	})

	t.Run("flags override config", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Page.Size = "letter"
		cfg.Page.Margin = 1

		ps, err := buildPageSettings(&cliFlags{pageSize: "legal"}, cfg)
		if err != nil {
			t.Fatalf("buildPageSettings() error: %v", err)
		}
		if ps.Size != "legal" {
			t.Errorf("Size = %q, want legal (flag wins)", ps.Size)
		}
		if ps.Margin != 1 {
			t.Errorf("Margin = %v, want 1 (config kept)", ps.Margin)
		}
		if ps.Orientation != mdpress.OrientationPortrait {
			t.Errorf("Orientation = %q, want default portrait", ps.Orientation)
		}
	})

	t.Run("invalid merge rejected", func(t *testing.T) {
		if _, err := buildPageSettings(&cliFlags{pageSize: "tabloid"}, &config.Config{}); err == nil {
			t.Error("invalid page size accepted")
		}
	})
}

func TestBuildInputSettings(t *testing.T) {
	t.Run("numbering flags override config", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Numbering.FirstPage = 5
		cfg.Numbering.FirstValue = 3

		s, err := buildInputSettings(&cliFlags{firstNumberedPage: 2}, cfg)
		if err != nil {
			t.Fatalf("buildInputSettings() error: %v", err)
		}
		if s.numbering.FirstPage != 2 {
			t.Errorf("FirstPage = %d, want 2 (flag wins)", s.numbering.FirstPage)
		}
		if s.numbering.FirstValue != 3 {
			t.Errorf("FirstValue = %d, want 3 (config kept)", s.numbering.FirstValue)
		}
	})

	t.Run("toc enabled by flag", func(t *testing.T) {
		s, err := buildInputSettings(&cliFlags{toc: true, tocMaxDepth: 2}, &config.Config{})
		if err != nil {
			t.Fatalf("buildInputSettings() error: %v", err)
		}
		if s.toc == nil {
			t.Fatal("toc settings nil")
		}
		if s.toc.MaxDepth != 2 {
			t.Errorf("MaxDepth = %d, want 2", s.toc.MaxDepth)
		}
	})

	t.Run("invalid toc depth rejected", func(t *testing.T) {
		if _, err := buildInputSettings(&cliFlags{toc: true, tocMinDepth: 9}, &config.Config{}); err == nil {
			t.Error("invalid TOC depth accepted")
		}
	})

	t.Run("toc disabled without flag or config", func(t *testing.T) {
		s, err := buildInputSettings(&cliFlags{}, &config.Config{})
		if err != nil {
			t.Fatalf("buildInputSettings() error: %v", err)
		}
		if s.toc != nil {
			t.Errorf("toc = %+v, want nil", s.toc)
		}
	})
}

func TestOutputExt(t *testing.T) {
	if got := outputExt(&cliFlags{}); got != ".pdf" {
		t.Errorf("outputExt() = %q, want .pdf", got)
	}
	if got := outputExt(&cliFlags{htmlOnly: true}); got != ".html" {
		t.Errorf("outputExt() = %q, want .html", got)
	}
}
