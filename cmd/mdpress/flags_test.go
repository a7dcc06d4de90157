package main

import "testing"

func TestParseFlags(t *testing.T) {
	t.Run("shorthands", func(t *testing.T) {
		flags, args, err := parseFlags([]string{"-c", "cfg.yaml", "-o", "out", "-w", "3", "-q", "doc.md"})
		if err != nil {
			t.Fatalf("parseFlags() error: %v", err)
		}
		if flags.config != "cfg.yaml" || flags.output != "out" || flags.workers != 3 || !flags.quiet {
			t.Errorf("flags = %+v", flags)
		}
		if len(args) != 1 || args[0] != "doc.md" {
			t.Errorf("args = %v, want [doc.md]", args)
		}
	})

	t.Run("long form", func(t *testing.T) {
		flags, _, err := parseFlags([]string{
			"--page-size", "letter",
			"--orientation", "landscape",
			"--margin", "1.5",
			"--first-numbered-page", "2",
			"--first-number-value", "1",
			"--toc",
			"--html-only",
			"doc.md",
		})
		if err != nil {
			t.Fatalf("parseFlags() error: %v", err)
		}
		if flags.pageSize != "letter" || flags.orientation != "landscape" || flags.margin != 1.5 {
			t.Errorf("page flags = %+v", flags)
		}
		if flags.firstNumberedPage != 2 || flags.firstNumberValue != 1 {
			t.Errorf("numbering flags = %+v", flags)
		}
		if !flags.toc || !flags.htmlOnly {
			t.Errorf("toc/htmlOnly = %v/%v, want true/true", flags.toc, flags.htmlOnly)
		}
	})

	t.Run("unknown flag", func(t *testing.T) {
		if _, _, err := parseFlags([]string{"--bogus"}); err == nil {
			t.Error("unknown flag accepted")
		}
	})

	t.Run("stdin marker survives as positional", func(t *testing.T) {
		_, args, err := parseFlags([]string{"-"})
		if err != nil {
			t.Fatalf("parseFlags() error: %v", err)
		}
		if len(args) != 1 || args[0] != "-" {
			t.Errorf("args = %v, want [-]", args)
		}
	})
}
