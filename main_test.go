package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/andreyvit/diff"
	"github.com/goccy/go-json"

	"github.com/TFMV/onebrc/record"
	"github.com/TFMV/onebrc/report"
	"github.com/TFMV/onebrc/source"
)

const sampleInput = "Hamburg;12.0\nBulawayo;8.9\nPalembang;38.8\nHamburg;34.2\nSt. John's;15.2\nCracow;12.6\nBulawayo;-2.1\n"

const sampleOutput = "{Bulawayo=-2.1/3.4/8.9, Cracow=12.6/12.6/12.6, Hamburg=12.0/23.1/34.2, Palembang=38.8/38.8/38.8, St. John's=15.2/15.2/15.2}\n"

func writeInput(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "measurements.txt")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return path
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T, args ...string) config {
	t.Helper()
	cfg, err := parseFlags(flag.NewFlagSet("onebrc", flag.ContinueOnError), args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return cfg
}

func TestParseFlags(t *testing.T) {
	cfg := testConfig(t)
	if cfg.Input != defaultInput || cfg.Source != source.ModeMmap || cfg.Format != "text" || cfg.Runs != 1 {
		t.Errorf("unexpected defaults %+v", cfg)
	}

	cfg = testConfig(t, "-workers", "3", "-source", "file", "-format", "json", "-arrow-compression", "zstd", "in.txt")
	if cfg.Input != "in.txt" || cfg.Workers != 3 || cfg.Source != source.ModeFile || cfg.ArrowCompression != report.CompressionZstd {
		t.Errorf("unexpected config %+v", cfg)
	}

	bad := [][]string{
		{"-source", "tape"},
		{"-format", "xml"},
		{"-profile", "block"},
		{"-workers", "0"},
		{"-runs", "0"},
		{"-arrow-compression", "gzip"},
		{"a.txt", "b.txt"},
	}
	for _, args := range bad {
		fs := flag.NewFlagSet("onebrc", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		if _, err := parseFlags(fs, args); err == nil {
			t.Errorf("parseFlags(%q): expected an error", args)
		}
	}
}

func TestRun(t *testing.T) {
	path := writeInput(t, sampleInput)

	for _, mode := range source.Modes() {
		t.Run(mode.String(), func(t *testing.T) {
			cfg := testConfig(t, "-source", mode.String(), "-workers", "3", "-runs", "2", path)

			var stdout bytes.Buffer
			if err := run(context.Background(), cfg, discard(), &stdout); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if got := stdout.String(); got != sampleOutput {
				t.Errorf("unexpected output:\n%v", diff.LineDiff(sampleOutput, got))
			}
		})
	}
}

func TestRunJSON(t *testing.T) {
	cfg := testConfig(t, "-format", "json", writeInput(t, "a;1.0\na;2.0\n"))

	var stdout bytes.Buffer
	if err := run(context.Background(), cfg, discard(), &stdout); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got []map[string]any
	if err := json.Unmarshal(stdout.Bytes(), &got); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0]["key"] != "a" || got[0]["mean"] != 1.5 {
		t.Errorf("unexpected output %s", stdout.String())
	}
}

func TestRunArrow(t *testing.T) {
	out := filepath.Join(t.TempDir(), "result.arrow")
	cfg := testConfig(t, "-arrow", out, "-arrow-compression", "lz4", writeInput(t, sampleInput))

	var stdout bytes.Buffer
	if err := run(context.Background(), cfg, discard(), &stdout); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer f.Close()

	sums, err := report.ReadArrow(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := report.Format(sums) + "\n"; got != sampleOutput {
		t.Errorf("unexpected arrow content:\n%v", diff.LineDiff(sampleOutput, got))
	}
}

func TestRunErrors(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		cfg := testConfig(t, filepath.Join(t.TempDir(), "missing.txt"))

		var stdout bytes.Buffer
		err := run(context.Background(), cfg, discard(), &stdout)
		if !errors.Is(err, source.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if stdout.Len() != 0 {
			t.Errorf("expected no output, got %q", stdout.String())
		}
	})

	t.Run("malformed", func(t *testing.T) {
		cfg := testConfig(t, writeInput(t, "a;1.0\nb;1.00\n"))

		var stdout bytes.Buffer
		err := run(context.Background(), cfg, discard(), &stdout)
		if !errors.Is(err, record.ErrMalformed) {
			t.Fatalf("expected ErrMalformed, got %v", err)
		}
		if stdout.Len() != 0 {
			t.Errorf("expected no output, got %q", stdout.String())
		}
	})
}
