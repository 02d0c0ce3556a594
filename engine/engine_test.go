package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/andreyvit/diff"

	"github.com/TFMV/onebrc/gen"
	"github.com/TFMV/onebrc/record"
	"github.com/TFMV/onebrc/report"
	"github.com/TFMV/onebrc/source"
)

func TestSamples(t *testing.T) {
	files, err := filepath.Glob("testdata/samples/*.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) == 0 {
		t.Fatalf("no samples found")
	}

	for _, txtFilename := range files {
		name := strings.TrimSuffix(filepath.Base(txtFilename), ".txt")
		outFilename := strings.TrimSuffix(txtFilename, ".txt") + ".out"

		t.Run(name, func(t *testing.T) {
			expected, err := os.ReadFile(outFilename)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			for _, mode := range source.Modes() {
				for _, workers := range []int{1, 4, 17} {
					t.Run(fmt.Sprintf("%v/%d", mode, workers), func(t *testing.T) {
						res, err := RunFile(context.Background(), txtFilename, mode, Options{Workers: workers})
						if err != nil {
							t.Fatalf("unexpected error: %v", err)
						}

						got := report.Format(res.Summaries) + "\n"
						if got != string(expected) {
							t.Errorf("unexpected result:\n%v", diff.LineDiff(string(expected), got))
						}
					})
				}
			}
		})
	}
}

func TestChunkCountInvariance(t *testing.T) {
	cfg := gen.PresetTest.Config()
	cfg.Rows = 20_000
	cfg.Cities = 300
	cfg.MinValue, cfg.MaxValue = -999, 999
	cfg.Seed = 2024

	var buf bytes.Buffer
	want, err := gen.Generate(&buf, cfg, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := report.Format(want)

	for _, workers := range []int{1, 2, 3, 8, 64} {
		for _, bufferSize := range []int{0, 256} {
			t.Run(fmt.Sprintf("workers=%d/buffer=%d", workers, bufferSize), func(t *testing.T) {
				var src source.Source = source.FromBytes(buf.Bytes())
				if bufferSize > 0 {
					src = readerOnly{source.FromBytes(buf.Bytes())}
				}

				res, err := Run(context.Background(), src, Options{Workers: workers, BufferSize: bufferSize})
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}

				if got := report.Format(res.Summaries); got != expected {
					t.Errorf("unexpected result:\n%v", diff.LineDiff(expected, got))
				}
				if res.Rows != cfg.Rows {
					t.Errorf("expected %d rows, got %d", cfg.Rows, res.Rows)
				}
				if res.Chunks != workers {
					t.Errorf("expected %d chunks, got %d", workers, res.Chunks)
				}
			})
		}
	}
}

// readerOnly hides Bytes so the buffered read path is used.
type readerOnly struct {
	m *source.Memory
}

func (r readerOnly) ReadAt(p []byte, off int64) (int, error) { return r.m.ReadAt(p, off) }
func (r readerOnly) Size() int64                              { return r.m.Size() }
func (r readerOnly) Close() error                             { return nil }

func TestMalformed(t *testing.T) {
	src := source.FromBytes([]byte("Hamburg;12.0\nParis;abc\nBilbao;15.0\n"))

	res, err := Run(context.Background(), src, Options{Workers: 2})
	if !errors.Is(err, record.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
	if !errors.Is(err, record.ErrBadNumber) {
		t.Errorf("expected ErrBadNumber, got %v", err)
	}
	if res != nil {
		t.Errorf("expected no result, got %+v", res)
	}

	var me *record.MalformedError
	if !errors.As(err, &me) {
		t.Fatalf("expected a MalformedError, got %T", err)
	}
	if me.Line != "Paris;abc" || me.Offset != 13 {
		t.Errorf("unexpected error details: line %q offset %d", me.Line, me.Offset)
	}
}

func TestMissingFile(t *testing.T) {
	_, err := RunFile(context.Background(), filepath.Join(t.TempDir(), "missing.txt"), source.ModeFile, Options{})
	if !errors.Is(err, source.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := source.FromBytes([]byte("a;1.0\nb;2.0\n"))
	res, err := Run(ctx, src, Options{Workers: 2})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if res != nil {
		t.Errorf("expected no result, got %+v", res)
	}
}

func BenchmarkRun(b *testing.B) {
	cfg := gen.PresetTest.Config()
	cfg.Rows = 1_000_000
	cfg.Cities = 400
	cfg.Seed = 1

	var buf bytes.Buffer
	if _, err := gen.Generate(&buf, cfg, nil); err != nil {
		b.Fatalf("unexpected error: %v", err)
	}
	src := source.FromBytes(buf.Bytes())

	b.SetBytes(int64(buf.Len()))
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := Run(context.Background(), src, DefaultOptions()); err != nil {
			b.Fatalf("unexpected error: %v", err)
		}
	}
}
