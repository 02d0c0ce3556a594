package source

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "measurements.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return path
}

func TestOpen(t *testing.T) {
	const content = "Hamburg;12.0\nBilbao;15.0\n"
	path := writeTemp(t, content)

	for _, mode := range Modes() {
		t.Run(mode.String(), func(t *testing.T) {
			src, err := Open(path, mode)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer src.Close()

			if src.Size() != int64(len(content)) {
				t.Fatalf("expected size %d, got %d", len(content), src.Size())
			}

			buf := make([]byte, 7)
			n, err := src.ReadAt(buf, 13)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := string(buf[:n]); got != "Bilbao;" {
				t.Errorf("expected %q, got %q", "Bilbao;", got)
			}

			all, err := io.ReadAll(io.NewSectionReader(src, 0, src.Size()))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(all) != content {
				t.Errorf("expected %q, got %q", content, all)
			}
		})
	}
}

func TestOpenEmpty(t *testing.T) {
	path := writeTemp(t, "")

	for _, mode := range Modes() {
		t.Run(mode.String(), func(t *testing.T) {
			src, err := Open(path, mode)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if src.Size() != 0 {
				t.Errorf("expected size 0, got %d", src.Size())
			}

			if err := src.Close(); err != nil {
				t.Errorf("unexpected close error: %v", err)
			}
		})
	}
}

func TestOpenErrors(t *testing.T) {
	dir := t.TempDir()

	for _, mode := range Modes() {
		t.Run(mode.String(), func(t *testing.T) {
			_, err := Open(filepath.Join(dir, "missing.txt"), mode)
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}

			_, err = Open(dir, mode)
			if !errors.Is(err, ErrUnreadable) {
				t.Errorf("expected ErrUnreadable for a directory, got %v", err)
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	for _, mode := range Modes() {
		got, err := ParseMode(mode.String())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != mode {
			t.Errorf("expected %v, got %v", mode, got)
		}
	}

	if _, err := ParseMode("tape"); err == nil {
		t.Errorf("expected an error for an unknown mode")
	}
}

func TestMemory(t *testing.T) {
	src := FromBytes([]byte("abc"))

	buf := make([]byte, 4)
	n, err := src.ReadAt(buf, 1)
	if n != 2 || !errors.Is(err, io.EOF) {
		t.Errorf("expected 2, io.EOF; got %d, %v", n, err)
	}

	if _, err := src.ReadAt(buf, 3); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF at end, got %v", err)
	}

	if _, err := src.ReadAt(buf, -1); err == nil {
		t.Errorf("expected an error for a negative offset")
	}

	if string(src.Bytes()) != "abc" {
		t.Errorf("expected Bytes to return the image")
	}
}
