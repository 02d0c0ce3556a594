// Package source opens the input file as a read-only, randomly accessible
// image that many workers can read concurrently without locking.
package source

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"golang.org/x/exp/mmap"
)

// Error kinds surfaced by Open.
var (
	ErrNotFound   = errors.New("input file not found")
	ErrUnreadable = errors.New("input file unreadable")
)

// Source is a random-access view of the input.
type Source interface {
	io.ReaderAt
	io.Closer
	Size() int64
}

// Mode selects how a file is opened.
type Mode int

const (
	// ModeMmap maps the file and hands out zero-copy views of it.
	ModeMmap Mode = iota
	// ModeReaderAt uses golang.org/x/exp/mmap, copying through ReadAt.
	ModeReaderAt
	// ModeFile reads through the operating system with pread.
	ModeFile
)

var modeNames = []string{
	ModeMmap:     "mmap",
	ModeReaderAt: "readerat",
	ModeFile:     "file",
}

func (m Mode) String() string {
	if int(m) < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// ParseMode parses the name of a Mode.
func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if strings.EqualFold(s, name) {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown source mode %q (want one of %s)", s, strings.Join(modeNames, ", "))
}

// Modes returns every supported Mode.
func Modes() []Mode {
	return []Mode{ModeMmap, ModeReaderAt, ModeFile}
}

// Open opens path in the given mode.
func Open(path string, mode Mode) (Source, error) {
	switch mode {
	case ModeMmap:
		return openMapped(path)
	case ModeReaderAt:
		return openReaderAt(path)
	case ModeFile:
		return openFile(path)
	default:
		return nil, fmt.Errorf("open %s: unknown mode %v", path, mode)
	}
}

// openError classifies an error from opening or mapping path.
func openError(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s: %w", ErrNotFound, path, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrUnreadable, path, err)
}

// statRegular opens path and checks that it is a regular file.
func statRegular(path string) (*os.File, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, openError(path, err)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, openError(path, err)
	}

	if !fi.Mode().IsRegular() {
		f.Close()
		return nil, 0, fmt.Errorf("%w: %s: not a regular file", ErrUnreadable, path)
	}

	return f, fi.Size(), nil
}

type readerAt struct {
	*mmap.ReaderAt
}

func openReaderAt(path string) (Source, error) {
	// x/exp/mmap happily maps directories on some platforms, so check first.
	f, _, err := statRegular(path)
	if err != nil {
		return nil, err
	}
	f.Close()

	r, err := mmap.Open(path)
	if err != nil {
		return nil, openError(path, err)
	}
	return readerAt{r}, nil
}

func (r readerAt) Size() int64 {
	return int64(r.Len())
}

type file struct {
	*os.File
	size int64
}

func openFile(path string) (Source, error) {
	f, size, err := statRegular(path)
	if err != nil {
		return nil, err
	}
	return &file{File: f, size: size}, nil
}

func (f *file) Size() int64 {
	return f.size
}

// Memory is a Source over a byte slice. It exposes the slice through Bytes so
// readers can skip copying.
type Memory struct {
	data []byte
}

// FromBytes wraps b as a Source. b must not be modified while in use.
func FromBytes(b []byte) *Memory {
	return &Memory{data: b}
}

// Bytes returns the underlying image.
func (m *Memory) Bytes() []byte {
	return m.data
}

// Size returns the image length.
func (m *Memory) Size() int64 {
	return int64(len(m.data))
}

// ReadAt implements io.ReaderAt.
func (m *Memory) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.New("source: negative offset")
	}
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}

	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Close is a no-op.
func (m *Memory) Close() error {
	return nil
}
