// Package chunk splits the input into line-aligned byte ranges and folds each
// range into a stats.KeyMap.
package chunk

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// Range is the half-open byte interval [Start, End) of the input.
type Range struct {
	Start int64
	End   int64
}

// Len returns the number of bytes in the range.
func (r Range) Len() int64 {
	return r.End - r.Start
}

// Empty reports whether the range holds no bytes.
func (r Range) Empty() bool {
	return r.End <= r.Start
}

func (r Range) String() string {
	return fmt.Sprintf("[%d,%d)", r.Start, r.End)
}

// probeSize is how much is read at a time while looking for a newline.
const probeSize = 128

// Split divides [0, size) of r into n contiguous ranges. Every internal
// boundary is moved forward to just past the next line terminator, so no
// line spans two ranges. When there are fewer lines than ranges some ranges
// are empty.
func Split(r io.ReaderAt, size int64, n int) ([]Range, error) {
	if n < 1 {
		return nil, fmt.Errorf("chunk: invalid range count %d", n)
	}
	if size < 0 {
		return nil, fmt.Errorf("chunk: invalid size %d", size)
	}

	ranges := make([]Range, n)
	step := size / int64(n)
	probe := make([]byte, probeSize)

	var start int64
	for i := 0; i < n; i++ {
		end := size
		if i < n-1 {
			var err error
			end, err = nextLineStart(r, max(step*int64(i+1), start), size, probe)
			if err != nil {
				return nil, err
			}
		}

		ranges[i] = Range{Start: start, End: end}
		start = end
	}

	return ranges, nil
}

// nextLineStart returns the offset just past the first '\n' at or after off,
// or size when there is none.
func nextLineStart(r io.ReaderAt, off, size int64, probe []byte) (int64, error) {
	for off < size {
		buf := probe[:min(int64(len(probe)), size-off)]

		n, err := r.ReadAt(buf, off)
		if i := bytes.IndexByte(buf[:n], '\n'); i >= 0 {
			return off + int64(i) + 1, nil
		}

		off += int64(n)

		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return 0, fmt.Errorf("chunk: probe at offset %d: %w", off, err)
		}

		if n == 0 {
			break
		}
	}

	return size, nil
}
