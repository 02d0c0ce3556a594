package chunk

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/TFMV/onebrc/record"
	"github.com/TFMV/onebrc/stats"
)

// DefaultBufferSize is the read buffer used for sources that are not byte
// backed. A single line must fit in it.
const DefaultBufferSize = 1 << 20

// BytesSource is implemented by sources that can expose their whole image,
// such as a memory-mapped file. Aggregate parses those in place.
type BytesSource interface {
	Bytes() []byte
}

type config struct {
	bufferSize int
	capacity   int
}

// Option configures Aggregate.
type Option func(*config)

// WithBufferSize sets the read buffer size for ReadAt based sources.
func WithBufferSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.bufferSize = n
		}
	}
}

// WithCapacity sets the number of keys the KeyMap is sized for.
func WithCapacity(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// Aggregate folds every line of rng into a new KeyMap. rng must start on a
// line boundary; a last line without terminator is still folded.
//
// A bad line stops the range with a *record.MalformedError that carries the
// line's absolute offset.
func Aggregate(src io.ReaderAt, rng Range, opts ...Option) (*stats.KeyMap, error) {
	cfg := config{
		bufferSize: DefaultBufferSize,
		capacity:   stats.DefaultCapacity,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	m := stats.NewKeyMap(cfg.capacity)
	if rng.Empty() {
		return m, nil
	}

	if bs, ok := src.(BytesSource); ok {
		data := bs.Bytes()
		if rng.Start < 0 || rng.End > int64(len(data)) {
			return nil, fmt.Errorf("chunk: range %v outside input of %d bytes", rng, len(data))
		}

		if _, err := foldLines(data[rng.Start:rng.End], rng.Start, true, m); err != nil {
			return nil, err
		}
		return m, nil
	}

	if err := foldReader(src, rng, cfg.bufferSize, m); err != nil {
		return nil, err
	}
	return m, nil
}

// foldLines adds every complete line of buf to m and returns the number of
// bytes consumed. base is the input offset of buf[0]. When final is set a
// trailing line without terminator is consumed as well.
func foldLines(buf []byte, base int64, final bool, m *stats.KeyMap) (int, error) {
	pos := 0
	for pos < len(buf) {
		end := len(buf)
		if i := bytes.IndexByte(buf[pos:], '\n'); i >= 0 {
			end = pos + i
		} else if !final {
			break
		}

		line := buf[pos:end]
		key, value, err := record.Parse(line)
		if err != nil {
			return pos, record.Malformed(line, base+int64(pos), err)
		}
		m.Add(key, value)

		pos = end + 1
	}

	return min(pos, len(buf)), nil
}

// foldReader streams rng through a fixed buffer, carrying the partial last
// line of each read over to the next one.
func foldReader(src io.ReaderAt, rng Range, bufferSize int, m *stats.KeyMap) error {
	r := io.NewSectionReader(src, rng.Start, rng.Len())
	buf := make([]byte, bufferSize)
	base := rng.Start
	filled := 0

	for {
		n, err := io.ReadFull(r, buf[filled:])
		filled += n

		eof := errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
		if err != nil && !eof {
			return fmt.Errorf("chunk: read at offset %d: %w", base+int64(filled), err)
		}

		consumed, err := foldLines(buf[:filled], base, eof, m)
		if err != nil {
			return err
		}

		if eof {
			return nil
		}

		if consumed == 0 {
			return record.Malformed(buf[:filled], base, record.ErrLineTooLong)
		}

		filled = copy(buf, buf[consumed:filled])
		base += int64(consumed)
	}
}
