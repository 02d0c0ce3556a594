// Package record parses single measurement lines of the form <key>;<value>.
//
// Values are decoded straight into fixed point tenths, so no float parsing
// or allocation happens on the hot path.
package record

import (
	"bytes"
	"math"
	"strconv"
)

// Separator splits the key from the value in a line.
const Separator = ';'

// Bounds of a representable value, in tenths.
const (
	MinTenths Tenths = -9999
	MaxTenths Tenths = 9999
)

// Tenths is a fixed-point number with one decimal place: the real value
// multiplied by ten.
type Tenths int16

// TenthsFromFloat rounds f to the nearest tenth.
func TenthsFromFloat(f float64) Tenths {
	return Tenths(math.Round(f * 10))
}

// Float64 returns the real value.
func (t Tenths) Float64() float64 {
	return float64(t) / 10
}

// Append appends the value with exactly one fractional digit to dst.
func (t Tenths) Append(dst []byte) []byte {
	v := int64(t)
	if v < 0 {
		dst = append(dst, '-')
		v = -v
	}
	dst = strconv.AppendInt(dst, v/10, 10)
	return append(dst, '.', byte('0'+v%10))
}

// String formats the value with one decimal place.
func (t Tenths) String() string {
	var buf [8]byte
	return string(t.Append(buf[:0]))
}

// Parse splits a line, terminator excluded, into its key and value. The key
// is a view into line and is only valid as long as line is.
//
// The separator is searched from the end of the line since the numeric suffix
// is at most six bytes long. Errors are one of ErrNoSeparator, ErrEmptyKey,
// ErrBadNumber or ErrOutOfRange; callers wrap them with Malformed to attach
// the position of the line.
func Parse(line []byte) (key []byte, value Tenths, err error) {
	sep := bytes.LastIndexByte(line, Separator)
	if sep < 0 {
		return nil, 0, ErrNoSeparator
	}
	if sep == 0 {
		return nil, 0, ErrEmptyKey
	}

	value, err = ParseTenths(line[sep+1:])
	if err != nil {
		return nil, 0, err
	}

	return line[:sep], value, nil
}

// ParseTenths parses a literal matching -?\d{1,3}\.\d into tenths.
func ParseTenths(b []byte) (Tenths, error) {
	neg := false
	if len(b) > 0 && b[0] == '-' {
		neg = true
		b = b[1:]
	}

	n := len(b)
	if n < 3 || b[n-2] != '.' {
		return 0, ErrBadNumber
	}

	var v int
	for _, c := range b[:n-2] {
		if c < '0' || c > '9' {
			return 0, ErrBadNumber
		}
		v = v*10 + int(c-'0')
	}

	c := b[n-1]
	if c < '0' || c > '9' {
		return 0, ErrBadNumber
	}

	// More than three integer digits, leading zeros included.
	if n > 5 {
		return 0, ErrOutOfRange
	}

	v = v*10 + int(c-'0')
	if neg {
		v = -v
	}

	return Tenths(v), nil
}
