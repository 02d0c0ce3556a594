package record

import (
	"errors"
	"fmt"
)

// ErrMalformed matches every *MalformedError via errors.Is.
var ErrMalformed = errors.New("malformed record")

// Reasons a line can be rejected.
var (
	ErrNoSeparator = errors.New("missing ';' separator")
	ErrEmptyKey    = errors.New("empty key")
	ErrBadNumber   = errors.New("invalid number")
	ErrOutOfRange  = errors.New("value out of range")
	ErrLineTooLong = errors.New("line exceeds read buffer")
)

// maxQuoted bounds the part of a bad line kept for the error message.
const maxQuoted = 64

// MalformedError reports a line that could not be parsed.
type MalformedError struct {
	Offset int64  // absolute byte offset of the line in the input
	Line   string // leading bytes of the line
	Err    error  // one of the reasons above
}

// Malformed builds a MalformedError, copying at most the first 64 bytes of
// line so the error does not pin the input buffer.
func Malformed(line []byte, offset int64, reason error) *MalformedError {
	if len(line) > maxQuoted {
		line = line[:maxQuoted]
	}
	return &MalformedError{
		Offset: offset,
		Line:   string(line),
		Err:    reason,
	}
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed record at offset %d: %q: %v", e.Offset, e.Line, e.Err)
}

func (e *MalformedError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrMalformed.
func (e *MalformedError) Is(target error) bool {
	return target == ErrMalformed
}
