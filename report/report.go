// Package report renders aggregate summaries in the canonical
// {key=min/mean/max, ...} form and in JSON and Arrow for downstream tools.
package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/TFMV/onebrc/record"
	"github.com/TFMV/onebrc/stats"
)

// ErrSyntax is returned by Parse for text not in the canonical format.
var ErrSyntax = errors.New("report: invalid syntax")

// Append appends the canonical report for sums to dst. sums must already be
// sorted and rounded; Append only renders.
func Append(dst []byte, sums []stats.Summary) []byte {
	dst = append(dst, '{')

	for i, s := range sums {
		if i > 0 {
			dst = append(dst, ", "...)
		}
		dst = append(dst, s.Key...)
		dst = append(dst, '=')
		dst = s.Min.Append(dst)
		dst = append(dst, '/')
		dst = s.Mean.Append(dst)
		dst = append(dst, '/')
		dst = s.Max.Append(dst)
	}

	return append(dst, '}')
}

// Format returns the canonical report.
func Format(sums []stats.Summary) string {
	return string(Append(make([]byte, 0, estimate(sums)), sums))
}

// Write writes the canonical report to w.
func Write(w io.Writer, sums []stats.Summary) error {
	_, err := w.Write(Append(make([]byte, 0, estimate(sums)), sums))
	return err
}

// estimate guesses the report length: key plus three numbers and separators.
func estimate(sums []stats.Summary) int {
	n := 2
	for _, s := range sums {
		n += len(s.Key) + 24
	}
	return n
}

// Parse reads a canonical report back into summaries. Count is not part of
// the text form and is left zero.
func Parse(s string) ([]stats.Summary, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '{' || s[len(s)-1] != '}' {
		return nil, fmt.Errorf("%w: missing braces", ErrSyntax)
	}

	body := s[1 : len(s)-1]
	if body == "" {
		return nil, nil
	}

	entries := strings.Split(body, ", ")
	out := make([]stats.Summary, 0, len(entries))

	for _, entry := range entries {
		eq := strings.LastIndexByte(entry, '=')
		if eq <= 0 {
			return nil, fmt.Errorf("%w: entry %q has no key", ErrSyntax, entry)
		}

		fields := strings.Split(entry[eq+1:], "/")
		if len(fields) != 3 {
			return nil, fmt.Errorf("%w: entry %q needs min/mean/max", ErrSyntax, entry)
		}

		var values [3]record.Tenths
		for i, f := range fields {
			v, err := record.ParseTenths([]byte(f))
			if err != nil {
				return nil, fmt.Errorf("%w: entry %q: %w", ErrSyntax, entry, err)
			}
			values[i] = v
		}

		out = append(out, stats.Summary{
			Key:  entry[:eq],
			Min:  values[0],
			Mean: values[1],
			Max:  values[2],
		})
	}

	return out, nil
}
