// Package stats holds the per-key running aggregates and the logic to fold
// per-chunk aggregates into one sorted result.
package stats

import (
	"errors"

	"github.com/JohnCGriffin/overflow"

	"github.com/TFMV/onebrc/record"
)

// ErrOverflow is returned when combining two aggregates would wrap the sum or
// count accumulators.
var ErrOverflow = errors.New("aggregate overflow")

// Stat is the running aggregate of one key. All values are in tenths.
type Stat struct {
	Min   record.Tenths
	Max   record.Tenths
	Sum   int64
	Count int64
}

// NewStat creates a Stat from a first observation.
func NewStat(v record.Tenths) Stat {
	return Stat{
		Min:   v,
		Max:   v,
		Sum:   int64(v),
		Count: 1,
	}
}

// Add folds one observation into the aggregate.
//
// Sums are not overflow checked here: with |v| <= 999.9 a chunk would need
// more than 9e14 rows to wrap an int64.
func (s *Stat) Add(v record.Tenths) {
	s.Min = min(s.Min, v)
	s.Max = max(s.Max, v)
	s.Sum += int64(v)
	s.Count++
}

// Merge combines o into s element-wise.
func (s *Stat) Merge(o Stat) error {
	sum, ok := overflow.Add64(s.Sum, o.Sum)
	if !ok {
		return ErrOverflow
	}

	count, ok := overflow.Add64(s.Count, o.Count)
	if !ok {
		return ErrOverflow
	}

	s.Min = min(s.Min, o.Min)
	s.Max = max(s.Max, o.Max)
	s.Sum = sum
	s.Count = count

	return nil
}

// Mean returns Sum/Count rounded to the nearest tenth, with halves rounded
// towards positive infinity. A zero Count yields zero.
func (s Stat) Mean() record.Tenths {
	if s.Count == 0 {
		return 0
	}

	return divRound(s.Sum, s.Count)
}

// divRound divides using floor division and rounds the remainder half up.
func divRound(sum, n int64) record.Tenths {
	q := sum / n
	r := sum % n

	if r < 0 {
		q--
		r += n
	}

	if r >= n-r {
		q++
	}

	return record.Tenths(q)
}
