package stats

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dolthub/swiss"

	"github.com/TFMV/onebrc/record"
)

// Summary is the final aggregate of one key.
type Summary struct {
	Key   string
	Min   record.Tenths
	Mean  record.Tenths
	Max   record.Tenths
	Count int64
}

// Merged is the combination of every per-chunk KeyMap.
type Merged struct {
	stats *swiss.Map[string, Stat]
}

// NewMerged creates an empty Merged sized for capacity keys.
func NewMerged(capacity int) *Merged {
	return &Merged{
		stats: swiss.NewMap[string, Stat](uint32(max(capacity, 16))),
	}
}

// Merge folds maps into a single result. Merge order does not affect the
// result; nil maps are skipped.
func Merge(maps ...*KeyMap) (*Merged, error) {
	capacity := 0
	for _, m := range maps {
		if m != nil {
			capacity = max(capacity, m.Len())
		}
	}

	merged := NewMerged(capacity)
	for _, m := range maps {
		if err := merged.Add(m); err != nil {
			return nil, err
		}
	}

	return merged, nil
}

// Add folds one KeyMap into the result. The KeyMap's owned keys are reused,
// so it must not be modified afterwards.
func (m *Merged) Add(km *KeyMap) error {
	if km == nil {
		return nil
	}

	var err error
	km.Range(func(key string, s *Stat) bool {
		err = m.put(key, *s)
		return err == nil
	})

	return err
}

func (m *Merged) put(key string, s Stat) error {
	cur, ok := m.stats.Get(key)
	if !ok {
		m.stats.Put(key, s)
		return nil
	}

	if err := cur.Merge(s); err != nil {
		return fmt.Errorf("merge %q: %w", key, err)
	}

	m.stats.Put(key, cur)
	return nil
}

// Get returns the combined Stat of key.
func (m *Merged) Get(key string) (Stat, bool) {
	return m.stats.Get(key)
}

// Len returns the number of distinct keys.
func (m *Merged) Len() int {
	return m.stats.Count()
}

// Rows returns the total number of folded observations.
func (m *Merged) Rows() int64 {
	var rows int64
	m.stats.Iter(func(_ string, s Stat) bool {
		rows += s.Count
		return false
	})
	return rows
}

// Sorted returns one Summary per key, ordered by byte-wise key comparison.
func (m *Merged) Sorted() []Summary {
	out := make([]Summary, 0, m.stats.Count())

	m.stats.Iter(func(key string, s Stat) bool {
		out = append(out, Summary{
			Key:   key,
			Min:   s.Min,
			Mean:  s.Mean(),
			Max:   s.Max,
			Count: s.Count,
		})
		return false
	})

	slices.SortFunc(out, func(a, b Summary) int {
		return strings.Compare(a.Key, b.Key)
	})

	return out
}
