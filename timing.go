package main

import (
	"log/slog"
	"slices"
	"time"
)

// runStats summarizes repeated runs over the same input.
type runStats struct {
	Runs []time.Duration
	Rows int64
}

func (s *runStats) add(d time.Duration, rows int64) {
	s.Runs = append(s.Runs, d)
	s.Rows = rows
}

func (s *runStats) Average() time.Duration {
	if len(s.Runs) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range s.Runs {
		total += d
	}
	return total / time.Duration(len(s.Runs))
}

func (s *runStats) Median() time.Duration {
	return median(s.Runs)
}

func (s *runStats) Min() time.Duration {
	if len(s.Runs) == 0 {
		return 0
	}
	return slices.Min(s.Runs)
}

func (s *runStats) Max() time.Duration {
	if len(s.Runs) == 0 {
		return 0
	}
	return slices.Max(s.Runs)
}

// Throughput is in million rows per second, based on the average run.
func (s *runStats) Throughput() float64 {
	avg := s.Average()
	if avg <= 0 {
		return 0
	}
	return float64(s.Rows) / 1e6 / avg.Seconds()
}

func (s *runStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("runs", len(s.Runs)),
		slog.Duration("average", s.Average()),
		slog.Duration("median", s.Median()),
		slog.Duration("min", s.Min()),
		slog.Duration("max", s.Max()),
		slog.Float64("mrows_per_sec", s.Throughput()),
	)
}

// median of durations
func median(durations []time.Duration) time.Duration {
	n := len(durations)
	if n == 0 {
		return 0
	}

	sorted := slices.Clone(durations)
	slices.Sort(sorted)

	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}
