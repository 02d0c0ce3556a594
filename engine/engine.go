// Package engine runs the split, aggregate and merge phases over a source and
// returns the sorted per-key summaries.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/TFMV/onebrc/chunk"
	"github.com/TFMV/onebrc/source"
	"github.com/TFMV/onebrc/stats"
)

// Options tunes a run.
type Options struct {
	Workers    int          // number of chunks processed in parallel
	BufferSize int          // read buffer per worker for non-mapped sources
	Capacity   int          // expected distinct keys per chunk
	Logger     *slog.Logger // phase timings are logged at debug level
}

// DefaultOptions uses one worker per available CPU.
func DefaultOptions() Options {
	return Options{
		Workers:    runtime.GOMAXPROCS(0),
		BufferSize: chunk.DefaultBufferSize,
		Capacity:   stats.DefaultCapacity,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Workers < 1 {
		o.Workers = d.Workers
	}
	if o.BufferSize < 1 {
		o.BufferSize = d.BufferSize
	}
	if o.Capacity < 1 {
		o.Capacity = d.Capacity
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}

// Timings records how long each phase took.
type Timings struct {
	Split     time.Duration
	Aggregate time.Duration
	Merge     time.Duration
	Total     time.Duration
}

// Result is the outcome of a successful run.
type Result struct {
	Summaries []stats.Summary
	Rows      int64
	Chunks    int
	Timings   Timings
}

// Run aggregates src using opts.Workers parallel chunks. On error no partial
// result is returned.
func Run(ctx context.Context, src source.Source, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	log := opts.Logger
	start := time.Now()

	ranges, err := chunk.Split(src, src.Size(), opts.Workers)
	if err != nil {
		return nil, fmt.Errorf("split input: %w", err)
	}
	splitDone := time.Now()
	log.Debug("split input", "bytes", src.Size(), "chunks", len(ranges), "elapsed", splitDone.Sub(start))

	maps, err := aggregate(ctx, src, ranges, opts)
	if err != nil {
		return nil, err
	}
	aggregateDone := time.Now()
	log.Debug("aggregated chunks", "chunks", len(maps), "elapsed", aggregateDone.Sub(splitDone))

	merged, err := stats.Merge(maps...)
	if err != nil {
		return nil, fmt.Errorf("merge chunks: %w", err)
	}
	summaries := merged.Sorted()
	mergeDone := time.Now()
	log.Debug("merged chunks", "keys", len(summaries), "elapsed", mergeDone.Sub(aggregateDone))

	return &Result{
		Summaries: summaries,
		Rows:      merged.Rows(),
		Chunks:    len(ranges),
		Timings: Timings{
			Split:     splitDone.Sub(start),
			Aggregate: aggregateDone.Sub(splitDone),
			Merge:     mergeDone.Sub(aggregateDone),
			Total:     mergeDone.Sub(start),
		},
	}, nil
}

// aggregate runs one goroutine per range. Each goroutine owns its KeyMap and
// writes it to its own slot, so nothing is shared until the join. The first
// failure cancels the chunks that have not started yet.
func aggregate(ctx context.Context, src io.ReaderAt, ranges []chunk.Range, opts Options) ([]*stats.KeyMap, error) {
	maps := make([]*stats.KeyMap, len(ranges))
	g, ctx := errgroup.WithContext(ctx)

	for i, rng := range ranges {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			m, err := chunk.Aggregate(src, rng,
				chunk.WithBufferSize(opts.BufferSize),
				chunk.WithCapacity(opts.Capacity),
			)
			if err != nil {
				return fmt.Errorf("chunk %d %v: %w", i, rng, err)
			}

			maps[i] = m
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return maps, nil
}

// RunFile opens path in the given mode, runs and closes it.
func RunFile(ctx context.Context, path string, mode source.Mode, opts Options) (*Result, error) {
	src, err := source.Open(path, mode)
	if err != nil {
		return nil, err
	}

	res, err := Run(ctx, src, opts)
	if cerr := src.Close(); cerr != nil && err == nil {
		return nil, fmt.Errorf("close %s: %w", path, cerr)
	}

	return res, err
}
