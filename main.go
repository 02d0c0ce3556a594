// Command onebrc computes the min, mean and max value per key of a
// "<key>;<value>" measurements file.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"

	"github.com/klauspost/cpuid/v2"
	"github.com/pkg/profile"

	"github.com/TFMV/onebrc/engine"
	"github.com/TFMV/onebrc/report"
	"github.com/TFMV/onebrc/source"
)

const defaultInput = "data/measurements.txt"

type config struct {
	Input            string
	Workers          int
	Source           source.Mode
	Format           string
	Arrow            string
	ArrowCompression report.Compression
	Profile          string
	Runs             int
	Verbose          bool
}

func parseFlags(fs *flag.FlagSet, args []string) (config, error) {
	cfg := config{Input: defaultInput}

	var sourceName, compressionName string
	fs.IntVar(&cfg.Workers, "workers", runtime.GOMAXPROCS(0), "Number of chunks processed in parallel")
	fs.StringVar(&sourceName, "source", source.ModeMmap.String(), "Input access: mmap, readerat or file")
	fs.StringVar(&cfg.Format, "format", "text", "Output format: text or json")
	fs.StringVar(&cfg.Arrow, "arrow", "", "Also write the result as an Arrow IPC stream to this path")
	fs.StringVar(&compressionName, "arrow-compression", report.CompressionNone.String(), "Arrow compression: none, lz4 or zstd")
	fs.StringVar(&cfg.Profile, "profile", "off", "Profile mode: cpu, mem or off")
	fs.IntVar(&cfg.Runs, "runs", 1, "Repeat the computation and log timing statistics")
	fs.BoolVar(&cfg.Verbose, "v", false, "Debug logging")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	switch fs.NArg() {
	case 0:
	case 1:
		cfg.Input = fs.Arg(0)
	default:
		return cfg, fmt.Errorf("expected at most one input path, got %d", fs.NArg())
	}

	var err error
	if cfg.Source, err = source.ParseMode(sourceName); err != nil {
		return cfg, err
	}
	if cfg.ArrowCompression, err = report.ParseCompression(compressionName); err != nil {
		return cfg, err
	}

	switch cfg.Format {
	case "text", "json":
	default:
		return cfg, fmt.Errorf("unknown format %q (want text or json)", cfg.Format)
	}
	switch cfg.Profile {
	case "cpu", "mem", "off":
	default:
		return cfg, fmt.Errorf("unknown profile mode %q (want cpu, mem or off)", cfg.Profile)
	}
	if cfg.Workers < 1 {
		return cfg, fmt.Errorf("workers must be positive, got %d", cfg.Workers)
	}
	if cfg.Runs < 1 {
		return cfg, fmt.Errorf("runs must be positive, got %d", cfg.Runs)
	}

	return cfg, nil
}

func main() {
	cfg, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	switch cfg.Profile {
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.Quiet).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.Quiet).Stop()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, logger, os.Stdout); err != nil {
		logger.Error("run failed", "input", cfg.Input, "err", err)
		stop()
		os.Exit(1)
	}
}

// run computes the result for cfg.Input and writes it to stdout. Nothing is
// written to stdout unless every run succeeds.
func run(ctx context.Context, cfg config, logger *slog.Logger, stdout io.Writer) error {
	logger.Debug("starting",
		"cpu", cpuid.CPU.BrandName,
		"logical_cores", cpuid.CPU.LogicalCores,
		"workers", cfg.Workers,
		"source", cfg.Source,
	)

	opts := engine.DefaultOptions()
	opts.Workers = cfg.Workers
	opts.Logger = logger

	var (
		res    *engine.Result
		timing runStats
	)
	for i := 0; i < cfg.Runs; i++ {
		r, err := engine.RunFile(ctx, cfg.Input, cfg.Source, opts)
		if err != nil {
			return err
		}
		res = r
		timing.add(r.Timings.Total, r.Rows)
		logger.Debug("run complete", "run", i+1, "rows", r.Rows, "keys", len(r.Summaries), "elapsed", r.Timings.Total)
	}
	if cfg.Runs > 1 {
		logger.Info("timing", "stats", &timing)
	}

	if cfg.Arrow != "" {
		if err := writeArrow(cfg.Arrow, res, cfg.ArrowCompression); err != nil {
			return err
		}
		logger.Debug("wrote arrow stream", "path", cfg.Arrow, "compression", cfg.ArrowCompression)
	}

	w := bufio.NewWriter(stdout)
	switch cfg.Format {
	case "json":
		if err := report.WriteJSON(w, res.Summaries); err != nil {
			return fmt.Errorf("write json: %w", err)
		}
	default:
		if err := report.Write(w, res.Summaries); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
	}
	return w.Flush()
}

func writeArrow(path string, res *engine.Result, c report.Compression) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create arrow file: %w", err)
	}

	err = report.WriteArrow(f, res.Summaries, c)
	if cerr := f.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("close arrow file: %w", cerr)
	}
	return err
}
