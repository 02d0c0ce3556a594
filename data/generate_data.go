package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/TFMV/onebrc/gen"
	"github.com/TFMV/onebrc/report"
	"github.com/TFMV/onebrc/stats"
)

func main() {
	defaults := gen.DefaultConfig()

	preset := flag.String("preset", "none", "Named configuration: full, cities400 or test")
	numRecords := flag.Int64("n", defaults.Rows, "Number of records to generate")
	outputFile := flag.String("o", defaults.Output, "Output file path")
	resultFile := flag.String("result", "", "Expected result file path (empty to skip)")
	cities := flag.Int("cities", defaults.Cities, "Number of distinct station names")
	nameLen := flag.Int("len", defaults.NameLen, "Binomial trials for station name length")
	minValue := flag.Int("min", defaults.MinValue, "Lowest integer part of a value")
	maxValue := flag.Int("max", defaults.MaxValue, "Highest integer part of a value")
	seed := flag.Int64("seed", 0, "Random seed (0 for a time based seed)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	p, err := gen.ParsePreset(*preset)
	if err != nil {
		logger.Error("invalid flags", "err", err)
		os.Exit(2)
	}

	cfg := p.Config()
	if p == gen.PresetNone {
		cfg = gen.Config{
			Rows:     *numRecords,
			Cities:   *cities,
			NameLen:  *nameLen,
			MinValue: *minValue,
			MaxValue: *maxValue,
			Output:   *outputFile,
			Result:   *resultFile,
		}
	}
	cfg.Seed = *seed

	if err := run(cfg, logger); err != nil {
		logger.Error("generation failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg gen.Config, logger *slog.Logger) error {
	logger.Info("generating records", "rows", cfg.Rows, "cities", cfg.Cities, "output", cfg.Output)
	start := time.Now()

	if err := os.MkdirAll(filepath.Dir(cfg.Output), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	file, err := os.Create(cfg.Output)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}

	sums, err := gen.Generate(file, cfg, logger)
	if cerr := file.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("close output file: %w", cerr)
	}
	if err != nil {
		return err
	}

	if cfg.Result != "" {
		if err := writeResult(cfg.Result, sums); err != nil {
			return err
		}
		logger.Info("wrote expected result", "path", cfg.Result, "keys", len(sums))
	}

	logger.Info("data generation complete", "elapsed", time.Since(start))
	return nil
}

func writeResult(path string, sums []stats.Summary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create result directory: %w", err)
	}
	return os.WriteFile(path, []byte(report.Format(sums)+"\n"), 0o644)
}
