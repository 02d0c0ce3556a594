// Package gen produces synthetic measurement files together with their
// expected aggregate result.
package gen

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/TFMV/onebrc/record"
	"github.com/TFMV/onebrc/stats"
)

// Preset is a predefined generator configuration.
type Preset int

const (
	PresetNone Preset = iota
	PresetFull
	PresetCities400
	PresetTest
)

var presetNames = []string{
	PresetNone:      "none",
	PresetFull:      "full",
	PresetCities400: "cities400",
	PresetTest:      "test",
}

func (p Preset) String() string {
	if int(p) < 0 || int(p) >= len(presetNames) {
		return fmt.Sprintf("Preset(%d)", int(p))
	}
	return presetNames[p]
}

// ParsePreset parses a preset name.
func ParsePreset(s string) (Preset, error) {
	for i, name := range presetNames {
		if strings.EqualFold(s, name) {
			return Preset(i), nil
		}
	}
	return 0, fmt.Errorf("unknown preset %q (want one of %s)", s, strings.Join(presetNames, ", "))
}

// MaxNameLen caps generated key length in bytes.
const MaxNameLen = 100

// Config describes a generated data set.
type Config struct {
	Rows     int64  // number of lines
	Cities   int    // number of distinct keys in the dictionary
	NameLen  int    // binomial trials for key length, with p = 0.3
	MinValue int    // lowest integer part, inclusive
	MaxValue int    // highest integer part, inclusive
	Seed     int64  // 0 picks a time based seed
	Output   string // data file path
	Result   string // expected result path, empty to skip
}

// DefaultConfig matches the full one billion row challenge.
func DefaultConfig() Config {
	return Config{
		Rows:     1_000_000_000,
		Cities:   10_000,
		NameLen:  5,
		MinValue: -99,
		MaxValue: 99,
		Output:   "data/measurements.txt",
	}
}

// Config returns the configuration of a preset.
func (p Preset) Config() Config {
	cfg := DefaultConfig()

	switch p {
	case PresetFull:
		cfg.Output = "data/full.txt"
		cfg.Result = "data/full_res.txt"
	case PresetCities400:
		cfg.Cities = 400
		cfg.Output = "data/cities400.txt"
		cfg.Result = "data/cities400_res.txt"
	case PresetTest:
		cfg.Rows = 1_000
		cfg.Cities = 10
		cfg.Output = "data/test.txt"
		cfg.Result = "data/test_res.txt"
	}

	return cfg
}

// Validate checks that cfg can produce well-formed input.
func (c Config) Validate() error {
	switch {
	case c.Rows < 0:
		return fmt.Errorf("gen: negative row count %d", c.Rows)
	case c.Cities < 1:
		return fmt.Errorf("gen: need at least one city, got %d", c.Cities)
	case c.NameLen < 1 || c.NameLen > MaxNameLen:
		return fmt.Errorf("gen: name length %d outside [1, %d]", c.NameLen, MaxNameLen)
	case c.MinValue > c.MaxValue:
		return fmt.Errorf("gen: min value %d above max value %d", c.MinValue, c.MaxValue)
	case c.MinValue < -999 || c.MaxValue > 999:
		return fmt.Errorf("gen: values must stay within [-999, 999], got [%d, %d]", c.MinValue, c.MaxValue)
	}
	return nil
}

const nameAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// ErrDictionaryExhausted is returned when the requested number of distinct
// names cannot be drawn for the configured name length.
var ErrDictionaryExhausted = errors.New("gen: cannot draw enough distinct names")

// Cities draws n distinct alphanumeric names whose length follows a binomial
// distribution with nameLen trials and p = 0.3, clamped to [1, MaxNameLen].
func Cities(n, nameLen int, rng *rand.Rand) ([]string, error) {
	seen := make(map[string]struct{}, n)
	names := make([]string, 0, n)

	for attempts := 0; len(names) < n; attempts++ {
		if attempts > 100*n+1000 {
			return nil, fmt.Errorf("%w: got %d of %d", ErrDictionaryExhausted, len(names), n)
		}

		l := 0
		for i := 0; i < nameLen; i++ {
			if rng.Float64() < 0.3 {
				l++
			}
		}
		l = min(max(l, 1), MaxNameLen)

		b := make([]byte, l)
		for i := range b {
			b[i] = nameAlphabet[rng.Intn(len(nameAlphabet))]
		}

		name := string(b)
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	return names, nil
}

// Generator draws random rows from a city dictionary.
type Generator struct {
	names    [][]byte
	minValue int
	maxValue int
	rng      *rand.Rand
}

// NewGenerator creates a Generator over cities.
func NewGenerator(cities []string, minValue, maxValue int, rng *rand.Rand) *Generator {
	names := make([][]byte, len(cities))
	for i, c := range cities {
		names[i] = []byte(c)
	}
	return &Generator{
		names:    names,
		minValue: minValue,
		maxValue: maxValue,
		rng:      rng,
	}
}

// Next returns a random key and value. The integer part is uniform in
// [minValue, maxValue] and the fractional digit uniform in [0, 9], carrying
// the sign of the integer part.
func (g *Generator) Next() ([]byte, record.Tenths) {
	name := g.names[g.rng.Intn(len(g.names))]

	whole := g.minValue + g.rng.Intn(g.maxValue-g.minValue+1)
	frac := g.rng.Intn(10)
	if whole < 0 {
		frac = -frac
	}

	return name, record.Tenths(whole*10 + frac)
}

// progressEvery is how often Generate logs progress.
const progressEvery = 10_000_000

// Generate writes cfg.Rows lines to w and returns the expected summaries.
func Generate(w io.Writer, cfg Config, log *slog.Logger) ([]stats.Summary, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	cities, err := Cities(cfg.Cities, cfg.NameLen, rng)
	if err != nil {
		return nil, err
	}
	log.Debug("generated cities", "count", len(cities), "seed", seed)

	g := NewGenerator(cities, cfg.MinValue, cfg.MaxValue, rng)
	expected := stats.NewKeyMap(len(cities))

	bw := bufio.NewWriterSize(w, 1<<20)
	line := make([]byte, 0, MaxNameLen+8)

	for i := int64(0); i < cfg.Rows; i++ {
		name, value := g.Next()
		expected.Add(name, value)

		line = append(line[:0], name...)
		line = append(line, record.Separator)
		line = value.Append(line)
		line = append(line, '\n')

		if _, err := bw.Write(line); err != nil {
			return nil, fmt.Errorf("gen: write row %d: %w", i, err)
		}

		if i > 0 && i%progressEvery == 0 {
			log.Info("generating rows", "done", i, "total", cfg.Rows)
		}
	}

	if err := bw.Flush(); err != nil {
		return nil, fmt.Errorf("gen: flush: %w", err)
	}

	merged, err := stats.Merge(expected)
	if err != nil {
		return nil, err
	}
	return merged.Sorted(), nil
}
