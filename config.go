package bench

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"log/slog"
	"runtime"
	"time"
)

// Mode selects what a run measures.
type Mode uint8

const (
	// Throughput times each worker's loop once and reports operations per
	// second.
	Throughput Mode = iota

	// Latency times every operation individually and reports percentiles.
	Latency
)

// String returns the human-readable name of the mode.
func (m Mode) String() string {
	switch m {
	case Throughput:
		return "throughput"
	case Latency:
		return "latency"
	default:
		return "unknown"
	}
}

// DefaultPercentiles is the percentile set latency reports use when
// Config.Percentiles is empty.
var DefaultPercentiles = []float64{0, 0.25, 0.50, 0.75, 0.90, 0.95, 0.99, 0.999, 0.9999, 1}

// Config holds the parameters of a benchmark run. The zero value is
// usable: it measures throughput with one worker per CPU, a random seed,
// no deadline, and the default percentiles.
type Config struct {
	// Workers is the number of concurrent workers. Zero means
	// runtime.GOMAXPROCS(0).
	Workers int

	// Seed is the base seed from which per-worker seeds derive. Fixing
	// Seed and Workers fixes every worker's operation sequence. A
	// negative seed is replaced with a random one at construction.
	Seed int64

	// Mode selects throughput or latency measurement.
	Mode Mode

	// Timeout bounds the measured phase. Zero means no deadline. A run
	// that hits the deadline still produces a report from the operations
	// that completed.
	Timeout time.Duration

	// Percentiles lists the quantiles latency reports include, ascending,
	// each within [0, 1]. Empty means DefaultPercentiles.
	Percentiles []float64

	// Logger receives run phase events. Nil discards them.
	Logger *slog.Logger
}

// Validate checks the configuration and returns a descriptive error
// wrapping [ErrInvalidConfig] for the first violated rule.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalidConfig, c.Workers)
	}
	if c.Mode > Latency {
		return fmt.Errorf("%w: unknown mode %d", ErrInvalidConfig, uint8(c.Mode))
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: timeout must not be negative, got %v", ErrInvalidConfig, c.Timeout)
	}
	for i, q := range c.Percentiles {
		if q < 0 || q > 1 {
			return fmt.Errorf("%w: percentile %g outside [0, 1]", ErrInvalidConfig, q)
		}
		if i > 0 && q < c.Percentiles[i-1] {
			return fmt.Errorf("%w: percentiles must ascend, %g follows %g", ErrInvalidConfig, q, c.Percentiles[i-1])
		}
	}
	return nil
}

// withDefaults returns a copy of the config with zero values resolved.
func (c Config) withDefaults() Config {
	if c.Workers == 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	if c.Seed < 0 {
		c.Seed = randomSeed()
	}
	if len(c.Percentiles) == 0 {
		c.Percentiles = DefaultPercentiles
	}
	return c
}

// randomSeed draws a non-negative seed from the OS entropy source,
// falling back to the clock if that source fails.
func randomSeed() int64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return time.Now().UnixNano()
	}
	return int64(binary.LittleEndian.Uint64(b[:]) >> 1)
}
