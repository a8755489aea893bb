// Package sketch implements a mergeable DDSketch-style latency summary.
//
// A [Sketch] records latencies into logarithmically sized bins with a
// fixed 1% relative accuracy, tracks exact minima and maxima per
// operation type, and merges exactly across workers: bin counts are
// integers and add without loss, so merge order never changes a result.
package sketch

import (
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	// binCount is the fixed number of logarithmic bins per operation type.
	binCount = 2048

	// alpha is the relative accuracy of quantile estimates.
	alpha = 0.01

	// gamma is the logarithmic bin base derived from alpha.
	gamma = (1 + alpha) / (1 - alpha)

	// effectivelyOne treats quantiles this close to 1 as a max query.
	effectivelyOne = 1 - 1e-9
)

// lnGamma is the precomputed bin index divisor.
var lnGamma = math.Log(gamma)

// ErrNoSamples is returned when a quantile is requested for an operation
// type with no recorded data.
var ErrNoSamples = errors.New("sketch: no samples")

// Sketch summarizes operation latencies for a fixed set of operation
// types.
//
// A Sketch is not safe for concurrent use. The intended pattern is one
// Sketch per worker, merged by a coordinator once the workers are done.
type Sketch struct {
	opTypes    int
	bins       []uint64 // opTypes rows of binCount counters
	execCounts []uint64
	minNanos   []uint64
	maxNanos   []uint64
	totalExec  uint64
	totalNanos uint64
}

// New creates a Sketch covering opTypes distinct operation types.
// It panics when opTypes is less than 1.
func New(opTypes int) *Sketch {
	if opTypes < 1 {
		panic(fmt.Sprintf("sketch: operation type count must be at least 1, got %d", opTypes))
	}
	s := &Sketch{
		opTypes:    opTypes,
		bins:       make([]uint64, opTypes*binCount),
		execCounts: make([]uint64, opTypes),
		minNanos:   make([]uint64, opTypes),
		maxNanos:   make([]uint64, opTypes),
	}
	for i := range s.minNanos {
		s.minNanos[i] = math.MaxUint64
	}
	return s
}

// binIndex maps a latency in nanoseconds to its logarithmic bin.
func binIndex(nanos uint64) int {
	if nanos == 0 {
		return 0
	}
	idx := int(math.Ceil(math.Log(float64(nanos)) / lnGamma))
	if idx >= binCount {
		return binCount - 1
	}
	return idx
}

// clampNanos converts a duration to nanoseconds, treating negative
// durations as zero.
func clampNanos(d time.Duration) uint64 {
	if d < 0 {
		return 0
	}
	return uint64(d)
}

// Add records count executions of operation type op that together took d.
//
// The bin for d is credited with the full count, which keeps the sum of a
// type's bins equal to its execution counter. Batched targets therefore
// record one latency sample weighted by the batch size. A zero count is
// ignored.
func (s *Sketch) Add(op int, count uint64, d time.Duration) {
	if count == 0 {
		return
	}
	nanos := clampNanos(d)
	s.execCounts[op] += count
	s.totalExec += count
	s.totalNanos += nanos
	if nanos < s.minNanos[op] {
		s.minNanos[op] = nanos
	}
	if nanos > s.maxNanos[op] {
		s.maxNanos[op] = nanos
	}
	s.bins[op*binCount+binIndex(nanos)] += count
}

// AddTotals folds an aggregate measurement into the global totals without
// touching per-type state. Throughput measurement uses this path, where
// only the loop as a whole was timed.
func (s *Sketch) AddTotals(count uint64, d time.Duration) {
	s.totalExec += count
	s.totalNanos += clampNanos(d)
}

// Merge folds other into s. Counts and totals add exactly; minima and
// maxima combine pairwise. Both sketches must cover the same number of
// operation types; merging mismatched sketches panics.
func (s *Sketch) Merge(other *Sketch) {
	if other.opTypes != s.opTypes {
		panic(fmt.Sprintf("sketch: cannot merge %d operation types into %d", other.opTypes, s.opTypes))
	}
	for i, n := range other.bins {
		s.bins[i] += n
	}
	for op := range s.opTypes {
		s.execCounts[op] += other.execCounts[op]
		if other.minNanos[op] < s.minNanos[op] {
			s.minNanos[op] = other.minNanos[op]
		}
		if other.maxNanos[op] > s.maxNanos[op] {
			s.maxNanos[op] = other.maxNanos[op]
		}
	}
	s.totalExec += other.totalExec
	s.totalNanos += other.totalNanos
}

// Quantile estimates the q-quantile latency for operation type op.
//
// q at or below 0 returns the exact recorded minimum and q at (or
// effectively at) 1 returns the exact recorded maximum. Interior
// quantiles come from the bin histogram with alpha relative accuracy,
// clamped into the observed [min, max] range so results are monotone in
// q. Without data for op, Quantile returns [ErrNoSamples].
func (s *Sketch) Quantile(op int, q float64) (time.Duration, error) {
	n := s.execCounts[op]
	if n == 0 {
		return 0, fmt.Errorf("%w: operation type %d", ErrNoSamples, op)
	}
	if q <= 0 {
		return time.Duration(s.minNanos[op]), nil
	}
	if q >= effectivelyOne {
		return time.Duration(s.maxNanos[op]), nil
	}

	rank := uint64(q * float64(n-1))
	row := s.bins[op*binCount : (op+1)*binCount]
	idx := 0
	cum := row[0]
	for idx < binCount-1 && cum <= rank {
		idx++
		cum += row[idx]
	}

	est := uint64(2 * math.Pow(gamma, float64(idx)) / (gamma + 1))
	if est < s.minNanos[op] {
		est = s.minNanos[op]
	}
	if est > s.maxNanos[op] {
		est = s.maxNanos[op]
	}
	return time.Duration(est), nil
}

// HasData reports whether op has recorded executions. It is the guard for
// [Sketch.Quantile], [Sketch.Min], and [Sketch.Max].
func (s *Sketch) HasData(op int) bool {
	return s.execCounts[op] > 0
}

// ExecCount returns the number of executions recorded for op via Add.
func (s *Sketch) ExecCount(op int) uint64 {
	return s.execCounts[op]
}

// Min returns the smallest latency recorded for op, or zero without data.
func (s *Sketch) Min(op int) time.Duration {
	if s.execCounts[op] == 0 {
		return 0
	}
	return time.Duration(s.minNanos[op])
}

// Max returns the largest latency recorded for op, or zero without data.
func (s *Sketch) Max(op int) time.Duration {
	if s.execCounts[op] == 0 {
		return 0
	}
	return time.Duration(s.maxNanos[op])
}

// TotalExecCount returns executions recorded across all types, including
// aggregate counts from AddTotals.
func (s *Sketch) TotalExecCount() uint64 {
	return s.totalExec
}

// TotalElapsed returns the summed elapsed time across all recordings.
func (s *Sketch) TotalElapsed() time.Duration {
	return time.Duration(s.totalNanos)
}

// OpTypes returns the number of operation types the sketch covers.
func (s *Sketch) OpTypes() int {
	return s.opTypes
}
