package bench

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/meigma/bench/sketch"
)

// PercentileValue is one rendered quantile of a latency distribution.
type PercentileValue struct {
	Q     float64
	Value time.Duration
}

// LatencyRow summarizes one operation type's latency distribution.
type LatencyRow struct {
	Op          OpType
	Count       uint64
	Percentiles []PercentileValue
}

// Report is the outcome of a benchmark run.
type Report struct {
	// Mode is the measurement mode the run used.
	Mode Mode

	// Workers is the number of workers that ran.
	Workers int

	// TotalOps counts logical executions across all workers.
	TotalOps uint64

	// Elapsed is the mean measured time per worker.
	Elapsed time.Duration

	// Throughput is TotalOps per second of mean per-worker elapsed time.
	Throughput float64

	// Latencies holds one row per operation type with recorded data,
	// percentiles ascending. Empty in throughput mode.
	Latencies []LatencyRow

	sk *sketch.Sketch
}

// newReport assembles a report from the merged sketch of a finished run.
func newReport(cfg Config, sk *sketch.Sketch) *Report {
	r := &Report{
		Mode:     cfg.Mode,
		Workers:  cfg.Workers,
		TotalOps: sk.TotalExecCount(),
		sk:       sk,
	}

	// Throughput is measured against the mean per-worker elapsed time.
	avgNanos := float64(sk.TotalElapsed().Nanoseconds()) / float64(cfg.Workers)
	r.Elapsed = time.Duration(avgNanos)
	if avgNanos > 0 {
		r.Throughput = float64(r.TotalOps) / (avgNanos / 1e9)
	}

	if cfg.Mode == Latency {
		for op := range sk.OpTypes() {
			if !sk.HasData(op) {
				continue
			}
			row := LatencyRow{Op: OpType(op), Count: sk.ExecCount(op)}
			for _, q := range cfg.Percentiles {
				v, err := sk.Quantile(op, q)
				if err != nil {
					continue
				}
				row.Percentiles = append(row.Percentiles, PercentileValue{Q: q, Value: v})
			}
			r.Latencies = append(r.Latencies, row)
		}
	}
	return r
}

// Sketch exposes the merged measurement summary for callers that want
// quantiles beyond the configured percentile set.
func (r *Report) Sketch() *sketch.Sketch {
	return r.sk
}

// WriteText writes the human-readable report form.
func (r *Report) WriteText(w io.Writer) error {
	if r.Mode == Latency {
		if _, err := fmt.Fprintln(w, "Percentiled Latency [ns]:"); err != nil {
			return err
		}
		for _, row := range r.Latencies {
			if _, err := fmt.Fprintf(w, " Ops ID[%d] (%d ops):\n", row.Op, row.Count); err != nil {
				return err
			}
			for _, pv := range row.Percentiles {
				if _, err := fmt.Fprintf(w, "  %6.2f: %12d\n", pv.Q*100, pv.Value.Nanoseconds()); err != nil {
					return err
				}
			}
		}
		return nil
	}

	_, err := fmt.Fprintf(w, "Throughput [Ops/s]: %.2f\n  workers: %d\n  total ops: %d\n  elapsed/worker: %v\n",
		r.Throughput, r.Workers, r.TotalOps, r.Elapsed.Round(time.Microsecond))
	return err
}

// WriteCSV writes the machine-readable report form.
func (r *Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if r.Mode == Latency {
		if err := cw.Write([]string{"op", "percentile", "latency_ns"}); err != nil {
			return err
		}
		for _, row := range r.Latencies {
			for _, pv := range row.Percentiles {
				rec := []string{
					strconv.Itoa(int(row.Op)),
					strconv.FormatFloat(pv.Q, 'g', -1, 64),
					strconv.FormatInt(pv.Value.Nanoseconds(), 10),
				}
				if err := cw.Write(rec); err != nil {
					return err
				}
			}
		}
	} else {
		if err := cw.Write([]string{"workers", "total_ops", "elapsed_ns", "ops_per_sec"}); err != nil {
			return err
		}
		rec := []string{
			strconv.Itoa(r.Workers),
			strconv.FormatUint(r.TotalOps, 10),
			strconv.FormatInt(r.Elapsed.Nanoseconds(), 10),
			strconv.FormatFloat(r.Throughput, 'f', 2, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
