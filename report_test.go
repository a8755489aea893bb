package bench

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/bench/sketch"
)

func throughputReport(tb testing.TB) *Report {
	tb.Helper()
	sk := sketch.New(1)
	sk.AddTotals(4000, 8*time.Second)
	return newReport(Config{Workers: 4, Mode: Throughput}, sk)
}

func latencyReport(tb testing.TB) *Report {
	tb.Helper()
	sk := sketch.New(3)
	for range 100 {
		sk.Add(0, 1, time.Millisecond)
	}
	for range 50 {
		sk.Add(2, 1, 2*time.Millisecond)
	}
	cfg := Config{Workers: 1, Mode: Latency, Percentiles: []float64{0, 0.5, 1}}
	return newReport(cfg, sk)
}

func TestNewReportThroughput(t *testing.T) {
	t.Parallel()

	r := throughputReport(t)
	assert.Equal(t, Throughput, r.Mode)
	assert.Equal(t, 4, r.Workers)
	assert.Equal(t, uint64(4000), r.TotalOps)
	assert.Equal(t, 2*time.Second, r.Elapsed, "elapsed is the per-worker mean")
	assert.InDelta(t, 2000.0, r.Throughput, 0.01)
	assert.Empty(t, r.Latencies)
}

func TestNewReportZeroElapsed(t *testing.T) {
	t.Parallel()

	sk := sketch.New(1)
	sk.AddTotals(100, 0)
	r := newReport(Config{Workers: 2, Mode: Throughput}, sk)

	assert.Equal(t, uint64(100), r.TotalOps)
	assert.Zero(t, r.Throughput, "zero elapsed time must not divide")
}

func TestNewReportLatencyRows(t *testing.T) {
	t.Parallel()

	r := latencyReport(t)
	require.Len(t, r.Latencies, 2, "types without data get no row")

	first := r.Latencies[0]
	assert.Equal(t, OpType(0), first.Op)
	assert.Equal(t, uint64(100), first.Count)
	require.Len(t, first.Percentiles, 3)
	for _, pv := range first.Percentiles {
		assert.Equal(t, time.Millisecond, pv.Value)
	}

	second := r.Latencies[1]
	assert.Equal(t, OpType(2), second.Op)
	assert.Equal(t, uint64(50), second.Count)
	for _, pv := range second.Percentiles {
		assert.Equal(t, 2*time.Millisecond, pv.Value)
	}
}

func TestReportWriteTextThroughput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, throughputReport(t).WriteText(&buf))

	out := buf.String()
	assert.Contains(t, out, "Throughput [Ops/s]: 2000.00")
	assert.Contains(t, out, "workers: 4")
	assert.Contains(t, out, "total ops: 4000")
}

func TestReportWriteTextLatency(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, latencyReport(t).WriteText(&buf))

	out := buf.String()
	assert.Contains(t, out, "Percentiled Latency [ns]:")
	assert.Contains(t, out, "Ops ID[0] (100 ops):")
	assert.Contains(t, out, "Ops ID[2] (50 ops):")
	assert.Contains(t, out, "50.00:")
}

func TestReportWriteCSVThroughput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, throughputReport(t).WriteCSV(&buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"workers", "total_ops", "elapsed_ns", "ops_per_sec"}, records[0])
	assert.Equal(t, []string{"4", "4000", "2000000000", "2000.00"}, records[1])
}

func TestReportWriteCSVLatency(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, latencyReport(t).WriteCSV(&buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 7, "header plus three percentiles for each of two types")
	assert.Equal(t, []string{"op", "percentile", "latency_ns"}, records[0])
	assert.Equal(t, []string{"0", "0", "1000000"}, records[1])
	assert.Equal(t, []string{"0", "0.5", "1000000"}, records[2])
	assert.Equal(t, []string{"2", "1", "2000000"}, records[6])
}
