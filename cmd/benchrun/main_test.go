package main

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execRoot runs the command tree with args and returns its stdout.
func execRoot(tb testing.TB, args ...string) (string, error) {
	tb.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func parseCSV(tb testing.TB, out string) [][]string {
	tb.Helper()
	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(tb, err)
	return records
}

func TestCountersCommandThroughputCSV(t *testing.T) {
	t.Parallel()

	out, err := execRoot(t, "counters", "--workers", "2", "--ops", "500", "--seed", "3", "--csv")
	require.NoError(t, err)

	records := parseCSV(t, out)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"workers", "total_ops", "elapsed_ns", "ops_per_sec"}, records[0])
	assert.Equal(t, "2", records[1][0])
	assert.Equal(t, "1000", records[1][1], "two workers at 500 ops each")
}

func TestCachesCommandLatencyCSV(t *testing.T) {
	t.Parallel()

	out, err := execRoot(t, "caches", "--cache", "lru", "--keys", "1000",
		"--workers", "2", "--ops", "200", "--seed", "1",
		"--latency", "--csv", "--percentiles", "0,0.5,1")
	require.NoError(t, err)

	records := parseCSV(t, out)
	require.Len(t, records, 7, "header plus three percentiles for gets and sets")
	assert.Equal(t, []string{"op", "percentile", "latency_ns"}, records[0])
	for _, rec := range records[1:] {
		assert.Contains(t, []string{"0", "1"}, rec[0])
	}
}

func TestZstdCommandRuns(t *testing.T) {
	t.Parallel()

	out, err := execRoot(t, "zstd", "--blocks", "2", "--block-size", "256",
		"--workers", "1", "--ops", "50", "--seed", "1", "--csv")
	require.NoError(t, err)

	records := parseCSV(t, out)
	require.Len(t, records, 2)
	assert.Equal(t, "50", records[1][1])
}

func TestRootRejectsInvalidFlags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"zero workers", []string{"counters", "--workers", "0"}, "--workers"},
		{"zero ops", []string{"counters", "--ops", "0"}, "--ops"},
		{"negative timeout", []string{"counters", "--timeout", "-1s"}, "--timeout"},
		{"descending percentiles", []string{"counters", "--percentiles", "0.9,0.5"}, "ascend"},
		{"unknown counter impl", []string{"counters", "--impl", "spinlock"}, "unknown counter"},
		{"unknown cache", []string{"caches", "--cache", "bogus"}, "unknown cache"},
		{"unknown zstd level", []string{"zstd", "--level", "turbo"}, "unknown zstd level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := execRoot(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestConfigFileLayering(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bench.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ops: 250\n"), 0o600))

	t.Run("config file beats flag defaults", func(t *testing.T) {
		t.Parallel()

		out, err := execRoot(t, "counters", "--workers", "2", "--seed", "1", "--csv", "--config", path)
		require.NoError(t, err)
		assert.Equal(t, "500", parseCSV(t, out)[1][1])
	})

	t.Run("explicit flags beat the config file", func(t *testing.T) {
		t.Parallel()

		out, err := execRoot(t, "counters", "--workers", "2", "--ops", "100", "--seed", "1", "--csv", "--config", path)
		require.NoError(t, err)
		assert.Equal(t, "200", parseCSV(t, out)[1][1])
	})
}
