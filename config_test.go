package bench

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"zero value", Config{}, false},
		{"explicit workers", Config{Workers: 8}, false},
		{"latency mode", Config{Mode: Latency}, false},
		{"custom percentiles", Config{Percentiles: []float64{0, 0.5, 0.99, 1}}, false},
		{"timeout", Config{Timeout: time.Minute}, false},
		{"negative workers", Config{Workers: -1}, true},
		{"unknown mode", Config{Mode: Mode(7)}, true},
		{"negative timeout", Config{Timeout: -time.Second}, true},
		{"percentile above one", Config{Percentiles: []float64{0.5, 1.5}}, true},
		{"negative percentile", Config{Percentiles: []float64{-0.1, 0.5}}, true},
		{"descending percentiles", Config{Percentiles: []float64{0.9, 0.5}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestConfigWithDefaults(t *testing.T) {
	t.Parallel()

	t.Run("zero value resolves", func(t *testing.T) {
		t.Parallel()

		cfg := Config{Seed: -1}.withDefaults()
		assert.Equal(t, runtime.GOMAXPROCS(0), cfg.Workers)
		assert.GreaterOrEqual(t, cfg.Seed, int64(0), "negative seed must be replaced")
		assert.Equal(t, DefaultPercentiles, cfg.Percentiles)
	})

	t.Run("explicit values survive", func(t *testing.T) {
		t.Parallel()

		in := Config{Workers: 3, Seed: 42, Mode: Latency, Percentiles: []float64{0.5}}
		cfg := in.withDefaults()
		assert.Equal(t, 3, cfg.Workers)
		assert.Equal(t, int64(42), cfg.Seed)
		assert.Equal(t, Latency, cfg.Mode)
		assert.Equal(t, []float64{0.5}, cfg.Percentiles)
	})

	t.Run("zero seed is a valid fixed seed", func(t *testing.T) {
		t.Parallel()

		cfg := Config{}.withDefaults()
		assert.Equal(t, int64(0), cfg.Seed)
	})
}

func TestModeString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "throughput", Throughput.String())
	assert.Equal(t, "latency", Latency.String())
	assert.Equal(t, "unknown", Mode(9).String())
}

func TestRandomSeedNonNegative(t *testing.T) {
	t.Parallel()

	for range 100 {
		assert.GreaterOrEqual(t, randomSeed(), int64(0))
	}
}
