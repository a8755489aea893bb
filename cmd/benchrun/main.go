// Command benchrun drives concurrent micro-benchmarks against in-process
// targets: cache implementations, shared counters, and zstd codecs.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/meigma/bench"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "benchrun:", err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Each subcommand is a benchmark
// suite sharing the persistent run flags.
func newRootCmd() *cobra.Command {
	v := viper.New()
	root := &cobra.Command{
		Use:   "benchrun",
		Short: "Run concurrent micro-benchmark suites",
		Long: `benchrun drives concurrent micro-benchmarks against in-process targets:
cache implementations, shared counters, and zstd codecs.

Workers start together behind a barrier, execute deterministic per-worker
operation sequences derived from --seed, and report throughput or latency
percentiles.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := bindFlags(v, cmd.Flags()); err != nil {
				return err
			}
			return validateRunFlags(v, cmd.Flags())
		},
	}

	pf := root.PersistentFlags()
	pf.Int("workers", runtime.GOMAXPROCS(0), "number of concurrent workers")
	pf.Uint64("ops", 100_000, "operations per worker")
	pf.Int64("seed", -1, "base random seed, negative draws one at random")
	pf.Duration("timeout", 0, "stop the run after this duration, 0 runs to completion")
	pf.Bool("latency", false, "measure per-operation latency instead of throughput")
	pf.Float64Slice("percentiles", nil, "percentiles reported in latency mode")
	pf.Bool("csv", false, "emit the report as CSV")
	pf.Bool("quiet", false, "suppress progress logging")
	pf.Bool("verbose", false, "log run phase details")
	pf.String("config", "", "optional YAML config file")

	root.AddCommand(newCachesCmd(v))
	root.AddCommand(newCountersCmd(v))
	root.AddCommand(newZstdCmd(v))
	return root
}

// bindFlags layers configuration: explicit flags beat BENCHRUN_* env
// vars, which beat the optional config file, which beats flag defaults.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	if err := v.BindPFlags(flags); err != nil {
		return err
	}
	v.SetEnvPrefix("BENCHRUN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

// runBenchmark builds the run config, drives one suite run, and renders
// the report. A cancelled run still renders the partial report before the
// cancellation error is returned.
func runBenchmark[P any](cmd *cobra.Command, v *viper.Viper, target bench.Target[P], engine bench.Engine[P]) error {
	pcts, err := cmd.Flags().GetFloat64Slice("percentiles")
	if err != nil {
		return err
	}
	mode := bench.Throughput
	if v.GetBool("latency") {
		mode = bench.Latency
	}

	logger := newLogger(v)
	b, err := bench.New(target, engine, bench.Config{
		Workers:     v.GetInt("workers"),
		Seed:        v.GetInt64("seed"),
		Mode:        mode,
		Timeout:     v.GetDuration("timeout"),
		Percentiles: pcts,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	if logger != nil {
		logger.Info("starting run",
			"suite", cmd.Name(), "workers", b.Workers(), "seed", b.Seed(), "mode", mode)
	}

	report, runErr := b.Run(cmd.Context())
	if report != nil {
		if err := render(v, cmd, report); err != nil {
			return err
		}
	}
	return runErr
}

// newLogger returns the CLI logger, or nil when output must stay silent.
func newLogger(v *viper.Viper) *slog.Logger {
	if v.GetBool("quiet") || v.GetBool("csv") {
		return nil
	}
	level := slog.LevelInfo
	if v.GetBool("verbose") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// render writes the report to the command's stdout.
func render(v *viper.Viper, cmd *cobra.Command, r *bench.Report) error {
	if v.GetBool("csv") {
		return r.WriteCSV(cmd.OutOrStdout())
	}
	return r.WriteText(cmd.OutOrStdout())
}
