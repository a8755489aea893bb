package bench

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/meigma/bench/sketch"
)

// Benchmarker coordinates benchmark runs: it spawns workers, lines them
// up behind a start barrier, releases them together, enforces the run
// deadline, and merges worker measurements into a [Report].
type Benchmarker[P any] struct {
	target Target[P]
	engine Engine[P]
	cfg    Config
}

// New validates cfg and builds a Benchmarker for the target and engine.
// Zero-valued cfg fields are resolved to their defaults here, so the
// returned Benchmarker always runs with a concrete worker count and seed.
func New[P any](target Target[P], engine Engine[P], cfg Config) (*Benchmarker[P], error) {
	if target == nil {
		return nil, fmt.Errorf("%w: target must not be nil", ErrInvalidConfig)
	}
	if engine == nil {
		return nil, fmt.Errorf("%w: engine must not be nil", ErrInvalidConfig)
	}
	if n := engine.OpTypes(); n < 1 {
		return nil, fmt.Errorf("%w: engine must declare at least one operation type, got %d", ErrInvalidConfig, n)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Benchmarker[P]{
		target: target,
		engine: engine,
		cfg:    cfg.withDefaults(),
	}, nil
}

// Seed returns the base seed runs will use. Callers report it when the
// seed was drawn randomly, so a run can be reproduced.
func (b *Benchmarker[P]) Seed() int64 {
	return b.cfg.Seed
}

// Workers returns the resolved worker count.
func (b *Benchmarker[P]) Workers() int {
	return b.cfg.Workers
}

func (b *Benchmarker[P]) log() *slog.Logger {
	if b.cfg.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.cfg.Logger
}

// Run executes one benchmark run and returns its report. Runs are
// independent; calling Run again repeats the run with the same
// configuration and therefore the same derived worker seeds.
//
// Every worker finishes setup before any worker starts measuring: each
// signals readiness and blocks on a gate that opens only after the last
// one arrives. When cfg.Timeout elapses, workers are stopped
// cooperatively and the completed operations still produce a report; a
// timeout is not an error. Cancelling ctx stops the run the same way,
// but Run then returns the partial report together with ctx's error.
// Setup and execute failures abort the run with no report.
func (b *Benchmarker[P]) Run(ctx context.Context) (*Report, error) {
	workers := b.cfg.Workers

	// One deterministic seed per worker, all derived from the base seed.
	src := rand.New(rand.NewSource(b.cfg.Seed))
	seeds := make([]int64, workers)
	for i := range seeds {
		seeds[i] = src.Int63()
	}

	var (
		stop        atomic.Bool
		setupFailed atomic.Bool
		prepared    sync.WaitGroup
		start       = make(chan struct{})
		results     = make([]*sketch.Sketch, workers)
	)
	prepared.Add(workers)

	b.log().Debug("spawning workers",
		"workers", workers, "mode", b.cfg.Mode, "seed", b.cfg.Seed)

	g, runCtx := errgroup.WithContext(ctx)
	for i := range workers {
		g.Go(func() error {
			w, err := newWorker(b.target, b.engine, i, seeds[i], b.cfg.Mode)
			if err != nil {
				// The store precedes Done, so the coordinator is
				// guaranteed to observe it once all workers checked in.
				setupFailed.Store(true)
				prepared.Done()
				return err
			}
			prepared.Done()

			select {
			case <-start:
			case <-runCtx.Done():
				// Aborted before release. Teardown still runs so the
				// target never leaks per-worker state.
				if err := w.teardown(); err != nil {
					return err
				}
				results[i] = w.sk
				return nil
			}

			runErr := w.run(&stop)
			if terr := w.teardown(); runErr == nil {
				runErr = terr
			}
			if runErr != nil {
				return runErr
			}
			results[i] = w.sk
			return nil
		})
	}

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	allPrepared := make(chan struct{})
	go func() {
		prepared.Wait()
		close(allPrepared)
	}()

	var werr error
	select {
	case <-allPrepared:
		if setupFailed.Load() {
			// The gate stays shut; no worker ever executes an operation
			// and the parked ones unwind through their abort path.
			werr = <-done
			break
		}
		b.log().Debug("workers prepared, releasing")
		close(start)
		werr = b.await(done, &stop, runCtx)
	case <-runCtx.Done():
		// ctx ended before every worker checked in; the gate never opens
		// and workers unwind through their abort path.
		werr = <-done
	}
	if werr != nil {
		return nil, werr
	}

	merged := sketch.New(b.engine.OpTypes())
	for _, sk := range results {
		if sk != nil {
			merged.Merge(sk)
		}
	}

	report := newReport(b.cfg, merged)
	b.log().Debug("run complete",
		"total_ops", report.TotalOps, "elapsed", report.Elapsed)

	if err := ctx.Err(); err != nil {
		b.log().Info("run cancelled, report covers completed operations", "cause", err)
		return report, err
	}
	return report, nil
}

// await blocks until every worker is done, stopping them cooperatively
// when the deadline passes or the run context ends. The stop flag is
// written here and nowhere else, at most once per cause, and workers only
// poll it between operations.
func (b *Benchmarker[P]) await(done <-chan error, stop *atomic.Bool, runCtx context.Context) error {
	var timeoutC <-chan time.Time
	if b.cfg.Timeout > 0 {
		timer := time.NewTimer(b.cfg.Timeout)
		defer timer.Stop()
		timeoutC = timer.C
	}

	ctxDone := runCtx.Done()
	for {
		select {
		case err := <-done:
			return err
		case <-timeoutC:
			b.log().Warn("deadline reached, stopping workers", "timeout", b.cfg.Timeout)
			stop.Store(true)
			timeoutC = nil
		case <-ctxDone:
			stop.Store(true)
			ctxDone = nil
		}
	}
}
