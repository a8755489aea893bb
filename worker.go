package bench

import (
	"fmt"
	"sync/atomic"

	"github.com/meigma/bench/sketch"
)

// worker runs one goroutine's share of a benchmark: target setup before
// the start barrier, the measured loop, optional hooks, and teardown.
// Measurements accumulate in a privately owned sketch that the
// coordinator collects once the worker is done.
type worker[P any] struct {
	target Target[P]
	engine Engine[P]
	id     int
	seed   int64
	mode   Mode
	sk     *sketch.Sketch
}

// newWorker binds a worker to its derived seed and runs the target's
// per-worker setup. Setup must succeed on every worker before the barrier
// opens.
func newWorker[P any](target Target[P], engine Engine[P], id int, seed int64, mode Mode) (*worker[P], error) {
	w := &worker[P]{
		target: target,
		engine: engine,
		id:     id,
		seed:   seed,
		mode:   mode,
		sk:     sketch.New(engine.OpTypes()),
	}
	if err := target.SetUpForWorker(); err != nil {
		return nil, fmt.Errorf("worker %d setup: %w", id, err)
	}
	return w, nil
}

// run executes the hooks and the measured loop until the operation
// sequence is exhausted or stop is set. stop is only polled between
// operations, so an in-flight operation always completes and is recorded.
func (w *worker[P]) run(stop *atomic.Bool) error {
	if p, ok := w.target.(PreProcessor); ok {
		if err := p.PreProcess(); err != nil {
			return fmt.Errorf("worker %d preprocess: %w", w.id, err)
		}
	}

	var err error
	if w.mode == Latency {
		err = w.measureLatency(stop)
	} else {
		err = w.measureThroughput(stop)
	}
	if err != nil {
		return err
	}

	if p, ok := w.target.(PostProcessor); ok {
		if err := p.PostProcess(); err != nil {
			return fmt.Errorf("worker %d postprocess: %w", w.id, err)
		}
	}
	return nil
}

// measureThroughput times the loop as a whole and folds the aggregate
// count and elapsed time into the sketch totals. A stopped loop records
// whatever it completed.
func (w *worker[P]) measureThroughput(stop *atomic.Bool) error {
	var executed uint64
	var watch StopWatch

	watch.Start()
	for op := range w.engine.Operations(w.id, w.seed) {
		if stop.Load() {
			break
		}
		n, err := w.target.Execute(op)
		if err != nil {
			return fmt.Errorf("worker %d execute: %w", w.id, err)
		}
		executed += n
	}
	watch.Stop()

	w.sk.AddTotals(executed, watch.Elapsed())
	return nil
}

// measureLatency times each operation and records it under its type.
func (w *worker[P]) measureLatency(stop *atomic.Bool) error {
	var watch StopWatch
	for op := range w.engine.Operations(w.id, w.seed) {
		if stop.Load() {
			break
		}
		watch.Start()
		n, err := w.target.Execute(op)
		watch.Stop()
		if err != nil {
			return fmt.Errorf("worker %d execute: %w", w.id, err)
		}
		w.sk.Add(int(op.Type), n, watch.Elapsed())
	}
	return nil
}

// teardown runs the target's per-worker teardown. The benchmarker calls
// it even when the loop returned an error.
func (w *worker[P]) teardown() error {
	if err := w.target.TearDownForWorker(); err != nil {
		return fmt.Errorf("worker %d teardown: %w", w.id, err)
	}
	return nil
}
