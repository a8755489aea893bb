// Package benchtest provides shared targets and engines for exercising
// the harness in tests.
package benchtest

import (
	"errors"
	"iter"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/meigma/bench"
)

// ErrInjected is returned by targets configured to fail.
var ErrInjected = errors.New("benchtest: injected failure")

// Interface compliance.
var (
	_ bench.Target[uint64] = (*CountingTarget)(nil)
	_ bench.Engine[uint64] = (*StaticEngine)(nil)
	_ bench.Target[uint64] = (*HookRecorder)(nil)
	_ bench.PreProcessor   = (*HookRecorder)(nil)
	_ bench.PostProcessor  = (*HookRecorder)(nil)
)

// CountingTarget counts executions on a shared counter. With UseMutex the
// counter is guarded by a sync.Mutex; otherwise it is atomic. Optional
// fields inject per-operation delay and lifecycle failures.
type CountingTarget struct {
	UseMutex bool

	// Delay makes every Execute sleep this long first.
	Delay time.Duration

	// FailSetupAt fails the n-th SetUpForWorker call (1-based). Zero
	// disables.
	FailSetupAt int64

	// FailExecuteAt fails the n-th Execute call (1-based). Zero disables.
	FailExecuteAt uint64

	mu        sync.Mutex
	locked    uint64
	counter   atomic.Uint64
	setups    atomic.Int64
	teardowns atomic.Int64
	executes  atomic.Uint64
}

func (t *CountingTarget) SetUpForWorker() error {
	if n := t.setups.Add(1); t.FailSetupAt > 0 && n == t.FailSetupAt {
		return ErrInjected
	}
	return nil
}

func (t *CountingTarget) Execute(op bench.Operation[uint64]) (uint64, error) {
	if n := t.executes.Add(1); t.FailExecuteAt > 0 && n == t.FailExecuteAt {
		return 0, ErrInjected
	}
	if t.Delay > 0 {
		time.Sleep(t.Delay)
	}
	if t.UseMutex {
		t.mu.Lock()
		t.locked++
		t.mu.Unlock()
	} else {
		t.counter.Add(1)
	}
	return 1, nil
}

func (t *CountingTarget) TearDownForWorker() error {
	t.teardowns.Add(1)
	return nil
}

// Count returns the number of completed executions.
func (t *CountingTarget) Count() uint64 {
	t.mu.Lock()
	locked := t.locked
	t.mu.Unlock()
	return locked + t.counter.Load()
}

// Executes returns how many Execute calls started.
func (t *CountingTarget) Executes() uint64 {
	return t.executes.Load()
}

// Setups returns how many SetUpForWorker calls were made.
func (t *CountingTarget) Setups() int64 {
	return t.setups.Load()
}

// Teardowns returns how many TearDownForWorker calls were made.
func (t *CountingTarget) Teardowns() int64 {
	return t.teardowns.Load()
}

// StaticEngine emits a fixed number of operations per worker, cycling
// through its operation types with the operation index as payload. It
// records every (worker, seed) pair it was asked for, which makes seed
// derivation directly observable in tests.
type StaticEngine struct {
	// Types is the operation type count. Zero means 1.
	Types int

	// Ops is the sequence length per worker.
	Ops int

	mu    sync.Mutex
	seeds map[int]int64
}

func (e *StaticEngine) OpTypes() int {
	if e.Types == 0 {
		return 1
	}
	return e.Types
}

func (e *StaticEngine) Operations(worker int, seed int64) iter.Seq[bench.Operation[uint64]] {
	e.mu.Lock()
	if e.seeds == nil {
		e.seeds = make(map[int]int64)
	}
	e.seeds[worker] = seed
	e.mu.Unlock()

	types := e.OpTypes()
	return func(yield func(bench.Operation[uint64]) bool) {
		for i := range e.Ops {
			op := bench.Operation[uint64]{
				Type:    bench.OpType(i % types),
				Payload: uint64(i),
			}
			if !yield(op) {
				return
			}
		}
	}
}

// Seeds returns a copy of the recorded per-worker seeds.
func (e *StaticEngine) Seeds() map[int]int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return maps.Clone(e.seeds)
}

// HookRecorder wraps a target and appends every lifecycle event to an
// ordered trace. It always advertises the PreProcess and PostProcess
// capabilities, delegating to the inner target when it has them.
type HookRecorder struct {
	Inner bench.Target[uint64]

	mu    sync.Mutex
	trace []string
}

func (h *HookRecorder) record(event string) {
	h.mu.Lock()
	h.trace = append(h.trace, event)
	h.mu.Unlock()
}

func (h *HookRecorder) SetUpForWorker() error {
	h.record("setup")
	return h.Inner.SetUpForWorker()
}

func (h *HookRecorder) PreProcess() error {
	h.record("preprocess")
	if p, ok := h.Inner.(bench.PreProcessor); ok {
		return p.PreProcess()
	}
	return nil
}

func (h *HookRecorder) Execute(op bench.Operation[uint64]) (uint64, error) {
	h.record("execute")
	return h.Inner.Execute(op)
}

func (h *HookRecorder) PostProcess() error {
	h.record("postprocess")
	if p, ok := h.Inner.(bench.PostProcessor); ok {
		return p.PostProcess()
	}
	return nil
}

func (h *HookRecorder) TearDownForWorker() error {
	h.record("teardown")
	return h.Inner.TearDownForWorker()
}

// Trace returns a copy of the recorded event order.
func (h *HookRecorder) Trace() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.trace))
	copy(out, h.trace)
	return out
}
