package main

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/meigma/bench"
)

// Counter suite operation types.
const (
	opRead bench.OpType = iota
	opIncrement
)

const pageCount = 1024

// counterStore is a fixed page array of shared counters behind one of
// several synchronization strategies.
type counterStore interface {
	read(pos uint64) uint64
	increment(pos uint64)
}

type mutexPage struct {
	mu sync.Mutex
	n  uint64
}

type mutexCounters struct {
	pages [pageCount]mutexPage
}

func (c *mutexCounters) read(pos uint64) uint64 {
	p := &c.pages[pos%pageCount]
	p.mu.Lock()
	n := p.n
	p.mu.Unlock()
	return n
}

func (c *mutexCounters) increment(pos uint64) {
	p := &c.pages[pos%pageCount]
	p.mu.Lock()
	p.n++
	p.mu.Unlock()
}

type rwPage struct {
	mu sync.RWMutex
	n  uint64
}

type rwMutexCounters struct {
	pages [pageCount]rwPage
}

func (c *rwMutexCounters) read(pos uint64) uint64 {
	p := &c.pages[pos%pageCount]
	p.mu.RLock()
	n := p.n
	p.mu.RUnlock()
	return n
}

func (c *rwMutexCounters) increment(pos uint64) {
	p := &c.pages[pos%pageCount]
	p.mu.Lock()
	p.n++
	p.mu.Unlock()
}

type atomicCounters struct {
	pages [pageCount]atomic.Uint64
}

func (c *atomicCounters) read(pos uint64) uint64 {
	return c.pages[pos%pageCount].Load()
}

func (c *atomicCounters) increment(pos uint64) {
	c.pages[pos%pageCount].Add(1)
}

func newCounterStore(kind string) (counterStore, error) {
	switch kind {
	case "mutex":
		return &mutexCounters{}, nil
	case "rwmutex":
		return &rwMutexCounters{}, nil
	case "atomic":
		return &atomicCounters{}, nil
	}
	return nil, fmt.Errorf("unknown counter implementation %q (want mutex, rwmutex, or atomic)", kind)
}

// counterTarget reads and increments the pages the workload picks.
type counterTarget struct {
	store counterStore
}

var _ bench.Target[uint64] = (*counterTarget)(nil)

func (t *counterTarget) SetUpForWorker() error {
	return nil
}

func (t *counterTarget) Execute(op bench.Operation[uint64]) (uint64, error) {
	if op.Type == opRead {
		t.store.read(op.Payload)
	} else {
		t.store.increment(op.Payload)
	}
	return 1, nil
}

func (t *counterTarget) TearDownForWorker() error {
	return nil
}

func newCountersCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "counters",
		Short: "Benchmark shared-counter contention across lock strategies",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireNonNegative("skew", v.GetFloat64("skew")); err != nil {
				return err
			}
			if err := requireProbability("read-ratio", v.GetFloat64("read-ratio")); err != nil {
				return err
			}
			store, err := newCounterStore(v.GetString("impl"))
			if err != nil {
				return err
			}

			engine := &mixEngine{
				ops:   v.GetUint64("ops"),
				keys:  pageCount,
				skew:  v.GetFloat64("skew"),
				ratio: v.GetFloat64("read-ratio"),
				typeA: opRead,
				typeB: opIncrement,
				types: 2,
			}
			return runBenchmark(cmd, v, &counterTarget{store: store}, engine)
		},
	}

	f := cmd.Flags()
	f.String("impl", "mutex", "counter implementation: mutex, rwmutex, or atomic")
	f.Float64("skew", 0, "zipf skew parameter, values <= 1 fall back to uniform pages")
	f.Float64("read-ratio", 0.5, "fraction of operations that are reads")
	return cmd
}
