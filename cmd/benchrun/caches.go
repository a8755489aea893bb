package main

import (
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/coocood/freecache"
	"github.com/dgraph-io/ristretto/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/maypok86/otter/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/meigma/bench"
)

// Cache suite operation types.
const (
	opGet bench.OpType = iota
	opSet
)

const cacheValueSize = 64

// cacheStore narrows a cache implementation to the two calls the suite
// measures.
type cacheStore interface {
	get(key uint64) bool
	set(key uint64, value []byte)
}

type lruStore struct {
	c *lru.Cache[uint64, []byte]
}

func (s *lruStore) get(key uint64) bool {
	_, ok := s.c.Get(key)
	return ok
}

func (s *lruStore) set(key uint64, value []byte) {
	s.c.Add(key, value)
}

type ristrettoStore struct {
	c *ristretto.Cache[uint64, []byte]
}

func (s *ristrettoStore) get(key uint64) bool {
	_, ok := s.c.Get(key)
	return ok
}

func (s *ristrettoStore) set(key uint64, value []byte) {
	s.c.Set(key, value, int64(len(value)))
}

type freecacheStore struct {
	c *freecache.Cache
}

func (s *freecacheStore) get(key uint64) bool {
	var kb [8]byte
	binary.LittleEndian.PutUint64(kb[:], key)
	_, err := s.c.Get(kb[:])
	return err == nil
}

func (s *freecacheStore) set(key uint64, value []byte) {
	var kb [8]byte
	binary.LittleEndian.PutUint64(kb[:], key)
	_ = s.c.Set(kb[:], value, 0)
}

type otterStore struct {
	c *otter.Cache[uint64, []byte]
}

func (s *otterStore) get(key uint64) bool {
	_, ok := s.c.GetIfPresent(key)
	return ok
}

func (s *otterStore) set(key uint64, value []byte) {
	s.c.Set(key, value)
}

type syncMapStore struct {
	m sync.Map
}

func (s *syncMapStore) get(key uint64) bool {
	_, ok := s.m.Load(key)
	return ok
}

func (s *syncMapStore) set(key uint64, value []byte) {
	s.m.Store(key, value)
}

// newCacheStore builds the competitor selected by kind, sized to hold
// about capacity entries.
func newCacheStore(kind string, capacity int) (cacheStore, error) {
	switch kind {
	case "lru":
		c, err := lru.New[uint64, []byte](capacity)
		if err != nil {
			return nil, err
		}
		return &lruStore{c: c}, nil
	case "ristretto":
		c, err := ristretto.NewCache(&ristretto.Config[uint64, []byte]{
			NumCounters: int64(capacity) * 10,
			MaxCost:     int64(capacity) * cacheValueSize,
			BufferItems: 64,
		})
		if err != nil {
			return nil, err
		}
		return &ristrettoStore{c: c}, nil
	case "freecache":
		return &freecacheStore{c: freecache.NewCache(capacity * 128)}, nil
	case "otter":
		return &otterStore{c: otter.Must(&otter.Options[uint64, []byte]{MaximumSize: capacity})}, nil
	case "syncmap":
		return &syncMapStore{}, nil
	}
	return nil, fmt.Errorf("unknown cache %q (want lru, ristretto, freecache, otter, or syncmap)", kind)
}

// cacheTarget drives one cache implementation. Gets and hits are counted
// so the suite can log the hit ratio after a run.
type cacheTarget struct {
	store cacheStore
	value []byte
	gets  atomic.Uint64
	hits  atomic.Uint64
}

var _ bench.Target[uint64] = (*cacheTarget)(nil)

func (t *cacheTarget) SetUpForWorker() error {
	return nil
}

func (t *cacheTarget) Execute(op bench.Operation[uint64]) (uint64, error) {
	if op.Type == opGet {
		t.gets.Add(1)
		if t.store.get(op.Payload) {
			t.hits.Add(1)
		}
	} else {
		t.store.set(op.Payload, t.value)
	}
	return 1, nil
}

func (t *cacheTarget) TearDownForWorker() error {
	return nil
}

// hitRatio returns hits over gets, or zero before any get.
func (t *cacheTarget) hitRatio() float64 {
	gets := t.gets.Load()
	if gets == 0 {
		return 0
	}
	return float64(t.hits.Load()) / float64(gets)
}

func newCachesCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "caches",
		Short: "Benchmark cache implementations under a Zipf-skewed workload",
		RunE: func(cmd *cobra.Command, _ []string) error {
			keys := v.GetInt("keys")
			if err := requirePositiveInt("keys", int64(keys)); err != nil {
				return err
			}
			capacity := v.GetInt("capacity")
			if capacity == 0 {
				capacity = keys / 10
			}
			if err := requirePositiveInt("capacity", int64(capacity)); err != nil {
				return err
			}
			if err := requireNonNegative("skew", v.GetFloat64("skew")); err != nil {
				return err
			}
			if err := requireProbability("read-ratio", v.GetFloat64("read-ratio")); err != nil {
				return err
			}

			store, err := newCacheStore(v.GetString("cache"), capacity)
			if err != nil {
				return err
			}
			target := &cacheTarget{store: store, value: make([]byte, cacheValueSize)}

			// Warm the cache with the first half of the key space.
			for key := range uint64(keys) / 2 {
				store.set(key, target.value)
			}

			engine := &mixEngine{
				ops:   v.GetUint64("ops"),
				keys:  uint64(keys),
				skew:  v.GetFloat64("skew"),
				ratio: v.GetFloat64("read-ratio"),
				typeA: opGet,
				typeB: opSet,
				types: 2,
			}
			runErr := runBenchmark(cmd, v, target, engine)
			if l := newLogger(v); l != nil && target.gets.Load() > 0 {
				l.Info("cache hit ratio",
					"cache", v.GetString("cache"), "ratio", fmt.Sprintf("%.3f", target.hitRatio()))
			}
			return runErr
		},
	}

	f := cmd.Flags()
	f.String("cache", "lru", "cache implementation: lru, ristretto, freecache, otter, or syncmap")
	f.Int("keys", 100_000, "key space size")
	f.Int("capacity", 0, "cache capacity in entries, 0 means keys/10")
	f.Float64("skew", 1.1, "zipf skew parameter, values <= 1 fall back to uniform keys")
	f.Float64("read-ratio", 0.75, "fraction of operations that are gets")
	return cmd
}
