package main

import (
	"iter"
	"math/rand" //nolint:gosec // intentional use for reproducible benchmarks

	"github.com/meigma/bench"
)

// mixEngine emits a two-type operation mix over a bounded key space.
// Keys follow a Zipf distribution when skew > 1 and are uniform
// otherwise; the ratio sets the probability of emitting typeA.
type mixEngine struct {
	ops   uint64
	keys  uint64
	skew  float64
	ratio float64
	typeA bench.OpType
	typeB bench.OpType
	types int
}

var _ bench.Engine[uint64] = (*mixEngine)(nil)

func (e *mixEngine) OpTypes() int {
	return e.types
}

func (e *mixEngine) Operations(_ int, seed int64) iter.Seq[bench.Operation[uint64]] {
	return func(yield func(bench.Operation[uint64]) bool) {
		rng := rand.New(rand.NewSource(seed))
		var zipf *rand.Zipf
		if e.skew > 1 {
			zipf = rand.NewZipf(rng, e.skew, 1, e.keys-1)
		}

		for range e.ops {
			var key uint64
			if zipf != nil {
				key = zipf.Uint64()
			} else {
				key = uint64(rng.Int63n(int64(e.keys)))
			}
			opType := e.typeA
			if rng.Float64() >= e.ratio {
				opType = e.typeB
			}
			if !yield(bench.Operation[uint64]{Type: opType, Payload: key}) {
				return
			}
		}
	}
}
