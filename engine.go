package bench

import "iter"

// Engine generates the operation sequences workers execute.
type Engine[P any] interface {
	// OpTypes returns how many distinct operation types the engine emits.
	// It must be at least 1, and generated Operation.Type values must
	// stay within [0, OpTypes).
	OpTypes() int

	// Operations returns the finite operation sequence for one worker.
	// The same worker index and seed must yield the same sequence; this
	// is what makes runs reproducible for a fixed base seed. The sequence
	// may be consumed partially when a run is stopped early.
	Operations(worker int, seed int64) iter.Seq[Operation[P]]
}
