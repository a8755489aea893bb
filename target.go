package bench

// OpType identifies one of an engine's operation types. Values are dense:
// an engine declaring n types emits operations typed 0 through n-1.
type OpType int

// Operation pairs an operation type with the payload the engine generated
// for it. Payloads pass through the harness to the target untouched.
type Operation[P any] struct {
	Type    OpType
	Payload P
}

// Target is the system under measurement.
//
// A single Target instance is shared by all workers, so implementations
// own their synchronization. SetUpForWorker and TearDownForWorker bracket
// each worker's measurement loop and run on that worker's goroutine.
type Target[P any] interface {
	// SetUpForWorker prepares per-worker state. It runs before the start
	// barrier; an error aborts the run before any worker is released.
	SetUpForWorker() error

	// Execute performs one generated operation and returns how many
	// logical executions it accounts for (at least 1; batched targets may
	// report more). An error aborts the whole run.
	Execute(op Operation[P]) (uint64, error)

	// TearDownForWorker releases per-worker state after the loop exits,
	// whether it finished naturally or was stopped.
	TearDownForWorker() error
}

// PreProcessor is an optional Target capability. When implemented,
// PreProcess runs on each worker after the start barrier opens and before
// the measured loop; in throughput mode it is excluded from the timed
// interval.
type PreProcessor interface {
	PreProcess() error
}

// PostProcessor is an optional Target capability. When implemented,
// PostProcess runs on each worker after the measured loop and before
// TearDownForWorker.
type PostProcessor interface {
	PostProcess() error
}
