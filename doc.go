// Package bench provides a small framework for running concurrent
// micro-benchmarks against an arbitrary target system.
//
// A benchmark pairs a [Target] (the system under measurement) with an
// [Engine] (the generator of per-worker operation sequences). The
// [Benchmarker] spawns one worker goroutine per configured worker, lines
// them up behind a start barrier so no worker gets a head start, releases
// them simultaneously, and merges the per-worker measurements into a
// single [Report].
//
// # Quick Start
//
// Run eight workers against a target and print latency percentiles:
//
//	b, err := bench.New(target, engine, bench.Config{
//	    Workers: 8,
//	    Mode:    bench.Latency,
//	    Timeout: time.Minute,
//	})
//	if err != nil {
//	    return err
//	}
//	report, err := b.Run(ctx)
//	if err != nil {
//	    return err
//	}
//	err = report.WriteText(os.Stdout)
//
// # Measurement
//
// Throughput mode times each worker's loop as a whole and reports
// operations per second. Latency mode times every operation individually
// and feeds a DDSketch-style summary ([sketch.Sketch]) with 1% relative
// accuracy and exact per-type minima and maxima. Merging worker summaries
// is exact: bin counts are integers and add without loss.
//
// Timing uses the monotonic clock reading carried by [time.Now], so
// wall-clock adjustments never distort an interval.
//
// # Cancellation
//
// A run that exceeds Config.Timeout is stopped cooperatively: workers
// observe a stop flag between operations, in-flight operations complete
// and are recorded, and the work that finished still produces a Report.
// A timeout is not an error. Cancelling the Run context stops workers the
// same way, but Run then returns the partial report alongside the
// context's error.
package bench
