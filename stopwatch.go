package bench

import "time"

// StopWatch measures the time between Start and Stop. It relies on the
// monotonic clock reading carried by [time.Now], so wall-clock steps never
// distort an interval. The zero value is ready to use and reusable.
type StopWatch struct {
	start time.Time
	stop  time.Time
}

// Start records the interval start.
func (w *StopWatch) Start() {
	w.start = time.Now()
}

// Stop records the interval end.
func (w *StopWatch) Stop() {
	w.stop = time.Now()
}

// Elapsed returns the time between Start and Stop. A watch that was not
// properly started and stopped, in that order, reports zero.
func (w *StopWatch) Elapsed() time.Duration {
	d := w.stop.Sub(w.start)
	if d < 0 {
		return 0
	}
	return d
}
