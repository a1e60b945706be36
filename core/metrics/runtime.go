package metrics

import (
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/evsync/core/events"
)

// Summary aggregates the runtimes of recent dispatches of one path.
type Summary struct {
	Count  int
	Mean   time.Duration
	StdDev time.Duration
	P95    time.Duration
	Max    time.Duration
}

// RuntimeStats keeps a bounded window of dispatch runtimes per path. It is
// safe for concurrent use.
type RuntimeStats struct {
	mu     sync.Mutex
	window int
	data   map[events.Path][]float64
	next   map[events.Path]int
}

// NewRuntimeStats creates a RuntimeStats keeping the last window samples per
// path. A non-positive window defaults to 256.
func NewRuntimeStats(window int) *RuntimeStats {
	if window <= 0 {
		window = 256
	}
	return &RuntimeStats{
		window: window,
		data:   make(map[events.Path][]float64),
		next:   make(map[events.Path]int),
	}
}

// Observe adds a runtime sample for path.
func (r *RuntimeStats) Observe(path events.Path, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	buf := r.data[path]
	if len(buf) < r.window {
		r.data[path] = append(buf, d.Seconds())
		return
	}
	i := r.next[path]
	buf[i] = d.Seconds()
	r.next[path] = (i + 1) % r.window
}

// Summary computes the statistics of path.
func (r *RuntimeStats) Summary(path events.Path) Summary {
	r.mu.Lock()
	xs := append([]float64(nil), r.data[path]...)
	r.mu.Unlock()
	if len(xs) == 0 {
		return Summary{}
	}
	sort.Float64s(xs)
	mean, std := stat.MeanStdDev(xs, nil)
	if len(xs) == 1 {
		std = 0
	}
	return Summary{
		Count:  len(xs),
		Mean:   seconds(mean),
		StdDev: seconds(std),
		P95:    seconds(stat.Quantile(0.95, stat.Empirical, xs, nil)),
		Max:    seconds(xs[len(xs)-1]),
	}
}

// Paths lists the paths with at least one sample.
func (r *RuntimeStats) Paths() []events.Path {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Path, 0, len(r.data))
	for p := range r.data {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func seconds(f float64) time.Duration { return time.Duration(f * float64(time.Second)) }
