package gammaimg

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"

	"gonum.org/v1/gonum/stat"
)

// Projector rasterizes one event into a sparse list. Both Backprojector and
// SkyBackprojector implement it.
type Projector interface {
	Backproject(ev Event, out *Sparse) error
}

// Summary counts the outcome of a batch.
type Summary struct {
	Events    int
	Accepted  int
	NaN       int
	Empty     int
	Invalid   int
	Cancelled int
	// statistics of the per-event maxima of accepted events
	MeanMaximum Real
	StdMaximum  Real
	Maxima      []Real
}

// Discarded returns the number of events that were processed but not used.
func (s Summary) Discarded() int { return s.NaN + s.Empty + s.Invalid }

// BackprojectAll runs every event through p on workers goroutines (0 means
// NumCPU) and accumulates the results into dense. Degenerate events are
// counted and skipped. Cancellation is checked between events only; the
// returned error is ctx.Err() when the batch was cut short.
func BackprojectAll(ctx context.Context, p Projector, events []Event, dense []Real, workers int) (Summary, error) {
	sum := Summary{Events: len(events)}
	if len(events) == 0 {
		return sum, nil
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(events) {
		workers = len(events)
	}

	type workerResult struct {
		accepted, nan, empty, invalid, cancelled int
		maxima                                   []Real
	}
	results := make([]workerResult, workers)

	// without locks every worker fills a private buffer that is reduced at the end
	var locals [][]Real
	if !UseLocks {
		locals = make([][]Real, workers)
		for w := range locals {
			locals[w] = make([]Real, len(dense))
		}
	}

	var counter int64
	nextPrint := int64(1)
	if len(events) >= 100 {
		nextPrint = int64(len(events) / 100) // ~1%
	}

	locks := &binLocks{}
	per, rem := len(events)/workers, len(events)%workers
	var wg sync.WaitGroup
	wg.Add(workers)
	start := 0
	for w := 0; w < workers; w++ {
		n := per
		if w < rem {
			n++
		}
		lo, hi := start, start+n
		start = hi
		wid := w
		go func() {
			defer wg.Done()
			res := &results[wid]
			out := NewSparse(256)
			for i := lo; i < hi; i++ {
				if ctx.Err() != nil {
					res.cancelled += hi - i
					if Debug {
						for j := i; j < hi; j++ {
							logEvent(j, Cancelled, 0, 0)
						}
					}
					return
				}
				err := p.Backproject(events[i], out)
				switch {
				case err == nil:
					res.accepted++
					res.maxima = append(res.maxima, out.Maximum)
					if locals != nil {
						out.AddTo(locals[wid])
					} else {
						locks.addSparse(dense, out)
					}
					if Debug {
						logEvent(i, Accepted, out.Len(), out.Maximum)
					}
				case errors.Is(err, ErrNaN):
					res.nan++
					if Debug {
						logEvent(i, NaN, 0, 0)
					}
				case errors.Is(err, ErrEmptyImage):
					res.empty++
					if Debug {
						logEvent(i, Empty, 0, 0)
					}
				default:
					res.invalid++
					DebugLog("Event #%d rejected: %v", i, err)
					if Debug {
						logEvent(i, Invalid, 0, 0)
					}
				}
				fired := atomic.AddInt64(&counter, 1)
				if fired%nextPrint == 0 {
					Logger().Info("[PROGRESS]", "percent", Real(fired)*100/Real(len(events)))
				}
			}
		}()
	}
	wg.Wait()

	for w := range locals {
		src := locals[w]
		for i := range dense {
			dense[i] += src[i]
		}
	}

	for _, r := range results {
		sum.Accepted += r.accepted
		sum.NaN += r.nan
		sum.Empty += r.empty
		sum.Invalid += r.invalid
		sum.Cancelled += r.cancelled
		sum.Maxima = append(sum.Maxima, r.maxima...)
	}
	switch len(sum.Maxima) {
	case 0:
	case 1:
		sum.MeanMaximum = sum.Maxima[0]
	default:
		sum.MeanMaximum, sum.StdMaximum = stat.MeanStdDev(sum.Maxima, nil)
	}
	if Debug {
		eventStats()
	}
	if sum.Cancelled > 0 {
		return sum, ctx.Err()
	}
	return sum, nil
}
