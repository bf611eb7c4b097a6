// Package alloc implements the decoder's soft memory cap.
//
// Every large allocation in the render pipeline (coefficient grids, plane
// buffers, reference-frame slots, the entropy decoder's LZ77 ring) consults
// a Tracker before allocating, so adversarial inputs that imply enormous
// buffers are rejected gracefully instead of exhausting the process.
//
// Allocation sizes and rejection counts are exported as Prometheus
// histograms/counters, following the instrumentation style of image codecs
// in the wild that track allocator pressure directly (c.f. a JPEG decoder
// wiring prometheus.NewHistogram around its allocation sizes).
package alloc

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jxlcore/jxl/internal/xerr"
)

var (
	allocationSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "jxl_allocation_bytes",
		Help: "Size of memory allocations requested from the AllocTracker.",
		Buckets: []float64{
			1024, 16384, 65536, 262144, 1048576, 4194304, 16777216, 67108864,
		},
	})
	rejectedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jxl_allocation_rejected_total",
		Help: "Number of allocations rejected by the AllocTracker soft cap.",
	})
)

func init() {
	prometheus.MustRegister(allocationSize, rejectedTotal)
}

// DefaultSoftCap is used when a Tracker is constructed with cap 0.
const DefaultSoftCap = 1 << 30 // 1 GiB

// Tracker enforces a soft cap on cumulative outstanding allocations made
// through it. It is safe for concurrent use by the parallel group/strip
// workers described in the concurrency model.
type Tracker struct {
	cap int64
	mu  sync.Mutex
	// used is duplicated in an atomic so callers can peek without the lock.
	used atomic.Int64
}

// NewTracker creates a Tracker with the given soft cap in bytes. A cap of 0
// uses DefaultSoftCap.
func NewTracker(softCap int64) *Tracker {
	if softCap <= 0 {
		softCap = DefaultSoftCap
	}
	return &Tracker{cap: softCap}
}

// Alloc reserves n bytes against the cap, returning ErrOutOfMemory-wrapped
// error on failure. Reservations must be released with Free once the
// corresponding buffer is no longer needed (typically: never, for
// long-lived reference-frame slots, until the slot is overwritten).
func (t *Tracker) Alloc(n int) error {
	if n < 0 {
		return fmt.Errorf("alloc: negative size %d", n)
	}
	allocationSize.Observe(float64(n))

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.used.Load()+int64(n) > t.cap {
		rejectedTotal.Inc()
		return fmt.Errorf("alloc: %d bytes would exceed soft cap %d (currently %d used): %w",
			n, t.cap, t.used.Load(), xerr.ErrOutOfMemory)
	}
	t.used.Add(int64(n))
	return nil
}

// Free releases a previous reservation.
func (t *Tracker) Free(n int) {
	if n <= 0 {
		return
	}
	t.used.Add(-int64(n))
}

// Used returns the current reserved byte count.
func (t *Tracker) Used() int64 {
	return t.used.Load()
}

// AllocSlice32 reserves space for a []int32 of length n and returns it,
// or an error if the cap would be exceeded.
func (t *Tracker) AllocSlice32(n int) ([]int32, error) {
	if err := t.Alloc(n * 4); err != nil {
		return nil, err
	}
	return make([]int32, n), nil
}

// AllocFloats reserves space for a []float32 of length n.
func (t *Tracker) AllocFloats(n int) ([]float32, error) {
	if err := t.Alloc(n * 4); err != nil {
		return nil, err
	}
	return make([]float32, n), nil
}
