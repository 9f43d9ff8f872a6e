package etl

// tracker.go keeps an in-memory ring of recent run results for the status
// API. It is a convenience view only; the durable record lives in the
// processing_runs table.

import (
	"sync"

	"github.com/google/uuid"
)

// defaultTrackerSize is how many recent runs the ring retains.
const defaultTrackerSize = 50

// Tracker records recent run results, newest first, bounded in size.
// Safe for concurrent use.
type Tracker struct {
	mu   sync.RWMutex
	size int
	runs []Result
}

// NewTracker creates a Tracker retaining up to size runs. Non-positive
// sizes fall back to the default.
func NewTracker(size int) *Tracker {
	if size <= 0 {
		size = defaultTrackerSize
	}
	return &Tracker{size: size}
}

// Add records one run result, evicting the oldest when full.
func (t *Tracker) Add(r Result) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.runs = append([]Result{r}, t.runs...)
	if len(t.runs) > t.size {
		t.runs = t.runs[:t.size]
	}
}

// Recent returns a copy of the tracked runs, newest first.
func (t *Tracker) Recent() []Result {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Result, len(t.runs))
	copy(out, t.runs)
	return out
}

// Get returns the tracked run with the given ID.
func (t *Tracker) Get(id uuid.UUID) (Result, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, r := range t.runs {
		if r.RunID == id {
			return r, true
		}
	}
	return Result{}, false
}
