package utils

import (
	"sync"
	"time"
)

// SlidingWindow counts hits inside a trailing interval. Hits are kept sorted and
// anything at least one window old is dropped on every access.
type SlidingWindow struct {
	mu     sync.Mutex
	window time.Duration
	hits   []time.Time
}

func NewSlidingWindow(window time.Duration) *SlidingWindow {
	return &SlidingWindow{window: window}
}

// AddAndResetAbove records now and, when the count exceeds limit, clears the window.
// It reports the count before clearing and whether the limit was exceeded.
func (w *SlidingWindow) AddAndResetAbove(now time.Time, limit int) (int, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.prune(now)
	w.insert(now)
	count := len(w.hits)
	if count > limit {
		w.hits = w.hits[:0]
		return count, true
	}
	return count, false
}

// Count returns the hits still inside the window at now.
func (w *SlidingWindow) Count(now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.prune(now)
	return len(w.hits)
}

func (w *SlidingWindow) prune(now time.Time) {
	cutoff := now.Add(-w.window)
	idx := 0
	for _, hit := range w.hits {
		if hit.After(cutoff) {
			break
		}
		idx++
	}
	w.hits = w.hits[idx:]
}

// insert keeps hits ordered when events arrive slightly out of order.
func (w *SlidingWindow) insert(now time.Time) {
	i := len(w.hits)
	for i > 0 && w.hits[i-1].After(now) {
		i--
	}
	w.hits = append(w.hits, time.Time{})
	copy(w.hits[i+1:], w.hits[i:])
	w.hits[i] = now
}
