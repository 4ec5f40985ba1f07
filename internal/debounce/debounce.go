// Package debounce provides a per-key debounced task group: scheduling a key
// cancels any not-yet-fired task for that key and arms a fresh timer, so the
// callback runs only after the key has been quiet for the full delay.
package debounce

import (
	"sync"
	"time"
)

// Group debounces one pending task per key.
type Group struct {
	mu      sync.Mutex
	timers  map[string]*time.Timer
	touched map[string]time.Time
	stopped bool
}

// NewGroup creates an empty debounce group.
func NewGroup() *Group {
	return &Group{
		timers:  make(map[string]*time.Timer),
		touched: make(map[string]time.Time),
	}
}

// Schedule arms fn to run after delay, cancelling any pending task for the
// same key. fn runs on the timer's own goroutine. A task that has already
// started running is not cancelled; only armed timers are.
func (g *Group) Schedule(key string, delay time.Duration, fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.stopped {
		return
	}
	if t, ok := g.timers[key]; ok {
		t.Stop()
	}
	g.touched[key] = time.Now()

	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		g.mu.Lock()
		// Only clear the map slot if this timer is still the current one;
		// a reschedule may have replaced it between fire and lock.
		if g.timers[key] == timer {
			delete(g.timers, key)
			delete(g.touched, key)
		}
		stopped := g.stopped
		g.mu.Unlock()

		if !stopped {
			fn()
		}
	})
	g.timers[key] = timer
}

// Cancel stops any pending task for key without running it.
func (g *Group) Cancel(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if t, ok := g.timers[key]; ok {
		t.Stop()
		delete(g.timers, key)
		delete(g.touched, key)
	}
}

// Pending reports whether a timer is currently armed for key.
func (g *Group) Pending(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.timers[key]
	return ok
}

// Sweep cancels timers that have been armed longer than maxAge. Scheduling
// refreshes the touched time, so only abandoned entries are removed.
// Returns the number removed.
func (g *Group) Sweep(maxAge time.Duration) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for key, at := range g.touched {
		if at.Before(cutoff) {
			if t, ok := g.timers[key]; ok {
				t.Stop()
				delete(g.timers, key)
			}
			delete(g.touched, key)
			removed++
		}
	}
	return removed
}

// Stop cancels all pending timers and prevents further scheduling. Tasks
// already running are allowed to finish.
func (g *Group) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopped = true
	for key, t := range g.timers {
		t.Stop()
		delete(g.timers, key)
		delete(g.touched, key)
	}
}
