// Package scheduler provides the live accrual ticker: a small start/stop/tick
// abstraction over the runtime timer so the engine never touches
// time.Ticker directly and the tick body stays testable.
package scheduler

import (
	"sync"
	"time"
)

// TickFunc is invoked once per tick with the current wall-clock time.
type TickFunc func(now time.Time)

// Ticker fires a TickFunc at a fixed interval. Start after Stop is allowed;
// Stop is idempotent. Ticks run on a single goroutine, one at a time.
type Ticker struct {
	mu       sync.Mutex
	interval time.Duration
	fn       TickFunc
	stop     chan struct{}
	running  bool
}

// New creates a ticker. A zero or negative interval defaults to one second,
// the granularity of the on-screen counters.
func New(interval time.Duration, fn TickFunc) *Ticker {
	if interval <= 0 {
		interval = time.Second
	}
	return &Ticker{interval: interval, fn: fn}
}

// Start begins ticking. Starting an already-running ticker is a no-op.
func (t *Ticker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return
	}
	t.running = true
	t.stop = make(chan struct{})
	go t.loop(t.stop)
}

func (t *Ticker) loop(stop chan struct{}) {
	tick := time.NewTicker(t.interval)
	defer tick.Stop()
	for {
		select {
		case <-stop:
			return
		case now := <-tick.C:
			t.fn(now)
		}
	}
}

// Stop cancels the ticker. Stopping an already-stopped ticker is a no-op.
func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	t.running = false
	close(t.stop)
}

// Running reports whether the ticker is currently firing.
func (t *Ticker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}
