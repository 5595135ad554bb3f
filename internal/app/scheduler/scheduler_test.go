package scheduler

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestTicker_Fires(t *testing.T) {
	var ticks atomic.Int64
	tk := New(5*time.Millisecond, func(time.Time) { ticks.Add(1) })
	tk.Start()
	defer tk.Stop()

	deadline := time.After(2 * time.Second)
	for ticks.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("only %d ticks before deadline", ticks.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestTicker_StopIsIdempotent(t *testing.T) {
	tk := New(time.Millisecond, func(time.Time) {})
	tk.Start()
	tk.Stop()
	tk.Stop() // must not panic or block
	if tk.Running() {
		t.Error("ticker should be stopped")
	}
}

func TestTicker_StopWithoutStart(t *testing.T) {
	tk := New(time.Millisecond, func(time.Time) {})
	tk.Stop() // no-op
	if tk.Running() {
		t.Error("ticker should not be running")
	}
}

func TestTicker_Restart(t *testing.T) {
	var ticks atomic.Int64
	tk := New(5*time.Millisecond, func(time.Time) { ticks.Add(1) })

	tk.Start()
	tk.Stop()
	before := ticks.Load()

	tk.Start()
	defer tk.Stop()
	deadline := time.After(2 * time.Second)
	for ticks.Load() <= before {
		select {
		case <-deadline:
			t.Fatal("ticker did not resume after restart")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestTicker_DoubleStartIsNoop(t *testing.T) {
	tk := New(time.Hour, func(time.Time) {})
	tk.Start()
	tk.Start()
	tk.Stop()
	if tk.Running() {
		t.Error("single Stop should cancel after double Start")
	}
}
