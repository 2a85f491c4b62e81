package session

import (
	"sync"
	"time"
)

// Clock abstracts time for the monitor so idle and countdown behavior can be
// advanced explicitly in tests instead of waited on.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// Ticker is the monitor-facing slice of time.Ticker.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// SystemClock is the wall-clock implementation used outside tests.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// NewTicker implements Clock.
func (SystemClock) NewTicker(d time.Duration) Ticker {
	return systemTicker{time.NewTicker(d)}
}

type systemTicker struct {
	t *time.Ticker
}

func (s systemTicker) C() <-chan time.Time {
	return s.t.C
}

func (s systemTicker) Stop() {
	s.t.Stop()
}

// ManualClock is a test clock whose time only moves when advanced. Tickers
// created from it never fire on their own; tests drive the monitor through
// its tick entry point after advancing.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock describes the newmanualclock operation and its observable behavior.
//
// NewManualClock does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now implements Clock.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward and returns the new time.
func (c *ManualClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// NewTicker implements Clock. The returned ticker has no autonomous channel
// traffic; its channel exists so the monitor loop can block without busy
// waiting when a manual clock is installed.
func (c *ManualClock) NewTicker(time.Duration) Ticker {
	return manualTicker{ch: make(chan time.Time)}
}

type manualTicker struct {
	ch chan time.Time
}

func (t manualTicker) C() <-chan time.Time {
	return t.ch
}

func (t manualTicker) Stop() {}
