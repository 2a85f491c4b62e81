package session

import (
	"sync"
	"time"
)

// State defines a public type used by fitauth APIs.
//
// State instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type State int

const (
	// StateActive is an exported constant or variable used by the identity engine.
	StateActive State = iota
	// StateWarning is an exported constant or variable used by the identity engine.
	StateWarning
	// StateExpired is an exported constant or variable used by the identity engine.
	StateExpired
	// StateStopped is an exported constant or variable used by the identity engine.
	StateStopped
)

// Config defines a public type used by fitauth APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	IdleThreshold   time.Duration
	WarningDuration time.Duration
	TickInterval    time.Duration
}

// Callbacks are invoked by the monitor outside its internal lock. OnExpired
// fires exactly once, after the monitor has already released its timer; it is
// safe to call Stop from inside it.
type Callbacks struct {
	OnWarning   func(secondsRemaining int)
	OnCountdown func(secondsRemaining int)
	OnExpired   func()
}

// Monitor tracks activity for exactly one Session and drives the
// Active → Warning → {Active, Expired} transitions. A single goroutine owns
// both the idle check and the warning countdown, so the two can never
// interleave for one transition.
type Monitor struct {
	mu   sync.Mutex
	cfg  Config
	clk  Clock
	sess *Session
	cb   Callbacks

	state           State
	lastActivityAt  time.Time
	warningDeadline time.Time

	ticker   Ticker
	done     chan struct{}
	stopOnce sync.Once
}

// NewMonitor describes the newmonitor operation and its observable behavior.
//
// NewMonitor does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewMonitor(cfg Config, clk Clock, sess *Session, cb Callbacks) *Monitor {
	if clk == nil {
		clk = SystemClock{}
	}
	now := clk.Now()
	sess.LastActivityAt = now

	return &Monitor{
		cfg:            cfg,
		clk:            clk,
		sess:           sess,
		cb:             cb,
		state:          StateActive,
		lastActivityAt: now,
		done:           make(chan struct{}),
	}
}

// Start launches the monitor loop. Activity tracking begins immediately;
// Start must be called at most once, when the owning Session is created.
func (m *Monitor) Start() {
	m.mu.Lock()
	if m.ticker != nil || m.state == StateStopped {
		m.mu.Unlock()
		return
	}
	m.ticker = m.clk.NewTicker(m.cfg.TickInterval)
	ticker := m.ticker
	m.mu.Unlock()

	go m.run(ticker)
}

func (m *Monitor) run(ticker Ticker) {
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case now := <-ticker.C():
			if fire, expired := m.Tick(now); fire != nil {
				fire()
				if expired {
					return
				}
			} else if expired {
				return
			}
		}
	}
}

// Tick advances the state machine to now. It returns a callback to invoke
// (already detached from the monitor lock) and whether the session expired on
// this tick. Exposed so tests with a ManualClock can drive the monitor
// deterministically; production ticks arrive from the internal loop.
func (m *Monitor) Tick(now time.Time) (fire func(), expired bool) {
	m.mu.Lock()

	switch m.state {
	case StateActive:
		if now.Sub(m.lastActivityAt) < m.cfg.IdleThreshold {
			m.mu.Unlock()
			return nil, false
		}
		m.state = StateWarning
		m.warningDeadline = now.Add(m.cfg.WarningDuration)
		remaining := int(m.cfg.WarningDuration / time.Second)
		m.sess.WarningActive = true
		m.sess.SecondsRemaining = remaining
		onWarning := m.cb.OnWarning
		m.mu.Unlock()

		if onWarning != nil {
			return func() { onWarning(remaining) }, false
		}
		return nil, false

	case StateWarning:
		remaining := int(m.warningDeadline.Sub(now) / time.Second)
		if remaining > 0 {
			m.sess.SecondsRemaining = remaining
			onCountdown := m.cb.OnCountdown
			m.mu.Unlock()

			if onCountdown != nil {
				return func() { onCountdown(remaining) }, false
			}
			return nil, false
		}

		m.state = StateExpired
		m.sess.WarningActive = false
		m.sess.SecondsRemaining = 0
		onExpired := m.cb.OnExpired
		m.mu.Unlock()

		if onExpired != nil {
			return func() { onExpired() }, true
		}
		return nil, true

	default:
		m.mu.Unlock()
		return nil, false
	}
}

// Touch records tracked activity. Activity refreshes the idle clock only
// while Active; once the warning is showing, incidental activity must not
// dismiss it; only StayLoggedIn does. Touch after Stop is a no-op.
func (m *Monitor) Touch() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateActive {
		return
	}
	m.lastActivityAt = m.clk.Now()
	m.sess.LastActivityAt = m.lastActivityAt
}

// StayLoggedIn clears an active warning, resets the idle clock and returns
// the monitor to Active. It reports whether a warning was actually cleared;
// calling it while Active is a no-op.
func (m *Monitor) StayLoggedIn() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateWarning {
		return false
	}
	m.state = StateActive
	m.lastActivityAt = m.clk.Now()
	m.sess.LastActivityAt = m.lastActivityAt
	m.sess.WarningActive = false
	m.sess.SecondsRemaining = 0
	return true
}

// State returns the current monitor state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Snapshot returns a copy of the owned session's current view.
func (m *Monitor) Snapshot() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.sess
}

// Stop tears the monitor down: the loop exits, the timer is released and all
// later Touch/StayLoggedIn calls become no-ops. Safe to call from any
// destruction path, including from OnExpired, and safe to call repeatedly.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		m.mu.Lock()
		if m.state != StateExpired {
			m.state = StateStopped
		}
		m.mu.Unlock()
		close(m.done)
	})
}
