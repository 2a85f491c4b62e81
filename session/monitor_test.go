package session

import (
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		IdleThreshold:   5 * time.Minute,
		WarningDuration: 60 * time.Second,
		TickInterval:    time.Second,
	}
}

type recorder struct {
	warnings   []int
	countdowns []int
	expired    int
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnWarning:   func(s int) { r.warnings = append(r.warnings, s) },
		OnCountdown: func(s int) { r.countdowns = append(r.countdowns, s) },
		OnExpired:   func() { r.expired++ },
	}
}

// drive feeds one tick at the clock's current time plus the advance, firing
// any callback the transition produced.
func drive(t *testing.T, m *Monitor, clk *ManualClock, advance time.Duration) bool {
	t.Helper()
	now := clk.Advance(advance)
	fire, expired := m.Tick(now)
	if fire != nil {
		fire()
	}
	return expired
}

func TestMonitor_WarningFiresOnceAtThreshold(t *testing.T) {
	clk := NewManualClock(time.Unix(1_700_000_000, 0))
	rec := &recorder{}
	m := NewMonitor(testConfig(), clk, &Session{Email: "a@b.c"}, rec.callbacks())

	drive(t, m, clk, 4*time.Minute)
	if m.State() != StateActive {
		t.Fatalf("expected active before threshold, got %v", m.State())
	}
	if len(rec.warnings) != 0 {
		t.Fatalf("warning fired early: %v", rec.warnings)
	}

	drive(t, m, clk, time.Minute)
	if m.State() != StateWarning {
		t.Fatalf("expected warning at threshold, got %v", m.State())
	}
	if len(rec.warnings) != 1 || rec.warnings[0] != 60 {
		t.Fatalf("expected one warning with 60s, got %v", rec.warnings)
	}
}

func TestMonitor_ActivityKeepsSessionActive(t *testing.T) {
	clk := NewManualClock(time.Unix(1_700_000_000, 0))
	rec := &recorder{}
	m := NewMonitor(testConfig(), clk, &Session{}, rec.callbacks())

	for i := 0; i < 50; i++ {
		drive(t, m, clk, 4*time.Minute)
		m.Touch()
	}

	if len(rec.warnings) != 0 {
		t.Fatalf("expected no warnings with regular activity, got %v", rec.warnings)
	}
	if m.State() != StateActive {
		t.Fatalf("expected active state, got %v", m.State())
	}
}

func TestMonitor_CountdownDecrements(t *testing.T) {
	clk := NewManualClock(time.Unix(1_700_000_000, 0))
	rec := &recorder{}
	m := NewMonitor(testConfig(), clk, &Session{}, rec.callbacks())

	drive(t, m, clk, 5*time.Minute)
	for i := 0; i < 3; i++ {
		drive(t, m, clk, time.Second)
	}

	want := []int{59, 58, 57}
	if len(rec.countdowns) != len(want) {
		t.Fatalf("expected %d countdown ticks, got %v", len(want), rec.countdowns)
	}
	for i, s := range want {
		if rec.countdowns[i] != s {
			t.Fatalf("countdown tick %d: expected %d, got %d", i, s, rec.countdowns[i])
		}
	}

	snap := m.Snapshot()
	if !snap.WarningActive || snap.SecondsRemaining != 57 {
		t.Fatalf("snapshot out of sync: %+v", snap)
	}
}

func TestMonitor_ExpiryAtZero(t *testing.T) {
	clk := NewManualClock(time.Unix(1_700_000_000, 0))
	rec := &recorder{}
	m := NewMonitor(testConfig(), clk, &Session{}, rec.callbacks())

	drive(t, m, clk, 5*time.Minute)
	expired := drive(t, m, clk, time.Minute)

	if !expired {
		t.Fatal("expected expiry when the countdown reaches zero")
	}
	if rec.expired != 1 {
		t.Fatalf("expected one expiry callback, got %d", rec.expired)
	}
	if m.State() != StateExpired {
		t.Fatalf("expected expired state, got %v", m.State())
	}

	// Later ticks are inert.
	if e := drive(t, m, clk, time.Minute); e {
		t.Fatal("expired monitor must not expire again")
	}
}

func TestMonitor_StopFromExpiredCallback(t *testing.T) {
	clk := NewManualClock(time.Unix(1_700_000_000, 0))
	var m *Monitor
	m = NewMonitor(testConfig(), clk, &Session{}, Callbacks{
		OnExpired: func() { m.Stop() },
	})

	drive(t, m, clk, 5*time.Minute)
	drive(t, m, clk, time.Minute)

	// Stop again from outside; both paths must be safe.
	m.Stop()
}

func TestMonitor_TouchIgnoredDuringWarning(t *testing.T) {
	clk := NewManualClock(time.Unix(1_700_000_000, 0))
	rec := &recorder{}
	m := NewMonitor(testConfig(), clk, &Session{}, rec.callbacks())

	drive(t, m, clk, 5*time.Minute)
	m.Touch()
	if m.State() != StateWarning {
		t.Fatalf("Touch dismissed the warning, state %v", m.State())
	}

	// The countdown still ends in expiry.
	if expired := drive(t, m, clk, time.Minute); !expired {
		t.Fatal("expected expiry despite Touch during warning")
	}
}

func TestMonitor_StayLoggedInResetsIdleClock(t *testing.T) {
	clk := NewManualClock(time.Unix(1_700_000_000, 0))
	rec := &recorder{}
	m := NewMonitor(testConfig(), clk, &Session{}, rec.callbacks())

	drive(t, m, clk, 5*time.Minute)
	if !m.StayLoggedIn() {
		t.Fatal("expected StayLoggedIn to clear the warning")
	}
	if m.State() != StateActive {
		t.Fatalf("expected active after renewal, got %v", m.State())
	}

	snap := m.Snapshot()
	if snap.WarningActive || snap.SecondsRemaining != 0 {
		t.Fatalf("warning fields not cleared: %+v", snap)
	}

	// A fresh threshold applies from the renewal.
	drive(t, m, clk, 4*time.Minute)
	if m.State() != StateActive {
		t.Fatalf("expected active 4 minutes after renewal, got %v", m.State())
	}
	drive(t, m, clk, time.Minute)
	if m.State() != StateWarning {
		t.Fatalf("expected warning 5 minutes after renewal, got %v", m.State())
	}
	if len(rec.warnings) != 2 {
		t.Fatalf("expected a second warning episode, got %v", rec.warnings)
	}
}

func TestMonitor_StayLoggedInWhileActive(t *testing.T) {
	clk := NewManualClock(time.Unix(1_700_000_000, 0))
	m := NewMonitor(testConfig(), clk, &Session{}, Callbacks{})

	if m.StayLoggedIn() {
		t.Fatal("StayLoggedIn without a warning must report false")
	}
}

func TestMonitor_StoppedIgnoresTicks(t *testing.T) {
	clk := NewManualClock(time.Unix(1_700_000_000, 0))
	rec := &recorder{}
	m := NewMonitor(testConfig(), clk, &Session{}, rec.callbacks())

	m.Stop()
	drive(t, m, clk, time.Hour)

	if len(rec.warnings) != 0 || rec.expired != 0 {
		t.Fatalf("stopped monitor produced callbacks: %+v", rec)
	}
	if m.State() != StateStopped {
		t.Fatalf("expected stopped state, got %v", m.State())
	}
}

func TestMonitor_SystemClockLoop(t *testing.T) {
	// Smoke test the real ticker path with tiny durations.
	cfg := Config{
		IdleThreshold:   30 * time.Millisecond,
		WarningDuration: 30 * time.Millisecond,
		TickInterval:    5 * time.Millisecond,
	}
	expired := make(chan struct{})
	m := NewMonitor(cfg, SystemClock{}, &Session{}, Callbacks{
		OnExpired: func() { close(expired) },
	})
	m.Start()
	defer m.Stop()

	select {
	case <-expired:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for idle expiry")
	}
}
