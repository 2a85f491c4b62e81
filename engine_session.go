package fitauth

import (
	"context"

	"github.com/fitgpt/fitauth/session"
)

/*
====================================
SESSION MONITOR
====================================
*/

// establishSession replaces any live session with a fresh one for the user
// and starts its idle monitor. Exactly one session exists per engine; the
// prior monitor is stopped before the new one starts.
func (e *Engine) establishSession(ctx context.Context, user *BackendUser, proof string) {
	now := e.clock.Now()
	sess := &session.Session{
		UserID:      user.ID,
		ProviderID:  user.ProviderID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		AvatarURL:   user.AvatarURL,
		StartedAt:   now,
	}

	mon := session.NewMonitor(
		session.Config{
			IdleThreshold:   e.config.Session.IdleThreshold,
			WarningDuration: e.config.Session.WarningDuration,
			TickInterval:    e.config.Session.TickInterval,
		},
		e.clock,
		sess,
		session.Callbacks{
			OnWarning:   e.onSessionWarning,
			OnCountdown: e.sessionCB.OnCountdown,
			OnExpired:   e.onSessionExpired,
		},
	)

	e.mu.Lock()
	prior := e.mon
	e.mon = mon
	e.currentProof = proof
	e.mu.Unlock()

	if prior != nil {
		prior.Stop()
	}
	mon.Start()

	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, auditEventSessionCreated, true, user.Email, nil, nil)
}

func (e *Engine) onSessionWarning(secondsRemaining int) {
	e.metricInc(MetricSessionWarning)
	e.emitAudit(context.Background(), auditEventSessionWarning, true, e.sessionEmail(), nil, nil)
	if e.sessionCB.OnWarning != nil {
		e.sessionCB.OnWarning(secondsRemaining)
	}
}

// onSessionExpired runs on the monitor goroutine after the countdown hits
// zero. The session is torn down before the application callback fires, so
// the callback observes a signed-out engine.
func (e *Engine) onSessionExpired() {
	email := e.signOutLocked(context.Background())

	e.metricInc(MetricSessionExpired)
	e.emitAudit(context.Background(), auditEventSessionExpired, true, email, nil, nil)

	if e.sessionCB.OnExpired != nil {
		e.sessionCB.OnExpired()
	}
}

// RecordActivity notes tracked user activity against the live session. It is
// a no-op without a session, and deliberately does not dismiss an active
// warning; only StayLoggedIn does that.
func (e *Engine) RecordActivity() {
	if e == nil {
		return
	}
	e.mu.Lock()
	mon := e.mon
	e.mu.Unlock()
	if mon != nil {
		mon.Touch()
	}
}

// StayLoggedIn describes the stayloggedin operation and its observable behavior.
//
// StayLoggedIn does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) StayLoggedIn() bool {
	if e == nil {
		return false
	}
	e.mu.Lock()
	mon := e.mon
	e.mu.Unlock()
	if mon == nil {
		return false
	}

	if !mon.StayLoggedIn() {
		return false
	}
	e.metricInc(MetricSessionRenewed)
	e.emitAudit(context.Background(), auditEventSessionRenewed, true, mon.Snapshot().Email, nil, nil)
	return true
}

// CurrentSession describes the currentsession operation and its observable behavior.
//
// CurrentSession does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) CurrentSession() (session.Session, bool) {
	if e == nil {
		return session.Session{}, false
	}
	e.mu.Lock()
	mon := e.mon
	e.mu.Unlock()
	if mon == nil {
		return session.Session{}, false
	}
	return mon.Snapshot(), true
}

// SessionState describes the sessionstate operation and its observable behavior.
//
// SessionState does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) SessionState() session.State {
	if e == nil {
		return session.StateStopped
	}
	e.mu.Lock()
	mon := e.mon
	e.mu.Unlock()
	if mon == nil {
		return session.StateStopped
	}
	return mon.State()
}

func (e *Engine) sessionEmail() string {
	e.mu.Lock()
	mon := e.mon
	e.mu.Unlock()
	if mon == nil {
		return ""
	}
	return mon.Snapshot().Email
}
