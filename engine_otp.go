package fitauth

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/fitgpt/fitauth/internal/limiters"
	"github.com/fitgpt/fitauth/internal/stores"
)

/*
====================================
OTP CHALLENGE MANAGER
====================================
*/

// issueOTP asks the backend to dispatch a code and records a fresh local
// challenge. Saving overwrites any prior record, so a reissue resets the
// attempt counter and clears an active lockout. A dispatch failure records
// nothing: the caller holds no challenge afterwards.
func (e *Engine) issueOTP(ctx context.Context, email string, resent bool) error {
	if err := e.dispatchLimiter.Allow(ctx, email); err != nil {
		if errors.Is(err, limiters.ErrDispatchThrottled) {
			e.metricInc(MetricOTPRateLimited)
			e.emitAudit(ctx, auditEventOTPIssued, false, email, ErrOTPRateLimited, nil)
			return ErrOTPRateLimited
		}
		e.warn("otp dispatch throttle unavailable: " + err.Error())
		return ErrOTPUnavailable
	}

	if err := e.backend.SendOTP(ctx, email, e.config.OTP.Digits); err != nil {
		e.metricInc(MetricOTPDispatchFailed)
		e.emitAudit(ctx, auditEventOTPIssued, false, email, ErrDispatchFailed, nil)
		e.warn("otp dispatch failed: " + err.Error())
		return ErrDispatchFailed
	}

	challenge := &stores.OTPChallenge{
		Email:     email,
		ExpiresAt: time.Now().Add(e.config.OTP.ChallengeTTL).Unix(),
	}
	if err := e.otpStore.Save(ctx, challenge, e.config.OTP.ChallengeTTL); err != nil {
		e.warn("otp challenge save failed: " + err.Error())
		return ErrOTPUnavailable
	}

	event := auditEventOTPIssued
	if resent {
		event = auditEventOTPResent
		e.metricInc(MetricOTPResent)
	} else {
		e.metricInc(MetricOTPIssued)
	}
	e.emitAudit(ctx, event, true, email, nil, nil)
	return nil
}

// ResendOTP describes the resendotp operation and its observable behavior.
//
// ResendOTP may return an error when input validation, dependency calls, or security checks fail.
// ResendOTP does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ResendOTP(ctx context.Context) error {
	if e == nil {
		return ErrEngineNotReady
	}

	e.mu.Lock()
	pending := e.pending
	e.mu.Unlock()
	if pending == nil {
		return ErrNoChallenge
	}

	return e.issueOTP(ctx, pending.identity.Email, true)
}

// VerifyOTP describes the verifyotp operation and its observable behavior.
//
// VerifyOTP may return an error when input validation, dependency calls, or security checks fail.
// VerifyOTP does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) VerifyOTP(ctx context.Context, code string) (*VerifyOTPResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	e.mu.Lock()
	pending := e.pending
	e.mu.Unlock()
	if pending == nil {
		return nil, ErrNoChallenge
	}
	email := pending.identity.Email

	challenge, err := e.otpStore.Get(ctx, email)
	if err != nil {
		switch {
		case errors.Is(err, stores.ErrChallengeNotFound), errors.Is(err, stores.ErrChallengeExpired):
			return nil, ErrNoChallenge
		default:
			e.warn("otp challenge lookup failed: " + err.Error())
			return nil, ErrOTPUnavailable
		}
	}
	if challenge.Locked(time.Now()) {
		e.metricInc(MetricOTPLockedRejected)
		e.emitAudit(ctx, auditEventOTPFailure, false, email, ErrOTPLocked, nil)
		return nil, ErrOTPLocked
	}

	if err := e.backend.VerifyOTP(ctx, email, code); err != nil {
		if !errors.Is(err, ErrInvalidOTP) {
			// A transport or server fault consumes no attempt; the caller can
			// retry the same code once the backend is reachable again.
			e.warn("otp verification unavailable: " + err.Error())
			return nil, ErrOTPUnavailable
		}
		return e.recordOTPFailure(ctx, email)
	}

	if _, err := e.otpStore.Delete(ctx, email); err != nil {
		e.warn("otp challenge delete failed: " + err.Error())
	}
	if err := e.dispatchLimiter.Reset(ctx, email); err != nil {
		e.warn("otp dispatch budget reset failed: " + err.Error())
	}

	user, err := e.completeAuthentication(ctx, pending)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricOTPVerified)
	e.emitAudit(ctx, auditEventOTPVerified, true, email, nil, nil)
	return &VerifyOTPResult{User: user}, nil
}

// recordOTPFailure charges one attempt against the challenge and maps the
// resulting state onto the failure sentinels.
func (e *Engine) recordOTPFailure(ctx context.Context, email string) (*VerifyOTPResult, error) {
	locked, attempts, err := e.otpStore.MarkFailure(
		ctx, email, e.config.OTP.MaxAttempts, e.config.OTP.LockoutDuration,
	)
	if err != nil {
		switch {
		case errors.Is(err, stores.ErrChallengeNotFound), errors.Is(err, stores.ErrChallengeExpired):
			return nil, ErrNoChallenge
		default:
			e.warn("otp failure accounting unavailable: " + err.Error())
			return nil, ErrOTPUnavailable
		}
	}

	remaining := e.config.OTP.MaxAttempts - attempts
	if remaining < 0 {
		remaining = 0
	}
	metadata := func() map[string]string {
		return map[string]string{"attempts": strconv.Itoa(attempts)}
	}

	if locked {
		e.metricInc(MetricOTPLockout)
		e.emitAudit(ctx, auditEventOTPLockout, false, email, ErrTooManyAttempts, metadata)
		return &VerifyOTPResult{AttemptsRemaining: 0}, ErrTooManyAttempts
	}

	e.metricInc(MetricOTPInvalid)
	e.emitAudit(ctx, auditEventOTPFailure, false, email, ErrInvalidOTP, metadata)
	return &VerifyOTPResult{AttemptsRemaining: remaining}, ErrInvalidOTP
}
