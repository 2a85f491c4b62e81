package fitauth

import (
	"context"
	"errors"
)

/*
====================================
CREDENTIAL GATEWAY
====================================
*/

// SignInFederated describes the signinfederated operation and its observable behavior.
//
// SignInFederated may return an error when input validation, dependency calls, or security checks fail.
// SignInFederated does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) SignInFederated(ctx context.Context) (*SignInResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	identity, proof, err := e.provider.FederatedSignIn(ctx)
	if err != nil {
		if errors.Is(err, ErrProviderCancelled) || errors.Is(err, context.Canceled) {
			// Abandoning the popup is a non-event: no error surface beyond
			// the sentinel, no state change.
			e.metricInc(MetricFederatedSignInCancelled)
			e.emitAudit(ctx, auditEventFederatedCancel, false, "", ErrProviderCancelled, nil)
			return nil, ErrProviderCancelled
		}
		e.metricInc(MetricFederatedSignInFailure)
		e.emitAudit(ctx, auditEventFederatedSignIn, false, "", ErrProviderError, nil)
		e.warn("federated sign-in failed: " + err.Error())
		return nil, ErrProviderError
	}

	e.mu.Lock()
	e.pending = &pendingAuth{identity: *identity, proof: proof, federated: true}
	e.mu.Unlock()

	e.metricInc(MetricFederatedSignInSuccess)
	e.emitAudit(ctx, auditEventFederatedSignIn, true, identity.Email, nil, nil)

	if err := e.issueOTP(ctx, identity.Email, false); err != nil {
		return nil, err
	}
	return &SignInResult{Identity: identity, OTPRequired: true, OTPEmail: identity.Email}, nil
}

// SignInWithPassword describes the signinwithpassword operation and its observable behavior.
//
// SignInWithPassword may return an error when input validation, dependency calls, or security checks fail.
// SignInWithPassword does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) SignInWithPassword(ctx context.Context, email, password string) (*SignInResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	identity, proof, err := e.provider.PasswordSignIn(ctx, email, password)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredential):
			e.metricInc(MetricPasswordSignInFailure)
			e.emitAudit(ctx, auditEventPasswordSignIn, false, email, ErrInvalidCredential, nil)
			return nil, ErrInvalidCredential
		case errors.Is(err, ErrEmailNotVerified):
			// The credential is real but gated. Remember the address so the
			// caller can offer a verification resend.
			e.mu.Lock()
			e.pendingReg = email
			e.mu.Unlock()
			e.metricInc(MetricPasswordSignInUnverified)
			e.emitAudit(ctx, auditEventPasswordSignIn, false, email, ErrEmailNotVerified, nil)
			return nil, ErrEmailNotVerified
		default:
			e.metricInc(MetricPasswordSignInFailure)
			e.emitAudit(ctx, auditEventPasswordSignIn, false, email, ErrProviderError, nil)
			e.warn("password sign-in failed: " + err.Error())
			return nil, ErrProviderError
		}
	}
	if !identity.EmailVerified {
		e.mu.Lock()
		e.pendingReg = identity.Email
		e.mu.Unlock()
		e.metricInc(MetricPasswordSignInUnverified)
		e.emitAudit(ctx, auditEventPasswordSignIn, false, identity.Email, ErrEmailNotVerified, nil)
		return nil, ErrEmailNotVerified
	}

	e.mu.Lock()
	e.pending = &pendingAuth{identity: *identity, proof: proof, federated: false}
	e.mu.Unlock()

	e.metricInc(MetricPasswordSignInSuccess)
	e.emitAudit(ctx, auditEventPasswordSignIn, true, identity.Email, nil, nil)

	if err := e.issueOTP(ctx, identity.Email, false); err != nil {
		return nil, err
	}
	return &SignInResult{Identity: identity, OTPRequired: true, OTPEmail: identity.Email}, nil
}

// Register describes the register operation and its observable behavior.
//
// Register may return an error when input validation, dependency calls, or security checks fail.
// Register does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Register(ctx context.Context, email, password string) (*RegisterResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	if err := e.provider.Register(ctx, email, password); err != nil {
		e.metricInc(MetricRegisterFailure)
		e.emitAudit(ctx, auditEventRegister, false, email, ErrProviderError, nil)
		e.warn("registration failed: " + err.Error())
		return nil, ErrProviderError
	}

	// A verification email goes out unconditionally; registration never
	// authenticates the new credential.
	if err := e.provider.SendVerification(ctx, email); err != nil {
		e.warn("verification email dispatch failed: " + err.Error())
	} else {
		e.metricInc(MetricVerificationEmailSent)
		e.emitAudit(ctx, auditEventVerificationEmail, true, email, nil, nil)
	}

	e.mu.Lock()
	e.pendingReg = email
	e.mu.Unlock()

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegister, true, email, nil, nil)
	return &RegisterResult{Email: email, Mode: ModeVerificationPending}, nil
}

// SendPasswordReset describes the sendpasswordreset operation and its observable behavior.
//
// SendPasswordReset may return an error when input validation, dependency calls, or security checks fail.
// SendPasswordReset does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) SendPasswordReset(ctx context.Context, email string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	// The provider reports success for unknown addresses as well, so a caller
	// cannot probe which accounts exist.
	if err := e.provider.SendPasswordReset(ctx, email); err != nil {
		e.emitAudit(ctx, auditEventPasswordReset, false, email, ErrProviderError, nil)
		e.warn("password reset dispatch failed: " + err.Error())
		return ErrProviderError
	}

	e.metricInc(MetricResetEmailSent)
	e.emitAudit(ctx, auditEventPasswordReset, true, email, nil, nil)
	return nil
}

// ResendVerification describes the resendverification operation and its observable behavior.
//
// ResendVerification may return an error when input validation, dependency calls, or security checks fail.
// ResendVerification does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ResendVerification(ctx context.Context) error {
	if e == nil {
		return ErrEngineNotReady
	}

	e.mu.Lock()
	email := e.pendingReg
	e.mu.Unlock()
	if email == "" {
		return ErrNoPendingVerification
	}

	if err := e.provider.SendVerification(ctx, email); err != nil {
		e.emitAudit(ctx, auditEventVerificationEmail, false, email, ErrProviderError, nil)
		e.warn("verification email dispatch failed: " + err.Error())
		return ErrProviderError
	}

	e.metricInc(MetricVerificationEmailSent)
	e.emitAudit(ctx, auditEventVerificationEmail, true, email, nil, nil)
	return nil
}

// SignOut describes the signout operation and its observable behavior.
//
// SignOut may return an error when input validation, dependency calls, or security checks fail.
// SignOut does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) SignOut(ctx context.Context) error {
	if e == nil {
		return ErrEngineNotReady
	}

	email := e.signOutLocked(ctx)

	e.metricInc(MetricSignOut)
	e.emitAudit(ctx, auditEventSignOut, true, email, nil, nil)
	return nil
}

// signOutLocked tears down session state and fires the remote sign-out
// calls. Local teardown always completes; remote failures are logged and
// swallowed so sign-out cannot be blocked by an unreachable dependency.
func (e *Engine) signOutLocked(ctx context.Context) string {
	e.mu.Lock()
	mon := e.mon
	e.mon = nil
	e.pending = nil
	e.currentProof = ""
	e.mu.Unlock()

	var email string
	if mon != nil {
		email = mon.Snapshot().Email
		mon.Stop()
	}

	if err := e.provider.SignOut(ctx); err != nil {
		e.warn("provider sign-out failed: " + err.Error())
	}
	e.tasks.Go(func(taskCtx context.Context) {
		if err := e.backend.Logout(taskCtx); err != nil {
			e.warn("backend logout failed: " + err.Error())
		}
	})

	return email
}
