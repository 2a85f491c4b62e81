package fitauth

import (
	"context"
	"errors"
	"testing"
)

func TestPasswordSignIn_RequiresOTPBeforeSession(t *testing.T) {
	te, done := newTestEngine(t, nil)
	defer done()

	result, err := te.engine.SignInWithPassword(context.Background(), testEmail, testPassword)
	if err != nil {
		t.Fatalf("sign-in failed: %v", err)
	}
	if !result.OTPRequired {
		t.Fatal("expected OTP to be required after password sign-in")
	}
	if result.OTPEmail != testEmail {
		t.Fatalf("expected OTP email %q, got %q", testEmail, result.OTPEmail)
	}
	if _, ok := te.engine.CurrentSession(); ok {
		t.Fatal("no session may exist before OTP verification")
	}
	if te.backend.otpSends() != 1 {
		t.Fatalf("expected 1 OTP dispatch, got %d", te.backend.otpSends())
	}
}

func TestPasswordSignIn_InvalidCredential(t *testing.T) {
	te, done := newTestEngine(t, nil)
	defer done()

	_, err := te.engine.SignInWithPassword(context.Background(), testEmail, "wrong-password")
	if !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}
	if te.backend.otpSends() != 0 {
		t.Fatal("no OTP may be dispatched on failed sign-in")
	}
}

func TestPasswordSignIn_UnverifiedEmailNeverSessions(t *testing.T) {
	te, done := newTestEngine(t, nil)
	defer done()
	te.provider.passwordErr = ErrEmailNotVerified

	_, err := te.engine.SignInWithPassword(context.Background(), testEmail, testPassword)
	if !errors.Is(err, ErrEmailNotVerified) {
		t.Fatalf("expected ErrEmailNotVerified, got %v", err)
	}
	if _, ok := te.engine.CurrentSession(); ok {
		t.Fatal("unverified email must not establish a session")
	}
	if te.backend.otpSends() != 0 {
		t.Fatal("no OTP may be dispatched for an unverified credential")
	}

	// The blocked address is remembered so verification can be resent.
	if err := te.engine.ResendVerification(context.Background()); err != nil {
		t.Fatalf("resend verification: %v", err)
	}
	te.provider.mu.Lock()
	sends := len(te.provider.verificationSends)
	te.provider.mu.Unlock()
	if sends != 1 {
		t.Fatalf("expected 1 verification email, got %d", sends)
	}
}

func TestFederatedSignIn_IssuesOTP(t *testing.T) {
	te, done := newTestEngine(t, nil)
	defer done()

	result, err := te.engine.SignInFederated(context.Background())
	if err != nil {
		t.Fatalf("federated sign-in failed: %v", err)
	}
	if !result.OTPRequired {
		t.Fatal("expected OTP to be required after federated sign-in")
	}
	if te.backend.otpSends() != 1 {
		t.Fatalf("expected 1 OTP dispatch, got %d", te.backend.otpSends())
	}
}

func TestFederatedSignIn_CancelLeavesNoState(t *testing.T) {
	te, done := newTestEngine(t, nil)
	defer done()
	te.provider.federatedErr = ErrProviderCancelled

	_, err := te.engine.SignInFederated(context.Background())
	if !errors.Is(err, ErrProviderCancelled) {
		t.Fatalf("expected ErrProviderCancelled, got %v", err)
	}
	if te.backend.otpSends() != 0 {
		t.Fatal("cancelled sign-in must not dispatch an OTP")
	}
	if _, err := te.engine.VerifyOTP(context.Background(), testOTPCode); !errors.Is(err, ErrNoChallenge) {
		t.Fatalf("expected ErrNoChallenge after cancel, got %v", err)
	}
	if got := te.engine.MetricsSnapshot().Counters[MetricFederatedSignInCancelled]; got != 1 {
		t.Fatalf("expected 1 cancellation counted, got %d", got)
	}
}

func TestFederatedSignIn_ProviderFailure(t *testing.T) {
	te, done := newTestEngine(t, nil)
	defer done()
	te.provider.federatedErr = errors.New("network down")

	_, err := te.engine.SignInFederated(context.Background())
	if !errors.Is(err, ErrProviderError) {
		t.Fatalf("expected ErrProviderError, got %v", err)
	}
}

func TestRegister_LandsInVerificationPending(t *testing.T) {
	te, done := newTestEngine(t, nil)
	defer done()

	result, err := te.engine.Register(context.Background(), "new@example.com", testPassword)
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if result.Mode != ModeVerificationPending {
		t.Fatalf("expected ModeVerificationPending, got %v", result.Mode)
	}
	if _, ok := te.engine.CurrentSession(); ok {
		t.Fatal("registration must never authenticate")
	}

	te.provider.mu.Lock()
	sends := len(te.provider.verificationSends)
	te.provider.mu.Unlock()
	if sends != 1 {
		t.Fatalf("expected 1 verification email, got %d", sends)
	}
}

func TestResendVerification_WithoutPending(t *testing.T) {
	te, done := newTestEngine(t, nil)
	defer done()

	err := te.engine.ResendVerification(context.Background())
	if !errors.Is(err, ErrNoPendingVerification) {
		t.Fatalf("expected ErrNoPendingVerification, got %v", err)
	}
}

func TestSendPasswordReset_DoesNotLeakExistence(t *testing.T) {
	te, done := newTestEngine(t, nil)
	defer done()

	// The provider treats unknown addresses as success; both outcomes look
	// identical to the caller.
	if err := te.engine.SendPasswordReset(context.Background(), testEmail); err != nil {
		t.Fatalf("reset for known address: %v", err)
	}
	if err := te.engine.SendPasswordReset(context.Background(), "nobody@example.com"); err != nil {
		t.Fatalf("reset for unknown address: %v", err)
	}
}

func TestSignOut_AlwaysSucceedsLocally(t *testing.T) {
	te, done := newTestEngine(t, nil)
	defer done()
	te.signIn(t)
	te.provider.signOutErr = errors.New("provider unreachable")

	if err := te.engine.SignOut(context.Background()); err != nil {
		t.Fatalf("sign-out must succeed despite provider failure, got %v", err)
	}
	if _, ok := te.engine.CurrentSession(); ok {
		t.Fatal("session must be gone after sign-out")
	}

	te.engine.tasks.Wait()
	te.backend.mu.Lock()
	logouts := te.backend.logoutCalls
	te.backend.mu.Unlock()
	if logouts != 1 {
		t.Fatalf("expected 1 backend logout, got %d", logouts)
	}
}

func TestSignOut_WithoutSessionIsIdempotent(t *testing.T) {
	te, done := newTestEngine(t, nil)
	defer done()

	if err := te.engine.SignOut(context.Background()); err != nil {
		t.Fatalf("sign-out without session: %v", err)
	}
}
