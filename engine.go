package fitauth

import (
	"context"
	"log"
	"sync"

	"github.com/fitgpt/fitauth/internal/limiters"
	"github.com/fitgpt/fitauth/internal/stores"
	"github.com/fitgpt/fitauth/internal/task"
	"github.com/fitgpt/fitauth/session"
)

// IdentityProvider is the external identity system the credential gateway
// wraps. Implementations map their own failure modes onto the package
// sentinels: user abandonment of an interactive flow is ErrProviderCancelled,
// bad password or unknown account is ErrInvalidCredential, and everything
// else is ErrProviderError.
type IdentityProvider interface {
	// FederatedSignIn runs the provider's interactive (popup) flow and
	// returns the authenticated identity plus a provider-issued proof token.
	FederatedSignIn(ctx context.Context) (*Identity, string, error)
	// PasswordSignIn authenticates an email/password credential.
	PasswordSignIn(ctx context.Context, email, password string) (*Identity, string, error)
	// Register creates a new password credential. It never authenticates.
	Register(ctx context.Context, email, password string) error
	// SendPasswordReset dispatches a reset email. It must succeed for
	// unknown addresses so account existence is not leaked.
	SendPasswordReset(ctx context.Context, email string) error
	// SendVerification dispatches a verification email for the credential.
	SendVerification(ctx context.Context, email string) error
	// SignOut invalidates the provider-side credential state.
	SignOut(ctx context.Context) error
	// DeleteCredential permanently removes the credential.
	DeleteCredential(ctx context.Context, providerID, proofToken string) error
}

// BackendService is the application backend: the source of truth for the
// canonical user record and the dispatcher/verifier for OTP codes. All calls
// carry identity through ambient credential transport (cookies or bearer),
// never through explicit session ids in the body.
type BackendService interface {
	UpsertIdentity(ctx context.Context, proofToken string, id Identity) (*BackendUser, error)
	SendOTP(ctx context.Context, email string, digits int) error
	VerifyOTP(ctx context.Context, email, code string) error
	Logout(ctx context.Context) error
	NotifyDeletion(ctx context.Context, proofToken string) error
}

// pendingAuth is the authenticated-but-ungated state between a successful
// provider sign-in and OTP completion. federated selects the best-effort
// sync path on session establishment.
type pendingAuth struct {
	identity  Identity
	proof     string
	federated bool
}

// Engine defines a public type used by fitauth APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config          Config
	provider        IdentityProvider
	backend         BackendService
	otpStore        *stores.OTPChallengeStore
	dispatchLimiter *limiters.DispatchLimiter
	tasks           *task.Runner
	audit           *auditDispatcher
	metrics         *Metrics
	clock           session.Clock

	sessionCB SessionCallbacks

	mu           sync.Mutex
	mon          *session.Monitor
	pending      *pendingAuth
	currentProof string
	pendingReg   string
}

// SessionCallbacks surface monitor transitions to the embedding application.
// All callbacks run on the monitor goroutine with no engine locks held; slow
// handlers delay subsequent ticks.
type SessionCallbacks struct {
	// OnWarning fires once per idle episode when the warning countdown opens.
	OnWarning func(secondsRemaining int)
	// OnCountdown fires every tick while the warning is showing.
	OnCountdown func(secondsRemaining int)
	// OnExpired fires after the engine has already torn the session down.
	OnExpired func()
}

// Close releases the engine's background resources: the audit dispatcher is
// drained, in-flight best-effort syncs are waited out, and any live session
// monitor is stopped.
func (e *Engine) Close() {
	if e == nil {
		return
	}

	e.mu.Lock()
	mon := e.mon
	e.mon = nil
	e.mu.Unlock()

	if mon != nil {
		mon.Stop()
	}
	if e.tasks != nil {
		e.tasks.Close()
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) warn(msg string) {
	log.Print("fitauth: " + msg)
}
