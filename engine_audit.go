package fitauth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	auditEventFederatedSignIn   = "federated_sign_in"
	auditEventFederatedCancel   = "federated_sign_in_cancelled"
	auditEventPasswordSignIn    = "password_sign_in"
	auditEventRegister          = "register"
	auditEventPasswordReset     = "password_reset_request"
	auditEventVerificationEmail = "verification_email_sent"
	auditEventOTPIssued         = "otp_issued"
	auditEventOTPResent         = "otp_resent"
	auditEventOTPVerified       = "otp_verified"
	auditEventOTPFailure        = "otp_failure"
	auditEventOTPLockout        = "otp_lockout"
	auditEventSyncUpsert        = "backend_sync"
	auditEventSessionCreated    = "session_created"
	auditEventSessionWarning    = "session_warning"
	auditEventSessionRenewed    = "session_renewed"
	auditEventSessionExpired    = "session_expired"
	auditEventSignOut           = "sign_out"
	auditEventAccountDeleted    = "account_deleted"
	auditEventAccountDeleteFail = "account_delete_failed"
)

// AuditErrorCode defines a public type used by fitauth APIs.
//
// AuditErrorCode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditErrorCode string

const (
	auditErrProviderCancelled AuditErrorCode = "provider_cancelled"
	auditErrProvider          AuditErrorCode = "provider_error"
	auditErrInvalidCredential AuditErrorCode = "invalid_credential"
	auditErrEmailNotVerified  AuditErrorCode = "email_not_verified"
	auditErrDispatchFailed    AuditErrorCode = "dispatch_failed"
	auditErrInvalidOTP        AuditErrorCode = "invalid_otp"
	auditErrAttemptsExceeded  AuditErrorCode = "attempts_exceeded"
	auditErrLocked            AuditErrorCode = "locked"
	auditErrRateLimited       AuditErrorCode = "rate_limited"
	auditErrNoChallenge       AuditErrorCode = "no_challenge"
	auditErrSyncRejected      AuditErrorCode = "sync_rejected"
	auditErrNoSession         AuditErrorCode = "no_session"
	auditErrNoVerification    AuditErrorCode = "no_pending_verification"
	auditErrUnavailable       AuditErrorCode = "backend_unavailable"
	auditErrInternal          AuditErrorCode = "internal_error"
)

func auditErrorCode(err error) AuditErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrProviderCancelled):
		return auditErrProviderCancelled
	case errors.Is(err, ErrProviderError):
		return auditErrProvider
	case errors.Is(err, ErrInvalidCredential):
		return auditErrInvalidCredential
	case errors.Is(err, ErrEmailNotVerified):
		return auditErrEmailNotVerified
	case errors.Is(err, ErrDispatchFailed):
		return auditErrDispatchFailed
	case errors.Is(err, ErrInvalidOTP):
		return auditErrInvalidOTP
	case errors.Is(err, ErrTooManyAttempts):
		return auditErrAttemptsExceeded
	case errors.Is(err, ErrOTPLocked):
		return auditErrLocked
	case errors.Is(err, ErrOTPRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrNoChallenge):
		return auditErrNoChallenge
	case errors.Is(err, ErrSyncRejected):
		return auditErrSyncRejected
	case errors.Is(err, ErrNoSession):
		return auditErrNoSession
	case errors.Is(err, ErrNoPendingVerification):
		return auditErrNoVerification
	case errors.Is(err, ErrOTPUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	email string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		EventID:   uuid.NewString(),
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Email:     email,
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}
