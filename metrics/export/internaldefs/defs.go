package internaldefs

import (
	fitauth "github.com/fitgpt/fitauth"
)

// CounterDef defines a public type used by fitauth APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   fitauth.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the identity engine.
var CounterDefs = []CounterDef{
	{ID: fitauth.MetricFederatedSignInSuccess, Name: "fitauth_federated_sign_in_success_total", Help: "Successful federated sign-ins."},
	{ID: fitauth.MetricFederatedSignInCancelled, Name: "fitauth_federated_sign_in_cancelled_total", Help: "Federated sign-ins abandoned by the user."},
	{ID: fitauth.MetricFederatedSignInFailure, Name: "fitauth_federated_sign_in_failure_total", Help: "Failed federated sign-ins."},
	{ID: fitauth.MetricPasswordSignInSuccess, Name: "fitauth_password_sign_in_success_total", Help: "Successful password sign-ins."},
	{ID: fitauth.MetricPasswordSignInFailure, Name: "fitauth_password_sign_in_failure_total", Help: "Failed password sign-ins."},
	{ID: fitauth.MetricPasswordSignInUnverified, Name: "fitauth_password_sign_in_unverified_total", Help: "Password sign-ins blocked on an unverified email."},
	{ID: fitauth.MetricRegisterSuccess, Name: "fitauth_register_success_total", Help: "Successful registrations."},
	{ID: fitauth.MetricRegisterFailure, Name: "fitauth_register_failure_total", Help: "Failed registrations."},
	{ID: fitauth.MetricResetEmailSent, Name: "fitauth_reset_email_sent_total", Help: "Password reset emails dispatched."},
	{ID: fitauth.MetricVerificationEmailSent, Name: "fitauth_verification_email_sent_total", Help: "Verification emails dispatched."},
	{ID: fitauth.MetricOTPIssued, Name: "fitauth_otp_issued_total", Help: "OTP challenges issued."},
	{ID: fitauth.MetricOTPResent, Name: "fitauth_otp_resent_total", Help: "OTP challenges reissued on resend."},
	{ID: fitauth.MetricOTPDispatchFailed, Name: "fitauth_otp_dispatch_failed_total", Help: "Failed OTP dispatches."},
	{ID: fitauth.MetricOTPRateLimited, Name: "fitauth_otp_rate_limited_total", Help: "OTP dispatches denied by the send throttle."},
	{ID: fitauth.MetricOTPVerified, Name: "fitauth_otp_verified_total", Help: "Successful OTP verifications."},
	{ID: fitauth.MetricOTPInvalid, Name: "fitauth_otp_invalid_total", Help: "OTP verifications rejected as invalid."},
	{ID: fitauth.MetricOTPLockout, Name: "fitauth_otp_lockout_total", Help: "OTP challenges locked on the attempt ceiling."},
	{ID: fitauth.MetricOTPLockedRejected, Name: "fitauth_otp_locked_rejected_total", Help: "OTP verifications rejected while locked."},
	{ID: fitauth.MetricSyncSuccess, Name: "fitauth_sync_success_total", Help: "Successful backend identity syncs."},
	{ID: fitauth.MetricSyncRejected, Name: "fitauth_sync_rejected_total", Help: "Backend identity syncs rejected."},
	{ID: fitauth.MetricSyncBackground, Name: "fitauth_sync_background_total", Help: "Identity syncs dispatched best-effort in the background."},
	{ID: fitauth.MetricSessionCreated, Name: "fitauth_session_created_total", Help: "Created sessions."},
	{ID: fitauth.MetricSessionWarning, Name: "fitauth_session_warning_total", Help: "Idle warnings shown."},
	{ID: fitauth.MetricSessionRenewed, Name: "fitauth_session_renewed_total", Help: "Sessions renewed from an idle warning."},
	{ID: fitauth.MetricSessionExpired, Name: "fitauth_session_expired_total", Help: "Sessions expired on idle timeout."},
	{ID: fitauth.MetricSignOut, Name: "fitauth_sign_out_total", Help: "Explicit sign-out operations."},
	{ID: fitauth.MetricAccountDeleted, Name: "fitauth_account_deleted_total", Help: "Completed account deletions."},
	{ID: fitauth.MetricAccountDeleteFailed, Name: "fitauth_account_delete_failed_total", Help: "Account deletions that failed at the credential provider."},
}
