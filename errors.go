package fitauth

import "errors"

var (
	// ErrProviderCancelled is an exported constant or variable used by the identity engine.
	ErrProviderCancelled = errors.New("provider sign-in cancelled")
	// ErrProviderError is an exported constant or variable used by the identity engine.
	ErrProviderError = errors.New("identity provider failure")
	// ErrInvalidCredential is an exported constant or variable used by the identity engine.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrEmailNotVerified is an exported constant or variable used by the identity engine.
	ErrEmailNotVerified = errors.New("email not verified")
	// ErrDispatchFailed is an exported constant or variable used by the identity engine.
	ErrDispatchFailed = errors.New("otp dispatch failed")
	// ErrInvalidOTP is an exported constant or variable used by the identity engine.
	ErrInvalidOTP = errors.New("invalid or expired otp")
	// ErrTooManyAttempts is an exported constant or variable used by the identity engine.
	ErrTooManyAttempts = errors.New("too many failed otp attempts")
	// ErrOTPLocked is an exported constant or variable used by the identity engine.
	ErrOTPLocked = errors.New("otp verification locked")
	// ErrOTPRateLimited is an exported constant or variable used by the identity engine.
	ErrOTPRateLimited = errors.New("otp dispatch rate limited")
	// ErrNoChallenge is an exported constant or variable used by the identity engine.
	ErrNoChallenge = errors.New("no otp challenge issued")
	// ErrOTPUnavailable is an exported constant or variable used by the identity engine.
	ErrOTPUnavailable = errors.New("otp backend unavailable")
	// ErrSyncRejected is an exported constant or variable used by the identity engine.
	ErrSyncRejected = errors.New("backend identity sync rejected")
	// ErrNoSession is an exported constant or variable used by the identity engine.
	ErrNoSession = errors.New("no active session")
	// ErrNoPendingVerification is an exported constant or variable used by the identity engine.
	ErrNoPendingVerification = errors.New("no pending email verification")
	// ErrEngineNotReady is an exported constant or variable used by the identity engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
