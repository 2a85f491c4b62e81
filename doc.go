// Package fitauth implements the identity and session lifecycle core of the
// FitGPT client: multi-method sign-in against an external identity provider,
// an email one-time-passcode second factor with bounded retries and lockout,
// best-effort reconciliation of the authenticated identity into the backend
// user record, idle-session monitoring with a warned eviction countdown, and
// two-phase account deletion across both systems of record.
//
// The package is event driven and carries no HTTP server surface of its own.
// Callers construct an Engine through the Builder, injecting the identity
// provider, the OTP mailer, the backend client and a redis client for the
// challenge state, then drive the Engine from their UI and network callbacks.
//
// Engine instances own their resources explicitly: background work (audit
// dispatch, best-effort backend syncs, the session monitor) is started by the
// Engine and released by Close or by session destruction, never leaked.
package fitauth
