package session

import "time"

// Session defines a public type used by fitauth APIs.
//
// Session is the single authenticated session for a client context. The
// identity payload is owned exclusively by the session; the monitor is the
// only writer of the activity and warning fields once the session starts.
type Session struct {
	UserID      string
	ProviderID  string
	Email       string
	DisplayName string
	AvatarURL   string

	StartedAt        time.Time
	LastActivityAt   time.Time
	WarningActive    bool
	SecondsRemaining int
}
