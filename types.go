package fitauth

// Identity defines a public type used by fitauth APIs.
//
// Identity instances are issued by the identity provider on successful
// authentication and are immutable once issued; re-authentication supersedes
// the identity wholesale rather than mutating it.
type Identity struct {
	ProviderID    string
	Email         string
	DisplayName   string
	AvatarURL     string
	EmailVerified bool
}

// BackendUser defines a public type used by fitauth APIs.
//
// BackendUser is the canonical application-side user record returned by the
// backend identity service. It may augment provider fields, for example with
// an internal id assigned by the backend.
type BackendUser struct {
	ID          string `json:"id"`
	ProviderID  string `json:"providerId"`
	Email       string `json:"email"`
	DisplayName string `json:"name"`
	AvatarURL   string `json:"avatarUrl"`
}

// AuthMode defines a public type used by fitauth APIs.
//
// AuthMode is the closed set of authentication UI modes. Core outcomes drive
// transitions between modes; free-form mode strings are deliberately not
// representable.
type AuthMode int

const (
	// ModeLogin is an exported constant or variable used by the identity engine.
	ModeLogin AuthMode = iota
	// ModeRegister is an exported constant or variable used by the identity engine.
	ModeRegister
	// ModeForgotPassword is an exported constant or variable used by the identity engine.
	ModeForgotPassword
	// ModeVerificationPending is an exported constant or variable used by the identity engine.
	ModeVerificationPending
)

// String returns the mode name for logging and UI binding.
func (m AuthMode) String() string {
	switch m {
	case ModeLogin:
		return "login"
	case ModeRegister:
		return "register"
	case ModeForgotPassword:
		return "forgot_password"
	case ModeVerificationPending:
		return "verification_pending"
	default:
		return "unknown"
	}
}

// SignInResult defines a public type used by fitauth APIs.
//
// SignInResult carries the outcome of a credential-gateway sign-in. When the
// OTP second factor is enabled the identity is authenticated but the session
// is not yet established; OTPRequired is set and the caller must complete
// VerifyOTP before a session exists.
type SignInResult struct {
	Identity    *Identity
	OTPRequired bool
	OTPEmail    string
}

// RegisterResult defines a public type used by fitauth APIs.
//
// RegisterResult reports a registration outcome. Registration never yields an
// authenticated identity: the credential is created, a verification email is
// dispatched unconditionally, and the caller lands in
// ModeVerificationPending.
type RegisterResult struct {
	Email string
	Mode  AuthMode
}

// VerifyOTPResult defines a public type used by fitauth APIs.
//
// VerifyOTPResult reports a failed verification's remaining attempt budget
// alongside the error, or the established session identity on success.
type VerifyOTPResult struct {
	AttemptsRemaining int
	User              *BackendUser
}

// deletionRequest is ephemeral two-phase delete state. It is constructed
// immediately before the delete and discarded after completion or failure;
// it is never persisted.
type deletionRequest struct {
	providerID string
	token      string
}
