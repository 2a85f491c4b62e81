package fitauth

import (
	"errors"
	"time"
)

// Config defines a public type used by fitauth APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	OTP     OTPConfig
	Session SessionConfig
	Backend BackendConfig
	Audit   AuditConfig
	Metrics MetricsConfig
}

/*
====================================
OTP CONFIG
====================================
*/

// OTPConfig defines a public type used by fitauth APIs.
//
// OTPConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type OTPConfig struct {
	Digits          int
	ChallengeTTL    time.Duration
	MaxAttempts     int
	LockoutDuration time.Duration
	RedisPrefix     string

	// Dispatch throttling caps how many codes can be sent to one email
	// within the window, so resend cannot be used as a brute-force reset.
	EnableDispatchThrottle bool
	MaxSendsPerWindow      int
	SendWindow             time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig defines a public type used by fitauth APIs.
//
// SessionConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SessionConfig struct {
	IdleThreshold   time.Duration
	WarningDuration time.Duration
	TickInterval    time.Duration
}

/*
====================================
BACKEND CONFIG
====================================
*/

// BackendConfig defines a public type used by fitauth APIs.
//
// BackendConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type BackendConfig struct {
	SyncTimeout time.Duration

	// BestEffortTimeout bounds each fire-and-forget backend call; the call's
	// resources are released when the timeout elapses even if the transport
	// has not completed.
	BestEffortTimeout time.Duration
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig defines a public type used by fitauth APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig defines a public type used by fitauth APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled bool
}

func defaultConfig() Config {
	return Config{
		OTP: OTPConfig{
			Digits:                 6,
			ChallengeTTL:           5 * time.Minute,
			MaxAttempts:            3,
			LockoutDuration:        15 * time.Minute,
			RedisPrefix:            "foc",
			EnableDispatchThrottle: true,
			MaxSendsPerWindow:      5,
			SendWindow:             15 * time.Minute,
		},
		Session: SessionConfig{
			IdleThreshold:   5 * time.Minute,
			WarningDuration: 60 * time.Second,
			TickInterval:    time.Second,
		},
		Backend: BackendConfig{
			SyncTimeout:       10 * time.Second,
			BestEffortTimeout: 15 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	// All sections are value types; a shallow copy is a deep copy.
	return cfg
}

func validateConfig(cfg Config) error {
	if cfg.OTP.Digits < 6 || cfg.OTP.Digits > 10 {
		return errors.New("otp digits must be between 6 and 10")
	}
	if cfg.OTP.ChallengeTTL <= 0 {
		return errors.New("otp challenge ttl must be positive")
	}
	if cfg.OTP.MaxAttempts <= 0 {
		return errors.New("otp max attempts must be positive")
	}
	if cfg.OTP.LockoutDuration <= 0 {
		return errors.New("otp lockout duration must be positive")
	}
	if cfg.OTP.EnableDispatchThrottle && (cfg.OTP.MaxSendsPerWindow <= 0 || cfg.OTP.SendWindow <= 0) {
		return errors.New("otp dispatch throttle requires a positive window and budget")
	}
	if cfg.Session.IdleThreshold <= 0 {
		return errors.New("session idle threshold must be positive")
	}
	if cfg.Session.WarningDuration <= 0 {
		return errors.New("session warning duration must be positive")
	}
	if cfg.Session.TickInterval <= 0 {
		return errors.New("session tick interval must be positive")
	}
	if cfg.Session.WarningDuration < cfg.Session.TickInterval {
		return errors.New("session warning duration must cover at least one tick")
	}
	if cfg.Backend.SyncTimeout <= 0 {
		return errors.New("backend sync timeout must be positive")
	}
	if cfg.Backend.BestEffortTimeout <= 0 {
		return errors.New("backend best-effort timeout must be positive")
	}
	if cfg.Audit.Enabled && cfg.Audit.BufferSize <= 0 {
		return errors.New("audit buffer size must be positive")
	}
	return nil
}
