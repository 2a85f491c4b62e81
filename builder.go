package fitauth

import (
	"errors"

	"github.com/fitgpt/fitauth/internal/limiters"
	"github.com/fitgpt/fitauth/internal/stores"
	"github.com/fitgpt/fitauth/internal/task"
	"github.com/fitgpt/fitauth/session"
	"github.com/redis/go-redis/v9"
)

// Builder defines a public type used by fitauth APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  *redis.Client

	provider  IdentityProvider
	backend   BackendService
	auditSink AuditSink
	clock     session.Clock
	sessionCB SessionCallbacks

	built bool
}

// New describes the new operation and its observable behavior.
//
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
//
// WithRedis does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithProvider describes the withprovider operation and its observable behavior.
//
// WithProvider does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithProvider(p IdentityProvider) *Builder {
	b.provider = p
	return b
}

// WithBackend describes the withbackend operation and its observable behavior.
//
// WithBackend does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithBackend(svc BackendService) *Builder {
	b.backend = svc
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = true
	return b
}

// WithClock installs an alternative clock for the session monitor. Tests use
// session.ManualClock; the zero value defaults to the system clock.
func (b *Builder) WithClock(clk session.Clock) *Builder {
	b.clock = clk
	return b
}

// WithSessionCallbacks describes the withsessioncallbacks operation and its observable behavior.
//
// WithSessionCallbacks does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithSessionCallbacks(cb SessionCallbacks) *Builder {
	b.sessionCB = cb
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if err := validateConfig(b.config); err != nil {
		return nil, err
	}
	if b.provider == nil {
		return nil, errors.New("identity provider is required")
	}
	if b.backend == nil {
		return nil, errors.New("backend service is required")
	}
	if b.redis == nil {
		return nil, errors.New("redis client is required for otp challenge state")
	}

	clk := b.clock
	if clk == nil {
		clk = session.SystemClock{}
	}

	e := &Engine{
		config:   b.config,
		provider: b.provider,
		backend:  b.backend,
		otpStore: stores.NewOTPChallengeStore(b.redis, b.config.OTP.RedisPrefix),
		dispatchLimiter: limiters.NewDispatchLimiter(b.redis, limiters.DispatchConfig{
			Enabled: b.config.OTP.EnableDispatchThrottle,
			Max:     b.config.OTP.MaxSendsPerWindow,
			Window:  b.config.OTP.SendWindow,
		}),
		tasks:     task.NewRunner(b.config.Backend.BestEffortTimeout),
		audit:     newAuditDispatcher(b.config.Audit, b.auditSink),
		metrics:   NewMetrics(b.config.Metrics),
		clock:     clk,
		sessionCB: b.sessionCB,
	}

	b.built = true
	return e, nil
}
