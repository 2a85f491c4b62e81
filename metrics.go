package fitauth

import "sync/atomic"

// MetricID defines a public type used by fitauth APIs.
//
// MetricID instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricID uint16

const (
	// MetricFederatedSignInSuccess is an exported constant or variable used by the identity engine.
	MetricFederatedSignInSuccess MetricID = iota
	// MetricFederatedSignInCancelled is an exported constant or variable used by the identity engine.
	MetricFederatedSignInCancelled
	// MetricFederatedSignInFailure is an exported constant or variable used by the identity engine.
	MetricFederatedSignInFailure
	// MetricPasswordSignInSuccess is an exported constant or variable used by the identity engine.
	MetricPasswordSignInSuccess
	// MetricPasswordSignInFailure is an exported constant or variable used by the identity engine.
	MetricPasswordSignInFailure
	// MetricPasswordSignInUnverified is an exported constant or variable used by the identity engine.
	MetricPasswordSignInUnverified
	// MetricRegisterSuccess is an exported constant or variable used by the identity engine.
	MetricRegisterSuccess
	// MetricRegisterFailure is an exported constant or variable used by the identity engine.
	MetricRegisterFailure
	// MetricResetEmailSent is an exported constant or variable used by the identity engine.
	MetricResetEmailSent
	// MetricVerificationEmailSent is an exported constant or variable used by the identity engine.
	MetricVerificationEmailSent
	// MetricOTPIssued is an exported constant or variable used by the identity engine.
	MetricOTPIssued
	// MetricOTPResent is an exported constant or variable used by the identity engine.
	MetricOTPResent
	// MetricOTPDispatchFailed is an exported constant or variable used by the identity engine.
	MetricOTPDispatchFailed
	// MetricOTPRateLimited is an exported constant or variable used by the identity engine.
	MetricOTPRateLimited
	// MetricOTPVerified is an exported constant or variable used by the identity engine.
	MetricOTPVerified
	// MetricOTPInvalid is an exported constant or variable used by the identity engine.
	MetricOTPInvalid
	// MetricOTPLockout is an exported constant or variable used by the identity engine.
	MetricOTPLockout
	// MetricOTPLockedRejected is an exported constant or variable used by the identity engine.
	MetricOTPLockedRejected
	// MetricSyncSuccess is an exported constant or variable used by the identity engine.
	MetricSyncSuccess
	// MetricSyncRejected is an exported constant or variable used by the identity engine.
	MetricSyncRejected
	// MetricSyncBackground is an exported constant or variable used by the identity engine.
	MetricSyncBackground
	// MetricSessionCreated is an exported constant or variable used by the identity engine.
	MetricSessionCreated
	// MetricSessionWarning is an exported constant or variable used by the identity engine.
	MetricSessionWarning
	// MetricSessionRenewed is an exported constant or variable used by the identity engine.
	MetricSessionRenewed
	// MetricSessionExpired is an exported constant or variable used by the identity engine.
	MetricSessionExpired
	// MetricSignOut is an exported constant or variable used by the identity engine.
	MetricSignOut
	// MetricAccountDeleted is an exported constant or variable used by the identity engine.
	MetricAccountDeleted
	// MetricAccountDeleteFailed is an exported constant or variable used by the identity engine.
	MetricAccountDeleteFailed
	metricIDCount
)

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics defines a public type used by fitauth APIs.
//
// Metrics instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// MetricsSnapshot defines a public type used by fitauth APIs.
//
// MetricsSnapshot instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// NewMetrics describes the newmetrics operation and its observable behavior.
//
// NewMetrics does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Enabled reports whether the registry records increments.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc describes the inc operation and its observable behavior.
//
// Inc does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Value describes the value operation and its observable behavior.
//
// Value does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot describes the snapshot operation and its observable behavior.
//
// Snapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}

	s := MetricsSnapshot{
		Counters: make(map[MetricID]uint64, int(metricIDCount)),
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return s
}
