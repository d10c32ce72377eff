// Package metrics provides lock-free counters for engine observability.
//
// Counters live in cache-line-padded uint64 slots and are incremented
// atomically; the write path is allocation-free. Snapshot produces a
// point-in-time copy for export.
package metrics

import "sync/atomic"

// ID identifies a counter slot.
type ID uint16

const (
	// LoginSuccess counts completed credential logins.
	LoginSuccess ID = iota
	// LoginFailure counts rejected credential logins.
	LoginFailure
	// LoginRateLimited counts logins blocked by the device window.
	LoginRateLimited
	// AccountLocked counts logins blocked by the identity lockout.
	AccountLocked
	// MFARequired counts logins that escalated to a second factor.
	MFARequired
	// MFASuccess counts confirmed MFA verifications.
	MFASuccess
	// MFAFailure counts rejected MFA codes.
	MFAFailure
	// BiometricSuccess counts completed biometric verifications.
	BiometricSuccess
	// BiometricFailure counts failed or unavailable biometric attempts.
	BiometricFailure
	// RefreshSuccess counts completed token refreshes.
	RefreshSuccess
	// RefreshFailure counts refresh failures (each forces a logout).
	RefreshFailure
	// Logout counts explicit logouts.
	Logout
	// IdleTimeout counts sessions ended by inactivity.
	IdleTimeout
	// SessionExpired counts sessions invalidated by the freshness or
	// token-expiry invariant.
	SessionExpired
	// SecurityViolation counts violation signals applied to the session.
	SecurityViolation
	// NavigationAllowed counts permitted route transitions.
	NavigationAllowed
	// NavigationDenied counts guard denials.
	NavigationDenied
	// NavigationThrottled counts navigations rejected by the throttle.
	NavigationThrottled
	// OfflineEnqueued counts items parked in the offline queue.
	OfflineEnqueued

	idCount
)

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds the counter slots. A nil or disabled instance is a no-op.
type Metrics struct {
	enabled  bool
	counters [idCount]paddedCounter
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	Counters map[ID]uint64
}

// New creates a Metrics instance. When enabled is false all operations
// are no-ops.
func New(enabled bool) *Metrics {
	return &Metrics{enabled: enabled}
}

// Enabled reports whether counting is active.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc increments the counter for id.
func (m *Metrics) Inc(id ID) {
	if m == nil || !m.enabled || id >= idCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Value returns the current count for id.
func (m *Metrics) Value(id ID) uint64 {
	if m == nil || id >= idCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// TakeSnapshot copies every counter into a fresh map.
func (m *Metrics) TakeSnapshot() Snapshot {
	if m == nil || !m.enabled {
		return Snapshot{Counters: map[ID]uint64{}}
	}

	s := Snapshot{Counters: make(map[ID]uint64, int(idCount))}
	for id := ID(0); id < idCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return s
}
