package authgate

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	internalaudit "github.com/seralis/authgate/internal/audit"
	internalmetrics "github.com/seralis/authgate/internal/metrics"
	"github.com/seralis/authgate/internal/lifecycle"
	"github.com/seralis/authgate/internal/lockout"
	"github.com/seralis/authgate/internal/rate"
	"github.com/seralis/authgate/jwt"
	"github.com/seralis/authgate/navigation"
	"github.com/seralis/authgate/queue"
	"github.com/seralis/authgate/session"
)

// Engine owns the authentication session lifecycle: credential login,
// MFA and biometric verification, proactive token refresh, idle timeout,
// logout, and security violation handling. All session mutation funnels
// through Engine operations; the injected [session.Store] has no other
// writer. Engine methods are safe for concurrent use after Build.
type Engine struct {
	config     Config
	store      *session.Store
	transport  AuthTransport
	biometrics BiometricProvider
	offline    queue.Store
	limiter    *rate.Limiter
	lockout    *lockout.Counter
	lifecycle  *lifecycle.Manager
	tokens     *jwt.Manager
	nav        *navigation.Engine
	audit      *internalaudit.Dispatcher
	metrics    *internalmetrics.Metrics
	logger     zerolog.Logger
	now        func() time.Time

	// mu serializes state transitions. Transport calls happen outside
	// the lock so concurrent attempts are rejected synchronously.
	mu sync.Mutex
}

// Navigation returns the route authorization engine bound to this
// session.
func (e *Engine) Navigation() *navigation.Engine {
	if e == nil {
		return nil
	}
	return e.nav
}

// Snapshot returns the current session view after enforcing the
// authenticated invariant: a session whose access token has expired or
// whose last verification is older than the freshness window is forced
// out of authenticated before the snapshot is taken.
func (e *Engine) Snapshot() session.Snapshot {
	if e == nil {
		return session.Snapshot{Status: session.StatusIdle}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() session.Snapshot {
	snap := e.store.Snapshot()
	if snap.Status != session.StatusAuthenticated {
		return snap
	}

	now := e.now()
	tokenDead := snap.AccessExpiresAt.IsZero() || !now.Before(snap.AccessExpiresAt)
	stale := !snap.VerifiedWithin(e.config.Session.FreshnessWindow, now)
	if tokenDead || stale {
		e.expireLocked(nil, "invariant")
		snap = e.store.Snapshot()
	}
	return snap
}

// expireLocked forces the session out of authenticated. Timers are
// cancelled before the reset so nothing fires against the dead session.
func (e *Engine) expireLocked(err error, reason string) {
	view := e.store.View()
	e.lifecycle.Cancel()
	e.store.Reset(session.StatusSessionExpired, err)
	e.metrics.Inc(internalmetrics.SessionExpired)
	e.emitAuditFor(nil, "session_expired", false, view, ErrTokenExpired, map[string]string{
		"reason": reason,
	})
}

// Touch records user activity: it stamps LastActivity and resets the
// idle countdown. A no-op outside authenticated states.
func (e *Engine) Touch() {
	if e == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.store.Status()
	if st != session.StatusAuthenticated && st != session.StatusTokenRefreshRequired {
		return
	}
	now := e.now()
	e.store.Update(func(s *session.Session) {
		s.LastActivity = now
	})
	e.lifecycle.Touch()
}

// ReportSecurityViolation applies a violation signal. It wins over any
// in-flight operation: tokens are cleared immediately, timers are
// cancelled, and the trigger is preserved in the session error.
func (e *Engine) ReportSecurityViolation(v SecurityViolation) {
	if e == nil {
		return
	}

	e.mu.Lock()
	view := e.store.View()
	e.lifecycle.Cancel()
	e.store.Reset(session.StatusSecurityViolation, &v)
	e.mu.Unlock()

	e.metrics.Inc(internalmetrics.SecurityViolation)
	e.emitAuditFor(nil, "security_violation", false, view, &v, map[string]string{
		"violation_type": string(v.Type),
		"details":        v.Details,
	})
}

// ObserveContext compares a freshly collected fingerprint against the
// session's security context and raises a violation when the device or
// network identity changed mid-session.
func (e *Engine) ObserveContext(observed session.SecurityContext) {
	if e == nil {
		return
	}

	e.mu.Lock()
	view := e.store.View()
	e.mu.Unlock()

	if view.Status != session.StatusAuthenticated {
		return
	}
	if view.Context.SameDevice(observed) {
		return
	}
	// Not the same endpoint: classify the mismatch, tolerating fields
	// the fingerprinting layer could not collect on either side.
	if view.Context.DeviceID != "" && observed.DeviceID != "" && view.Context.DeviceID != observed.DeviceID {
		e.ReportSecurityViolation(SecurityViolation{
			Type:    ViolationDeviceChange,
			Details: "device fingerprint changed mid-session",
		})
		return
	}
	if view.Context.IPAddress != "" && observed.IPAddress != "" && view.Context.IPAddress != observed.IPAddress {
		e.ReportSecurityViolation(SecurityViolation{
			Type:    ViolationIPChange,
			Details: "network address changed mid-session",
		})
	}
}

// Session returns a copy of the full session value, mainly for
// diagnostics; navigation and callers should prefer [Engine.Snapshot].
func (e *Engine) Session() session.Session {
	if e == nil {
		return session.Session{Status: session.StatusIdle}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.snapshotLocked()
	return e.store.View()
}

// RemainingLoginAttempts reports the device-window budget left for
// credential logins.
func (e *Engine) RemainingLoginAttempts() int {
	if e == nil {
		return 0
	}
	return e.limiter.Remaining(rate.ClassLogin)
}

// MetricsSnapshot returns a point-in-time copy of all counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.TakeSnapshot()
}

// AuditDropped returns the number of audit events discarded under
// DropIfFull back-pressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// Close cancels timers and drains the audit pipeline.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.mu.Lock()
	e.lifecycle.Cancel()
	e.mu.Unlock()
	e.audit.Close()
}
