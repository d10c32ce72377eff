package authgate

import (
	"time"

	"github.com/seralis/authgate/internal/rate"
	"github.com/seralis/authgate/session"
)

// SecurityReport is a point-in-time posture summary for diagnostics
// screens and support tooling. It never includes token material.
type SecurityReport struct {
	Status            session.Status
	AuthMethod        session.AuthMethod
	UserID            string
	DeviceID          string
	LastActivity      time.Time
	LastVerifiedAt    time.Time
	VerificationFresh bool

	RemainingLoginAttempts     int
	RemainingMFAAttempts       int
	RemainingBiometricAttempts int

	AuditDropped uint64
}

// SecurityReport builds the posture summary, enforcing the session
// invariant first so the report never shows a stale authenticated state.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{Status: session.StatusIdle}
	}

	e.mu.Lock()
	e.snapshotLocked()
	view := e.store.View()
	e.mu.Unlock()

	report := SecurityReport{
		Status:            view.Status,
		AuthMethod:        view.AuthMethod,
		DeviceID:          view.Context.DeviceID,
		LastActivity:      view.LastActivity,
		LastVerifiedAt:    view.Context.LastVerifiedAt,
		VerificationFresh: view.Context.Fresh(e.config.Session.FreshnessWindow, e.now()),

		RemainingLoginAttempts:     e.limiter.Remaining(rate.ClassLogin),
		RemainingMFAAttempts:       e.limiter.Remaining(rate.ClassMFA),
		RemainingBiometricAttempts: e.limiter.Remaining(rate.ClassBiometric),

		AuditDropped: e.audit.Dropped(),
	}
	if view.User != nil {
		report.UserID = view.User.ID
	}
	return report
}
