package session

import (
	"time"

	"github.com/google/uuid"
)

// SecurityContext captures device and network identity at verification
// time. It is produced by the caller's fingerprinting layer at login and
// refreshed by the engine on every successful verification step.
type SecurityContext struct {
	DeviceID       string
	IPAddress      string
	UserAgent      string
	LastVerifiedAt time.Time
}

// NewDeviceID generates a stable random device identifier for callers
// that do not have a platform fingerprint available.
func NewDeviceID() string {
	return uuid.NewString()
}

// Refreshed returns a copy with LastVerifiedAt set to now. The receiver
// is never mutated; security contexts are immutable per transition.
func (c SecurityContext) Refreshed(now time.Time) SecurityContext {
	c.LastVerifiedAt = now
	return c
}

// Fresh reports whether the last verification is younger than window.
func (c SecurityContext) Fresh(window time.Duration, now time.Time) bool {
	if c.LastVerifiedAt.IsZero() {
		return false
	}
	return now.Sub(c.LastVerifiedAt) < window
}

// SameDevice reports whether other identifies the same device and
// network endpoint. A mismatch is a security violation trigger.
func (c SecurityContext) SameDevice(other SecurityContext) bool {
	return c.DeviceID == other.DeviceID && c.IPAddress == other.IPAddress
}
