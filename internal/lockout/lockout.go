// Package lockout tracks identity-scoped failed login attempts and locks
// an account identity once the threshold is reached. It is deliberately
// independent from the device-scoped limiter in internal/rate: a rotating
// attacker is caught by the device window, a single hammered credential is
// caught here.
package lockout

import (
	"sync"
	"time"
)

// Config holds the lockout threshold and auto-unlock duration.
type Config struct {
	Threshold int
	Duration  time.Duration // 0 = manual unlock only
}

type record struct {
	failures int
	firstAt  time.Time
}

// Counter tracks persistent failed login attempts per user identity.
type Counter struct {
	mu      sync.Mutex
	config  Config
	now     func() time.Time
	records map[string]*record
}

// New creates a lockout counter. now is injectable for tests; nil means
// time.Now.
func New(cfg Config, now func() time.Time) *Counter {
	if now == nil {
		now = time.Now
	}
	return &Counter{
		config:  cfg,
		now:     now,
		records: make(map[string]*record),
	}
}

func (c *Counter) expireLocked(identity string) *record {
	r := c.records[identity]
	if r == nil {
		r = &record{}
		c.records[identity] = r
	}
	if c.config.Duration > 0 && r.failures > 0 && c.now().Sub(r.firstAt) >= c.config.Duration {
		r.failures = 0
		r.firstAt = time.Time{}
	}
	return r
}

// RecordFailure increments the failure counter for the identity and
// reports whether the lockout threshold has been reached.
func (c *Counter) RecordFailure(identity string) bool {
	if identity == "" {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	r := c.expireLocked(identity)
	if r.failures == 0 {
		r.firstAt = c.now()
	}
	r.failures++
	return r.failures >= c.config.Threshold
}

// IsLocked reports whether the identity has reached the threshold within
// the current lockout window.
func (c *Counter) IsLocked(identity string) bool {
	if identity == "" {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.expireLocked(identity).failures >= c.config.Threshold
}

// Failures returns the current failure count for the identity.
func (c *Counter) Failures(identity string) int {
	if identity == "" {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.expireLocked(identity).failures
}

// Reset clears the failure counter for the identity, e.g. after a
// successful login or a manual unlock.
func (c *Counter) Reset(identity string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.records, identity)
}
