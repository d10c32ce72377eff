package rate

import (
	"errors"
	"sync"
	"time"
)

// ErrRateLimited indicates the attempt budget for a class is exhausted
// and the window has not yet lapsed.
var ErrRateLimited = errors.New("rate limited")

// Class identifies an independent rate-limit window.
type Class string

const (
	// ClassLogin is the credential login window.
	ClassLogin Class = "login"
	// ClassMFA is the MFA code verification window.
	ClassMFA Class = "mfa"
	// ClassBiometric is the biometric attempt window.
	ClassBiometric Class = "biometric"
)

// Config holds per-class budgets and the shared window duration.
type Config struct {
	MaxLoginAttempts     int
	MaxMFAAttempts       int
	MaxBiometricAttempts int
	WindowDuration       time.Duration
}

type window struct {
	attempts    int
	windowStart time.Time
}

// Limiter enforces fixed-window attempt budgets keyed by operation class.
// All methods are safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	config  Config
	now     func() time.Time
	windows map[Class]*window
}

// New creates a limiter. now is injectable for tests; nil means time.Now.
func New(cfg Config, now func() time.Time) *Limiter {
	if now == nil {
		now = time.Now
	}
	return &Limiter{
		config:  cfg,
		now:     now,
		windows: make(map[Class]*window),
	}
}

func (l *Limiter) budget(class Class) int {
	switch class {
	case ClassMFA:
		return l.config.MaxMFAAttempts
	case ClassBiometric:
		return l.config.MaxBiometricAttempts
	default:
		return l.config.MaxLoginAttempts
	}
}

// expireLocked resets the window if its duration has elapsed. Callers
// must hold l.mu.
func (l *Limiter) expireLocked(class Class) *window {
	w := l.windows[class]
	if w == nil {
		w = &window{}
		l.windows[class] = w
	}
	if w.attempts > 0 && l.now().Sub(w.windowStart) >= l.config.WindowDuration {
		w.attempts = 0
		w.windowStart = time.Time{}
	}
	return w
}

// Attempt records one attempt in the class window. The first attempt of a
// window stamps the window start. Returns ErrRateLimited once the count
// exceeds the class budget.
func (l *Limiter) Attempt(class Class) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.expireLocked(class)
	if w.attempts == 0 {
		w.windowStart = l.now()
	}
	w.attempts++
	if w.attempts > l.budget(class) {
		// Keep the counter clamped so remaining-attempt math stays sane.
		w.attempts = l.budget(class)
		return ErrRateLimited
	}
	return nil
}

// IsLimited reports whether the class budget is exhausted within a live
// window. A lapsed window is reset before the check.
func (l *Limiter) IsLimited(class Class) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.expireLocked(class)
	return w.attempts >= l.budget(class)
}

// Remaining returns max(0, budget - attempts) for the class.
func (l *Limiter) Remaining(class Class) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.expireLocked(class)
	left := l.budget(class) - w.attempts
	if left < 0 {
		return 0
	}
	return left
}

// Reset clears the class window. Called after a successful operation.
func (l *Limiter) Reset(class Class) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, class)
}
