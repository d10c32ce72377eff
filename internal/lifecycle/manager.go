// Package lifecycle schedules the two spontaneous events of an
// authenticated session: proactive token refresh and idle timeout.
//
// # Design
//
// Both timers are armed together when the session becomes authenticated
// and cancelled together when it leaves that state. Every arm bumps a
// generation counter and every callback re-checks it under the lock, so a
// timer armed for a session that has since been reset can never fire into
// the new one. Idle detection uses a single reset-on-activity timer rather
// than polling elapsed time, which removes drift and double-fire races.
package lifecycle

import (
	"sync"
	"time"
)

// Manager owns the refresh and idle timers for one session.
type Manager struct {
	mu         sync.Mutex
	refreshFn  func()
	idleFn     func()
	ratio      float64
	idleAfter  time.Duration
	generation uint64
	refresh    *time.Timer
	idle       *time.Timer
}

// Config holds the timer tuning parameters.
type Config struct {
	// RefreshRatio is the fraction of token lifetime after which a
	// refresh fires, e.g. 0.93 refreshes a 15-minute token at 14 minutes.
	RefreshRatio float64
	// IdleTimeout is the inactivity duration after which the idle
	// callback fires.
	IdleTimeout time.Duration
}

// New creates a manager. onRefresh runs when the refresh deadline hits;
// onIdle runs after IdleTimeout without a Touch. Both run on timer
// goroutines and must not call back into Arm/Cancel synchronously while
// holding the caller's own engine lock ordering in reverse.
func New(cfg Config, onRefresh, onIdle func()) *Manager {
	if cfg.RefreshRatio <= 0 || cfg.RefreshRatio >= 1 {
		cfg.RefreshRatio = 0.93
	}
	return &Manager{
		refreshFn: onRefresh,
		idleFn:    onIdle,
		ratio:     cfg.RefreshRatio,
		idleAfter: cfg.IdleTimeout,
	}
}

// Arm starts both timers for a token with the given remaining lifetime,
// cancelling any previously armed pair first.
func (m *Manager) Arm(tokenLifetime time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cancelLocked()
	m.generation++
	gen := m.generation

	delay := time.Duration(float64(tokenLifetime) * m.ratio)
	if delay <= 0 {
		delay = time.Nanosecond
	}
	m.refresh = time.AfterFunc(delay, func() { m.fireRefresh(gen) })
	if m.idleAfter > 0 {
		m.idle = time.AfterFunc(m.idleAfter, func() { m.fireIdle(gen) })
	}
}

// Rearm restarts only the refresh timer for a freshly rotated token. The
// idle timer keeps its current deadline; refresh is not user activity.
func (m *Manager) Rearm(tokenLifetime time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.generation == 0 {
		return
	}
	if m.refresh != nil {
		m.refresh.Stop()
	}
	gen := m.generation
	delay := time.Duration(float64(tokenLifetime) * m.ratio)
	if delay <= 0 {
		delay = time.Nanosecond
	}
	m.refresh = time.AfterFunc(delay, func() { m.fireRefresh(gen) })
}

// Touch resets the idle countdown. A no-op when nothing is armed.
func (m *Manager) Touch() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.generation == 0 || m.idleAfter <= 0 {
		return
	}
	if m.idle != nil {
		m.idle.Stop()
	}
	gen := m.generation
	m.idle = time.AfterFunc(m.idleAfter, func() { m.fireIdle(gen) })
}

// Cancel synchronously stops both timers. After Cancel returns, no
// previously armed callback will run.
func (m *Manager) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelLocked()
}

func (m *Manager) cancelLocked() {
	// Bumping the generation invalidates callbacks already past Stop.
	m.generation++
	if m.refresh != nil {
		m.refresh.Stop()
		m.refresh = nil
	}
	if m.idle != nil {
		m.idle.Stop()
		m.idle = nil
	}
}

// Armed reports whether a timer pair is currently live.
func (m *Manager) Armed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refresh != nil || m.idle != nil
}

func (m *Manager) fireRefresh(gen uint64) {
	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return
	}
	fn := m.refreshFn
	m.mu.Unlock()

	if fn != nil {
		fn()
	}
}

func (m *Manager) fireIdle(gen uint64) {
	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return
	}
	fn := m.idleFn
	m.mu.Unlock()

	if fn != nil {
		fn()
	}
}
