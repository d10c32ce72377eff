package navigation

import (
	"context"
	"sync"
	"time"

	"github.com/seralis/authgate/internal/audit"
	"github.com/seralis/authgate/internal/metrics"
	"github.com/seralis/authgate/session"
)

// Config tunes the navigation authorizer.
type Config struct {
	// Throttle is the minimum interval between effecting navigations.
	Throttle time.Duration
	// FreshnessWindow bounds how old a verification may be for HIPAA
	// routes.
	FreshnessWindow time.Duration
	// MaxHistorySize bounds the back-navigation ring buffer.
	MaxHistorySize int
}

// SnapshotFunc supplies the current session snapshot. The engine's
// Snapshot method is the expected implementation; it performs the
// authenticated-invariant read repair before returning.
type SnapshotFunc func() session.Snapshot

// Engine evaluates route transitions against the permission table and the
// current session snapshot.
type Engine struct {
	table    *Table
	snapshot SnapshotFunc
	guards   []guard
	audit    *audit.Dispatcher
	metrics  *metrics.Metrics
	cfg      Config
	now      func() time.Time

	mu      sync.Mutex
	current State
	hist    *history
	lastNav time.Time
}

// NewEngine creates a navigation engine over a frozen table. dispatcher
// and m may be nil. now is injectable for tests; nil means time.Now.
func NewEngine(table *Table, snapshot SnapshotFunc, dispatcher *audit.Dispatcher, m *metrics.Metrics, cfg Config, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	if cfg.MaxHistorySize <= 0 {
		cfg.MaxHistorySize = 32
	}
	return &Engine{
		table:    table,
		snapshot: snapshot,
		guards: []guard{
			authGuard{},
			roleGuard{},
			hipaaGuard{freshness: cfg.FreshnessWindow},
		},
		audit:   dispatcher,
		metrics: m,
		cfg:     cfg,
		now:     now,
		hist:    newHistory(cfg.MaxHistorySize),
	}
}

// CanNavigate is the pure authorization predicate: no throttle, no
// history, no audit. Guards run in order and the first failure decides.
func (e *Engine) CanNavigate(route string) Decision {
	return e.evaluate(route, e.snapshot(), e.now())
}

func (e *Engine) evaluate(route string, snap session.Snapshot, now time.Time) Decision {
	perm, ok := e.table.Get(route)
	if !ok {
		// Closed table: a route nobody declared is nobody's to visit.
		return deny("AuthGuard", ReasonUnknownRoute)
	}
	for _, g := range e.guards {
		if reason, ok := g.check(perm, snap, now); !ok {
			return deny(g.name(), reason)
		}
	}
	return allow()
}

// Navigate re-validates the route, applies the flood throttle, and on
// success records the transition in the bounded history. An audit event
// is emitted for permitted and denied attempts alike.
func (e *Engine) Navigate(ctx context.Context, route string, params map[string]string) Decision {
	now := e.now()
	snap := e.snapshot()

	dec := e.evaluate(route, snap, now)
	if !dec.Allowed {
		e.metrics.Inc(metrics.NavigationDenied)
		e.emit(ctx, "navigation_denied", route, params, snap, dec, now)
		return dec
	}

	e.mu.Lock()
	if !e.lastNav.IsZero() && now.Sub(e.lastNav) < e.cfg.Throttle {
		e.mu.Unlock()
		dec = deny("", ReasonThrottled)
		e.metrics.Inc(metrics.NavigationThrottled)
		e.emit(ctx, "navigation_throttled", route, params, snap, dec, now)
		return dec
	}

	if e.current.CurrentRoute != "" {
		e.hist.push(e.current)
	}
	e.current = State{
		CurrentRoute:  route,
		PreviousRoute: e.current.CurrentRoute,
		Params:        params,
		Timestamp:     now,
	}
	e.lastNav = now
	e.mu.Unlock()

	e.metrics.Inc(metrics.NavigationAllowed)
	e.emit(ctx, "navigation_allowed", route, params, snap, dec, now)
	return dec
}

// GoBack pops the most recent history entry and re-validates it through
// the guard pipeline; a historical route never bypasses current-session
// authorization. On denial the entry stays consumed and the position is
// unchanged.
func (e *Engine) GoBack(ctx context.Context) Decision {
	now := e.now()
	snap := e.snapshot()

	e.mu.Lock()
	prior, ok := e.hist.pop()
	e.mu.Unlock()
	if !ok {
		return deny("", ReasonEmptyHistory)
	}

	dec := e.evaluate(prior.CurrentRoute, snap, now)
	if !dec.Allowed {
		e.metrics.Inc(metrics.NavigationDenied)
		e.emit(ctx, "navigation_back_denied", prior.CurrentRoute, prior.Params, snap, dec, now)
		return dec
	}

	e.mu.Lock()
	restored := prior
	restored.Timestamp = now
	e.current = restored
	e.lastNav = now
	e.mu.Unlock()

	e.metrics.Inc(metrics.NavigationAllowed)
	e.emit(ctx, "navigation_back", prior.CurrentRoute, prior.Params, snap, dec, now)
	return dec
}

// Current returns the present navigation position.
func (e *Engine) Current() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// HistoryLen returns the number of retained back entries.
func (e *Engine) HistoryLen() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hist.len()
}

func (e *Engine) emit(ctx context.Context, eventType, route string, params map[string]string, snap session.Snapshot, dec Decision, now time.Time) {
	if e.audit == nil {
		return
	}

	level := AuditBasic
	if perm, ok := e.table.Get(route); ok {
		level = perm.AuditLevel
	}

	event := audit.Event{
		EventID:   audit.NewEventID(),
		Timestamp: now,
		EventType: eventType,
		Route:     route,
		Success:   dec.Allowed,
		Guard:     dec.Guard,
	}
	if dec.Allowed {
		event.Decision = "allow"
	} else {
		event.Decision = "deny"
		event.Error = string(dec.Reason)
	}
	if level >= AuditBasic && snap.User != nil {
		event.UserID = snap.User.ID
	}
	if level >= AuditDetailed && len(params) > 0 {
		event.Metadata = params
	}
	e.audit.Emit(ctx, event)
}
