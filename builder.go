package authgate

import (
	"errors"
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

// Builder assembles an [Engine]. Construction is allocation-only; no I/O
// happens until engine operations are called.
type Builder struct {
	config Config

	transport  AuthTransport
	biometrics BiometricProvider
	auditSink  AuditSink
	routes     *navigation.Table
	offline    queue.Store
	logger     zerolog.Logger
	now        func() time.Time

	built bool
}

// New creates a builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
		logger: zerolog.Nop(),
	}
}

// WithConfig replaces the full configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithTransport sets the auth transport collaborator. Required.
func (b *Builder) WithTransport(t AuthTransport) *Builder {
	b.transport = t
	return b
}

// WithBiometricProvider sets the platform biometric collaborator.
func (b *Builder) WithBiometricProvider(p BiometricProvider) *Builder {
	b.biometrics = p
	return b
}

// WithAuditSink sets the audit trail collaborator.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithRouteTable sets the frozen route permission table. Required.
func (b *Builder) WithRouteTable(table *navigation.Table) *Builder {
	b.routes = table
	return b
}

// WithRoutes builds the route table from entries.
func (b *Builder) WithRoutes(entries []navigation.RoutePermission) *Builder {
	table, err := navigation.NewTable(entries)
	if err != nil {
		// Surfaced from Build; builder methods stay chainable.
		b.routes = nil
		return b
	}
	b.routes = table
	return b
}

// WithOfflineQueue sets the optional offline operation store.
func (b *Builder) WithOfflineQueue(store queue.Store) *Builder {
	b.offline = store
	return b
}

// WithLogger sets the structured logger for best-effort failure paths.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock injects the time source. Tests use this to drive the
// freshness and window checks deterministically.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build validates the configuration and wires the engine. A builder can
// be used once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.transport == nil {
		return nil, errors.New("auth transport required")
	}
	if b.routes == nil {
		return nil, errors.New("route permission table required")
	}
	if len(cfg.JWT.Key) == 0 {
		return nil, errors.New("JWT key material required")
	}

	now := b.now
	if now == nil {
		now = time.Now
	}

	tokens, err := jwt.NewManager(jwt.Config{
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		Key:           cloneBytes(cfg.JWT.Key),
		Issuer:        cfg.JWT.Issuer,
		Leeway:        cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:     cfg,
		store:      session.NewStore(),
		transport:  b.transport,
		biometrics: b.biometrics,
		offline:    b.offline,
		tokens:     tokens,
		logger:     b.logger,
		now:        now,
	}

	engine.limiter = rate.New(rate.Config{
		MaxLoginAttempts:     cfg.Security.MaxLoginAttempts,
		MaxMFAAttempts:       cfg.Security.MaxMFAAttempts,
		MaxBiometricAttempts: cfg.Security.MaxBiometricAttempts,
		WindowDuration:       cfg.Security.AttemptWindow,
	}, now)
	engine.lockout = lockout.New(lockout.Config{
		Threshold: cfg.Security.LockoutThreshold,
		Duration:  cfg.Security.LockoutDuration,
	}, now)
	engine.audit = internalaudit.NewDispatcher(internalaudit.DispatcherConfig{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)
	engine.metrics = internalmetrics.New(cfg.Metrics.Enabled)
	engine.lifecycle = lifecycle.New(lifecycle.Config{
		RefreshRatio: cfg.Session.RefreshRatio,
		IdleTimeout:  cfg.Session.IdleTimeout,
	}, engine.onRefreshDue, engine.onIdleExpired)
	engine.nav = navigation.NewEngine(
		b.routes,
		engine.Snapshot,
		engine.audit,
		engine.metrics,
		navigation.Config{
			Throttle:        cfg.Navigation.Throttle,
			FreshnessWindow: cfg.Session.FreshnessWindow,
			MaxHistorySize:  cfg.Navigation.MaxHistorySize,
		},
		now,
	)

	b.built = true

	return engine, nil
}
