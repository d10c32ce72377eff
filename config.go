package authgate

import (
	"errors"
	"time"
)

// Config defines the engine tuning parameters. Instances are configured
// during initialization and treated as immutable after Build.
type Config struct {
	JWT        JWTConfig
	Session    SessionConfig
	Security   SecurityConfig
	Navigation NavigationConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
}

// JWTConfig holds access token verification parameters.
type JWTConfig struct {
	SigningMethod string // "ed25519" (default), "hs256" optional
	Key           []byte
	Issuer        string
	Leeway        time.Duration
}

// SessionConfig holds the session lifecycle timings.
type SessionConfig struct {
	// FreshnessWindow bounds the age of the last verification step for
	// an authenticated session.
	FreshnessWindow time.Duration
	// IdleTimeout ends the session after this much inactivity.
	IdleTimeout time.Duration
	// RefreshRatio is the fraction of token lifetime at which the
	// proactive refresh fires.
	RefreshRatio float64
	// CallTimeout caps timer-driven transport calls (refresh, the
	// best-effort logout on idle expiry).
	CallTimeout time.Duration
}

// SecurityConfig holds the two independent lockout mechanisms: the
// device-scoped attempt windows and the identity-scoped failure counter.
type SecurityConfig struct {
	MaxLoginAttempts     int
	MaxMFAAttempts       int
	MaxBiometricAttempts int
	AttemptWindow        time.Duration
	LockoutThreshold     int
	LockoutDuration      time.Duration
}

// NavigationConfig holds the navigation authorizer knobs.
type NavigationConfig struct {
	Throttle       time.Duration
	MaxHistorySize int
}

// AuditConfig tunes the asynchronous audit pipeline.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig enables the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the reference deployment configuration: 1h
// freshness window, 15m idle timeout, refresh at 93% of token lifetime,
// 5 login / 3 MFA / 3 biometric attempts per 15m window, lockout after
// 3 identity failures, 1s navigation throttle.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			SigningMethod: "ed25519",
		},
		Session: SessionConfig{
			FreshnessWindow: time.Hour,
			IdleTimeout:     15 * time.Minute,
			RefreshRatio:    0.93,
			CallTimeout:     10 * time.Second,
		},
		Security: SecurityConfig{
			MaxLoginAttempts:     5,
			MaxMFAAttempts:       3,
			MaxBiometricAttempts: 3,
			AttemptWindow:        15 * time.Minute,
			LockoutThreshold:     3,
			LockoutDuration:      30 * time.Minute,
		},
		Navigation: NavigationConfig{
			Throttle:       time.Second,
			MaxHistorySize: 32,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate rejects configurations the engine cannot run safely with.
func (c Config) Validate() error {
	if c.Session.FreshnessWindow <= 0 {
		return errors.New("Session.FreshnessWindow must be positive")
	}
	if c.Session.IdleTimeout < 0 {
		return errors.New("Session.IdleTimeout must not be negative")
	}
	if c.Session.RefreshRatio <= 0 || c.Session.RefreshRatio >= 1 {
		return errors.New("Session.RefreshRatio must be in (0, 1)")
	}
	if c.Security.MaxLoginAttempts <= 0 || c.Security.MaxMFAAttempts <= 0 || c.Security.MaxBiometricAttempts <= 0 {
		return errors.New("Security attempt budgets must be positive")
	}
	if c.Security.AttemptWindow <= 0 {
		return errors.New("Security.AttemptWindow must be positive")
	}
	if c.Security.LockoutThreshold <= 0 {
		return errors.New("Security.LockoutThreshold must be positive")
	}
	if c.Navigation.Throttle < 0 {
		return errors.New("Navigation.Throttle must not be negative")
	}
	if c.Navigation.MaxHistorySize < 0 {
		return errors.New("Navigation.MaxHistorySize must not be negative")
	}
	if c.Audit.Enabled && c.Audit.BufferSize < 0 {
		return errors.New("Audit.BufferSize must not be negative")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.Key = cloneBytes(cfg.JWT.Key)
	return out
}

func cloneBytes(in []byte) []byte {
	if in == nil {
		return nil
	}
	out := make([]byte, len(in))
	copy(out, in)
	return out
}
