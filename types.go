package authgate

import (
	"context"
	"io"

	"github.com/rs/zerolog"

	internalaudit "github.com/seralis/authgate/internal/audit"
	internalmetrics "github.com/seralis/authgate/internal/metrics"
	"github.com/seralis/authgate/session"
)

// Credentials are the primary login inputs.
type Credentials struct {
	Username string
	Password string
}

// TokenGrant is what the transport returns from a successful
// authentication step. When MFARequired is set, only MFAToken is
// populated and the access/refresh pair follows after VerifyMFA.
type TokenGrant struct {
	User           *session.User
	AccessToken    string
	RefreshToken   string
	MFARequired    bool
	MFAToken       string
	BiometricToken string
}

// LoginResult is returned by [Engine.Login] and [Engine.VerifyMFA].
type LoginResult struct {
	Status      session.Status
	MFARequired bool
}

// AuthTransport is the network collaborator for every suspension point
// in the engine. Implementations return the domain sentinels
// (ErrInvalidCredentials, ErrMFAInvalid) when the server rejected the
// request; any other error is treated as a transport failure.
type AuthTransport interface {
	Login(ctx context.Context, creds Credentials) (*TokenGrant, error)
	VerifyMFA(ctx context.Context, code, mfaToken string) (*TokenGrant, error)
	VerifyBiometric(ctx context.Context, biometricToken string, result BiometricResult) (*TokenGrant, error)
	RefreshToken(ctx context.Context, refreshToken string) (*TokenGrant, error)
	Logout(ctx context.Context) error
}

// BiometricResult is the platform collaborator's verdict.
type BiometricResult struct {
	Success bool
	Method  string
}

// BiometricProvider abstracts the platform biometric SDK.
type BiometricProvider interface {
	IsAvailable() bool
	Authenticate(ctx context.Context, reason string) (BiometricResult, error)
}

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] writing one JSON event per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// ZerologSink is an [AuditSink] that logs structured zerolog records.
type ZerologSink = internalaudit.ZerologSink

// RedisStreamSink is an [AuditSink] appending to a Redis stream.
type RedisStreamSink = internalaudit.RedisStreamSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewZerologSink creates a [ZerologSink] writing through logger.
func NewZerologSink(logger zerolog.Logger) *ZerologSink {
	return internalaudit.NewZerologSink(logger)
}

// MetricID identifies a counter in the in-process metrics system.
type MetricID = internalmetrics.ID

const (
	// MetricLoginSuccess counts completed credential logins.
	MetricLoginSuccess = internalmetrics.LoginSuccess
	// MetricLoginFailure counts rejected credential logins.
	MetricLoginFailure = internalmetrics.LoginFailure
	// MetricLoginRateLimited counts logins blocked by the device window.
	MetricLoginRateLimited = internalmetrics.LoginRateLimited
	// MetricAccountLocked counts logins blocked by the identity lockout.
	MetricAccountLocked = internalmetrics.AccountLocked
	// MetricMFARequired counts logins escalated to a second factor.
	MetricMFARequired = internalmetrics.MFARequired
	// MetricMFASuccess counts confirmed MFA verifications.
	MetricMFASuccess = internalmetrics.MFASuccess
	// MetricMFAFailure counts rejected MFA codes.
	MetricMFAFailure = internalmetrics.MFAFailure
	// MetricBiometricSuccess counts completed biometric verifications.
	MetricBiometricSuccess = internalmetrics.BiometricSuccess
	// MetricBiometricFailure counts failed biometric attempts.
	MetricBiometricFailure = internalmetrics.BiometricFailure
	// MetricRefreshSuccess counts completed token refreshes.
	MetricRefreshSuccess = internalmetrics.RefreshSuccess
	// MetricRefreshFailure counts refresh failures.
	MetricRefreshFailure = internalmetrics.RefreshFailure
	// MetricLogout counts explicit logouts.
	MetricLogout = internalmetrics.Logout
	// MetricIdleTimeout counts sessions ended by inactivity.
	MetricIdleTimeout = internalmetrics.IdleTimeout
	// MetricSessionExpired counts invariant-forced session expiries.
	MetricSessionExpired = internalmetrics.SessionExpired
	// MetricSecurityViolation counts violation signals applied.
	MetricSecurityViolation = internalmetrics.SecurityViolation
	// MetricNavigationAllowed counts permitted route transitions.
	MetricNavigationAllowed = internalmetrics.NavigationAllowed
	// MetricNavigationDenied counts guard denials.
	MetricNavigationDenied = internalmetrics.NavigationDenied
	// MetricNavigationThrottled counts throttled navigations.
	MetricNavigationThrottled = internalmetrics.NavigationThrottled
	// MetricOfflineEnqueued counts items parked in the offline queue.
	MetricOfflineEnqueued = internalmetrics.OfflineEnqueued
)

// Metrics holds the engine's atomic counters.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot = internalmetrics.Snapshot
