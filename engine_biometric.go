package authgate

import (
	"context"
	"errors"
	"fmt"

	internalmetrics "github.com/seralis/authgate/internal/metrics"
	"github.com/seralis/authgate/internal/rate"
	"github.com/seralis/authgate/session"
)

// RequireBiometricStepUp parks an authenticated session in
// biometric_required, typically ahead of a sensitive route. It fails
// with ErrMFARequired while a second factor is still pending, and with
// ErrBiometricUnavailable when the platform has no biometric capability
// or the server never issued a biometric challenge token.
func (e *Engine) RequireBiometricStepUp(ctx context.Context) error {
	if e == nil {
		return ErrEngineNotReady
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	view := e.store.View()
	if view.Status == session.StatusMFARequired {
		return ErrMFARequired
	}
	if view.Status != session.StatusAuthenticated {
		return ErrInvalidState
	}
	if e.biometrics == nil || !e.biometrics.IsAvailable() || view.BiometricToken == "" {
		return ErrBiometricUnavailable
	}

	e.store.Update(func(s *session.Session) {
		s.Status = session.StatusBiometricRequired
		s.Err = nil
	})
	e.emitAudit(ctx, "biometric_required", true, nil, nil)
	return nil
}

// AuthenticateWithBiometrics runs the platform biometric prompt and
// confirms the result with the server. On success the session returns
// to authenticated with a fresh verification timestamp and the
// biometric auth method, which satisfies sensitive-route guards.
func (e *Engine) AuthenticateWithBiometrics(ctx context.Context, reason string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	e.mu.Lock()
	view := e.store.View()
	if view.Status != session.StatusBiometricRequired {
		e.mu.Unlock()
		return ErrInvalidState
	}
	if e.biometrics == nil || !e.biometrics.IsAvailable() || view.BiometricToken == "" {
		e.mu.Unlock()
		return ErrBiometricUnavailable
	}
	if e.limiter.IsLimited(rate.ClassBiometric) {
		e.mu.Unlock()
		e.metrics.Inc(internalmetrics.BiometricFailure)
		e.emitAudit(ctx, "biometric_verify", false, ErrRateLimited, nil)
		return ErrRateLimited
	}
	e.mu.Unlock()

	result, promptErr := e.biometrics.Authenticate(ctx, reason)
	if promptErr != nil || !result.Success {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.store.Status() != session.StatusBiometricRequired {
			return ErrInvalidState
		}
		_ = e.limiter.Attempt(rate.ClassBiometric)
		e.metrics.Inc(internalmetrics.BiometricFailure)
		e.store.Update(func(s *session.Session) {
			s.Err = ErrBiometricRejected
		})
		e.emitAudit(ctx, "biometric_verify", false, ErrBiometricRejected, nil)
		return ErrBiometricRejected
	}

	grant, err := e.transport.VerifyBiometric(ctx, view.BiometricToken, result)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.store.Status() != session.StatusBiometricRequired {
		return ErrInvalidState
	}

	if err != nil {
		if errors.Is(err, ErrBiometricRejected) || errors.Is(err, ErrTokenInvalid) {
			_ = e.limiter.Attempt(rate.ClassBiometric)
			e.metrics.Inc(internalmetrics.BiometricFailure)
			e.store.Update(func(s *session.Session) {
				s.Err = ErrBiometricRejected
			})
			e.emitAudit(ctx, "biometric_verify", false, ErrBiometricRejected, nil)
			return ErrBiometricRejected
		}

		wrapped := fmt.Errorf("%w: %v", ErrTransportUnavailable, err)
		e.store.Update(func(s *session.Session) {
			s.Err = wrapped
		})
		e.metrics.Inc(internalmetrics.BiometricFailure)
		e.emitAudit(ctx, "biometric_verify", false, wrapped, nil)
		return wrapped
	}

	if err := e.establishSessionLocked(grant, session.AuthMethodBiometric, view.Context); err != nil {
		e.store.Update(func(s *session.Session) {
			s.Status = session.StatusError
			s.Err = err
		})
		e.metrics.Inc(internalmetrics.BiometricFailure)
		e.emitAudit(ctx, "biometric_verify", false, err, nil)
		return err
	}

	e.limiter.Reset(rate.ClassBiometric)
	e.metrics.Inc(internalmetrics.BiometricSuccess)
	e.emitAudit(ctx, "biometric_verify", true, nil, map[string]string{"method": result.Method})
	return nil
}
