package authgate

import (
	"context"
	"errors"
	"fmt"

	internalmetrics "github.com/seralis/authgate/internal/metrics"
	"github.com/seralis/authgate/internal/rate"
	"github.com/seralis/authgate/session"
)

// VerifyMFA submits the second-factor code for a session parked in
// mfa_required. A rejected code keeps the session in mfa_required so
// the user can retry until the MFA attempt window is exhausted.
func (e *Engine) VerifyMFA(ctx context.Context, code string) (LoginResult, error) {
	if e == nil {
		return LoginResult{}, ErrEngineNotReady
	}

	e.mu.Lock()
	view := e.store.View()
	if view.Status != session.StatusMFARequired {
		e.mu.Unlock()
		return LoginResult{Status: view.Status}, ErrInvalidState
	}
	if e.limiter.IsLimited(rate.ClassMFA) {
		e.mu.Unlock()
		e.metrics.Inc(internalmetrics.MFAFailure)
		e.emitAudit(ctx, "mfa_verify", false, ErrRateLimited, nil)
		return LoginResult{Status: session.StatusMFARequired, MFARequired: true}, ErrRateLimited
	}
	mfaToken := view.MFAToken
	e.mu.Unlock()

	grant, err := e.transport.VerifyMFA(ctx, code, mfaToken)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.store.Status() != session.StatusMFARequired {
		return LoginResult{Status: e.store.Status()}, ErrInvalidState
	}

	if err != nil {
		if errors.Is(err, ErrMFAInvalid) {
			_ = e.limiter.Attempt(rate.ClassMFA)
			e.metrics.Inc(internalmetrics.MFAFailure)
			e.store.Update(func(s *session.Session) {
				s.Err = ErrMFAInvalid
			})
			e.emitAudit(ctx, "mfa_verify", false, ErrMFAInvalid, nil)
			return LoginResult{Status: session.StatusMFARequired, MFARequired: true}, ErrMFAInvalid
		}

		wrapped := fmt.Errorf("%w: %v", ErrTransportUnavailable, err)
		e.store.Update(func(s *session.Session) {
			s.Err = wrapped
		})
		e.metrics.Inc(internalmetrics.MFAFailure)
		e.emitAudit(ctx, "mfa_verify", false, wrapped, nil)
		return LoginResult{Status: session.StatusMFARequired, MFARequired: true}, wrapped
	}

	if err := e.establishSessionLocked(grant, session.AuthMethodMFA, view.Context); err != nil {
		e.store.Update(func(s *session.Session) {
			s.Status = session.StatusError
			s.Err = err
		})
		e.metrics.Inc(internalmetrics.MFAFailure)
		e.emitAudit(ctx, "mfa_verify", false, err, nil)
		return LoginResult{Status: session.StatusError}, err
	}

	e.limiter.Reset(rate.ClassMFA)
	e.limiter.Reset(rate.ClassLogin)
	if view.User != nil {
		e.lockout.Reset(view.User.ID)
	}
	e.metrics.Inc(internalmetrics.MFASuccess)
	e.emitAudit(ctx, "mfa_verify", true, nil, nil)
	return LoginResult{Status: session.StatusAuthenticated}, nil
}
