package authgate

import (
	"context"
	"errors"
	"fmt"

	internalmetrics "github.com/seralis/authgate/internal/metrics"
	"github.com/seralis/authgate/internal/rate"
	"github.com/seralis/authgate/session"
)

// Login performs credential authentication. Empty credentials are
// rejected locally; otherwise the device rate window and the identity
// lockout are both consulted before the transport is called, and a
// locked identity wins over an exhausted window. On a server-side MFA
// challenge the session parks in mfa_required and the access pair
// arrives through [Engine.VerifyMFA].
func (e *Engine) Login(ctx context.Context, creds Credentials) (LoginResult, error) {
	if e == nil {
		return LoginResult{}, ErrEngineNotReady
	}

	sc := e.securityContextFrom(ctx)

	// A blank username or password can never succeed, so it does not
	// get to spend the rate window or reach the transport.
	if creds.Username == "" || creds.Password == "" {
		e.metrics.Inc(internalmetrics.LoginFailure)
		e.emitLoginDenied(ctx, sc, creds.Username, ErrInvalidCredentials)
		return LoginResult{Status: e.store.Status()}, ErrInvalidCredentials
	}

	e.mu.Lock()
	if e.store.Status() == session.StatusAuthenticating {
		e.mu.Unlock()
		return LoginResult{Status: session.StatusAuthenticating}, ErrLoginInFlight
	}
	if e.lockout.IsLocked(creds.Username) {
		st := e.store.Status()
		e.mu.Unlock()
		e.metrics.Inc(internalmetrics.AccountLocked)
		e.emitLoginDenied(ctx, sc, creds.Username, ErrAccountLocked)
		return LoginResult{Status: st}, ErrAccountLocked
	}
	if e.limiter.IsLimited(rate.ClassLogin) {
		st := e.store.Status()
		e.mu.Unlock()
		e.metrics.Inc(internalmetrics.LoginRateLimited)
		e.emitLoginDenied(ctx, sc, creds.Username, ErrRateLimited)
		return LoginResult{Status: st}, ErrRateLimited
	}

	// A re-login over a live session abandons it: its timers must not
	// outlive the authenticated state they belong to.
	e.lifecycle.Cancel()

	now := e.now()
	e.store.Update(func(s *session.Session) {
		*s = session.Session{
			Status:       session.StatusAuthenticating,
			AuthMethod:   session.AuthMethodNone,
			Context:      sc,
			LastActivity: now,
		}
	})
	e.mu.Unlock()

	grant, err := e.transport.Login(ctx, creds)

	e.mu.Lock()
	defer e.mu.Unlock()

	// A violation or logout applied while the call was in flight wins;
	// the grant is discarded.
	if e.store.Status() != session.StatusAuthenticating {
		return LoginResult{Status: e.store.Status()}, ErrInvalidState
	}

	if err != nil {
		return e.loginFailedLocked(ctx, sc, creds.Username, err)
	}

	if grant.MFARequired {
		e.store.Update(func(s *session.Session) {
			*s = session.Session{
				Status:       session.StatusMFARequired,
				User:         grant.User,
				MFAToken:     grant.MFAToken,
				Context:      sc,
				AuthMethod:   session.AuthMethodNone,
				LastActivity: e.now(),
				Err:          ErrMFARequired,
			}
		})
		e.metrics.Inc(internalmetrics.MFARequired)
		e.emitAudit(ctx, "login", true, nil, map[string]string{"mfa_required": "true"})
		return LoginResult{Status: session.StatusMFARequired, MFARequired: true}, nil
	}

	if err := e.establishSessionLocked(grant, session.AuthMethodPassword, sc); err != nil {
		e.store.Update(func(s *session.Session) {
			s.Status = session.StatusError
			s.Err = err
		})
		e.metrics.Inc(internalmetrics.LoginFailure)
		e.emitAudit(ctx, "login", false, err, nil)
		return LoginResult{Status: session.StatusError}, err
	}

	e.limiter.Reset(rate.ClassLogin)
	e.lockout.Reset(creds.Username)
	e.metrics.Inc(internalmetrics.LoginSuccess)
	e.emitAudit(ctx, "login", true, nil, nil)
	return LoginResult{Status: session.StatusAuthenticated}, nil
}

func (e *Engine) loginFailedLocked(ctx context.Context, sc session.SecurityContext, identity string, err error) (LoginResult, error) {
	if errors.Is(err, ErrInvalidCredentials) {
		_ = e.limiter.Attempt(rate.ClassLogin)
		locked := e.lockout.RecordFailure(identity)
		e.metrics.Inc(internalmetrics.LoginFailure)

		outErr := ErrInvalidCredentials
		if locked {
			e.metrics.Inc(internalmetrics.AccountLocked)
			outErr = ErrAccountLocked
		}
		e.store.Update(func(s *session.Session) {
			*s = session.Session{
				Status:     session.StatusIdle,
				AuthMethod: session.AuthMethodNone,
				Context:    sc,
				Err:        outErr,
			}
		})
		e.emitAudit(ctx, "login", false, outErr, nil)
		return LoginResult{Status: session.StatusIdle}, outErr
	}

	wrapped := fmt.Errorf("%w: %v", ErrTransportUnavailable, err)
	e.store.Update(func(s *session.Session) {
		*s = session.Session{
			Status:     session.StatusError,
			AuthMethod: session.AuthMethodNone,
			Context:    sc,
			Err:        wrapped,
		}
	})
	e.metrics.Inc(internalmetrics.LoginFailure)
	e.emitAudit(ctx, "login", false, wrapped, nil)
	return LoginResult{Status: session.StatusError}, wrapped
}

// emitLoginDenied audits a pre-flight denial, which happens before the
// session carries any identity of its own.
func (e *Engine) emitLoginDenied(ctx context.Context, sc session.SecurityContext, identity string, cause error) {
	e.emitAuditFor(ctx, "login", false, session.Session{
		User:    &session.User{ID: identity},
		Context: sc,
	}, cause, nil)
}

// establishSessionLocked installs a full token grant as the live
// authenticated session and arms the lifecycle timers from the parsed
// token expiry. The caller holds e.mu.
func (e *Engine) establishSessionLocked(grant *TokenGrant, method session.AuthMethod, sc session.SecurityContext) error {
	if grant == nil || grant.AccessToken == "" {
		return ErrTokenInvalid
	}
	expiresAt, err := e.tokens.ExpiresAt(grant.AccessToken)
	if err != nil {
		return err
	}

	now := e.now()
	if !expiresAt.After(now) {
		return ErrTokenExpired
	}

	e.store.Update(func(s *session.Session) {
		*s = session.Session{
			Status:         session.StatusAuthenticated,
			User:           grant.User,
			AccessToken:    &session.Token{Value: grant.AccessToken, ExpiresAt: expiresAt},
			RefreshToken:   grant.RefreshToken,
			BiometricToken: grant.BiometricToken,
			LastActivity:   now,
			Context:        sc.Refreshed(now),
			AuthMethod:     method,
		}
	})
	e.lifecycle.Arm(expiresAt.Sub(now))
	return nil
}

// securityContextFrom builds the device fingerprint for this attempt
// from context values, minting a device ID when the platform did not
// supply one.
func (e *Engine) securityContextFrom(ctx context.Context) session.SecurityContext {
	deviceID := deviceIDFromContext(ctx)
	if deviceID == "" {
		deviceID = session.NewDeviceID()
	}
	return session.SecurityContext{
		DeviceID:  deviceID,
		IPAddress: clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
	}
}
