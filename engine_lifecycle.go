package authgate

import (
	"context"
	"fmt"

	internalmetrics "github.com/seralis/authgate/internal/metrics"
	"github.com/seralis/authgate/queue"
	"github.com/seralis/authgate/session"
)

// onRefreshDue runs on the lifecycle timer goroutine when the access
// token reaches the refresh point. A failed or impossible refresh ends
// the session rather than leaving a token to expire mid-use.
func (e *Engine) onRefreshDue() {
	ctx, cancel := context.WithTimeout(context.Background(), e.config.Session.CallTimeout)
	defer cancel()

	e.mu.Lock()
	view := e.store.View()
	if view.Status != session.StatusAuthenticated {
		e.mu.Unlock()
		return
	}
	e.store.Update(func(s *session.Session) {
		s.Status = session.StatusTokenRefreshRequired
	})
	e.mu.Unlock()

	if view.RefreshToken == "" {
		e.refreshFailed(ctx, ErrTokenExpired)
		return
	}

	grant, err := e.transport.RefreshToken(ctx, view.RefreshToken)

	e.mu.Lock()
	if e.store.Status() != session.StatusTokenRefreshRequired {
		e.mu.Unlock()
		return
	}

	if err == nil {
		err = e.installRefreshedLocked(grant)
	}
	if err != nil {
		e.mu.Unlock()
		e.refreshFailed(ctx, err)
		return
	}

	e.metrics.Inc(internalmetrics.RefreshSuccess)
	e.emitAudit(ctx, "token_refresh", true, nil, nil)
	e.mu.Unlock()
}

// installRefreshedLocked rotates the token pair in place. Unlike a full
// login, a refresh is not a verification step: LastVerifiedAt and the
// auth method are preserved, and the idle deadline keeps running.
func (e *Engine) installRefreshedLocked(grant *TokenGrant) error {
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
		s.Status = session.StatusAuthenticated
		s.AccessToken = &session.Token{Value: grant.AccessToken, ExpiresAt: expiresAt}
		if grant.RefreshToken != "" {
			s.RefreshToken = grant.RefreshToken
		}
		s.Err = nil
	})
	e.lifecycle.Rearm(expiresAt.Sub(now))
	return nil
}

func (e *Engine) refreshFailed(ctx context.Context, cause error) {
	e.mu.Lock()
	view := e.store.View()
	e.lifecycle.Cancel()
	e.store.Reset(session.StatusSessionExpired, ErrTokenExpired)
	e.mu.Unlock()

	e.metrics.Inc(internalmetrics.RefreshFailure)
	e.metrics.Inc(internalmetrics.SessionExpired)
	e.logger.Warn().Err(cause).Msg("token refresh failed; session ended")
	e.emitAuditFor(ctx, "token_refresh", false, view, cause, nil)
}

// onIdleExpired runs on the lifecycle timer goroutine after the idle
// timeout elapses without activity. Local state is cleared first; the
// server-side logout is best-effort and parked offline on failure.
func (e *Engine) onIdleExpired() {
	ctx, cancel := context.WithTimeout(context.Background(), e.config.Session.CallTimeout)
	defer cancel()

	e.mu.Lock()
	view := e.store.View()
	st := view.Status
	if st != session.StatusAuthenticated && st != session.StatusTokenRefreshRequired {
		e.mu.Unlock()
		return
	}
	e.lifecycle.Cancel()
	e.store.Reset(session.StatusSessionExpired, nil)
	e.mu.Unlock()

	e.metrics.Inc(internalmetrics.IdleTimeout)
	e.emitAuditFor(ctx, "idle_timeout", false, view, nil, nil)

	if err := e.transport.Logout(ctx); err != nil {
		e.logger.Warn().Err(err).Msg("best-effort logout after idle timeout failed")
		e.parkLogout(ctx, view)
	}
}

// Logout ends the session. Local state is cleared unconditionally
// before the transport call, so the caller is logged out even when the
// server is unreachable; in that case the revocation is queued offline
// and the transport error is returned for visibility.
func (e *Engine) Logout(ctx context.Context) error {
	if e == nil {
		return ErrEngineNotReady
	}

	e.mu.Lock()
	view := e.store.View()
	if view.Status == session.StatusIdle {
		e.mu.Unlock()
		return nil
	}
	e.lifecycle.Cancel()
	e.store.Reset(session.StatusIdle, nil)
	e.mu.Unlock()

	e.metrics.Inc(internalmetrics.Logout)
	e.emitAuditFor(ctx, "logout", true, view, nil, nil)

	if err := e.transport.Logout(ctx); err != nil {
		e.logger.Warn().Err(err).Msg("server logout failed; revocation queued")
		e.parkLogout(ctx, view)
		return fmt.Errorf("%w: %v", ErrTransportUnavailable, err)
	}
	return nil
}

func (e *Engine) parkLogout(ctx context.Context, view session.Session) {
	if e.offline == nil {
		return
	}
	item := queue.Item{
		Kind:      "logout",
		CreatedAt: e.now(),
	}
	if view.User != nil {
		item.UserID = view.User.ID
	}
	if err := e.offline.Enqueue(ctx, item); err != nil {
		e.logger.Error().Err(err).Msg("offline queue unavailable; logout revocation dropped")
		return
	}
	e.metrics.Inc(internalmetrics.OfflineEnqueued)
}

// FlushOfflineQueue replays parked operations against the transport.
// Items that fail to replay are re-queued and the first transport error
// is returned.
func (e *Engine) FlushOfflineQueue(ctx context.Context) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if e.offline == nil {
		return nil
	}

	items, err := e.offline.Drain(ctx)
	if err != nil {
		return err
	}

	for i, item := range items {
		var replayErr error
		switch item.Kind {
		case "logout":
			replayErr = e.transport.Logout(ctx)
		default:
			e.logger.Warn().Str("kind", item.Kind).Msg("unknown offline item dropped")
			continue
		}
		if replayErr != nil {
			for _, rest := range items[i:] {
				if qErr := e.offline.Enqueue(ctx, rest); qErr != nil {
					e.logger.Error().Err(qErr).Msg("offline re-queue failed; item dropped")
				}
			}
			return fmt.Errorf("%w: %v", ErrTransportUnavailable, replayErr)
		}
	}
	return nil
}
