package session

import (
	"sync"
	"time"
)

// Store owns the current session value. It is created once, injected into
// the engine, and treated as the single source of truth; the engine is the
// only component that calls [Store.Update] or [Store.Reset].
type Store struct {
	mu   sync.RWMutex
	sess Session
}

// NewStore creates a store holding an idle session.
func NewStore() *Store {
	return &Store{
		sess: Session{Status: StatusIdle, AuthMethod: AuthMethodNone},
	}
}

// Update applies fn to the session under the write lock. fn must not
// retain the pointer past the call.
func (s *Store) Update(fn func(*Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.sess)
}

// Reset clears the whole session atomically and records the given
// terminal status and error. Token, user, and MFA material are never
// partially cleared: the only mutation a reset performs is a full
// replacement of the session value.
func (s *Store) Reset(status Status, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess = Session{
		Status:     status,
		AuthMethod: AuthMethodNone,
		Err:        err,
	}
}

// View returns a copy of the current session. Pointer fields are
// duplicated so callers cannot mutate stored state.
func (s *Store) View() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSession(s.sess)
}

// Snapshot returns the immutable read view consumed by navigation
// authorization.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Status:         s.sess.Status,
		AuthMethod:     s.sess.AuthMethod,
		LastVerifiedAt: s.sess.Context.LastVerifiedAt,
		LastActivity:   s.sess.LastActivity,
	}
	if s.sess.User != nil {
		u := *s.sess.User
		snap.User = &u
	}
	if s.sess.AccessToken != nil {
		snap.AccessExpiresAt = s.sess.AccessToken.ExpiresAt
	}
	return snap
}

// Status returns the current lifecycle state.
func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sess.Status
}

// LastActivity returns the time of the most recent user activity signal.
func (s *Store) LastActivity() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sess.LastActivity
}

func cloneSession(in Session) Session {
	out := in
	if in.User != nil {
		u := *in.User
		out.User = &u
	}
	if in.AccessToken != nil {
		t := *in.AccessToken
		out.AccessToken = &t
	}
	return out
}
