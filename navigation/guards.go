package navigation

import (
	"time"

	"github.com/seralis/authgate/session"
)

// Reason names why a navigation attempt was not permitted.
type Reason string

const (
	// ReasonUnknownRoute means the route is not in the permission table.
	ReasonUnknownRoute Reason = "unknown_route"
	// ReasonAuthRequired means the route needs an authenticated session.
	ReasonAuthRequired Reason = "auth_required"
	// ReasonRoleDenied means the user's role is not in the allowed set.
	ReasonRoleDenied Reason = "role_denied"
	// ReasonMFARequired means a HIPAA route demands MFA or biometric
	// verification the session does not carry.
	ReasonMFARequired Reason = "mfa_required"
	// ReasonThrottled means the navigation flood throttle rejected the
	// call. Distinct from a permission denial.
	ReasonThrottled Reason = "throttled"
	// ReasonEmptyHistory means GoBack was called with no history.
	ReasonEmptyHistory Reason = "empty_history"
)

// Decision is the outcome of a navigation authorization check.
type Decision struct {
	Allowed bool
	Reason  Reason
	// Guard names the first failing guard for denials.
	Guard string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(guardName string, reason Reason) Decision {
	return Decision{Reason: reason, Guard: guardName}
}

// guard is one predicate in the fail-fast pipeline. Guards run in
// ascending priority order; the first denial wins and later guards are
// never evaluated, which also limits side-channel signal about what a
// later check would have said.
type guard interface {
	name() string
	check(perm RoutePermission, snap session.Snapshot, now time.Time) (Reason, bool)
}

// authGuard denies unauthenticated access to protected routes.
type authGuard struct{}

func (authGuard) name() string { return "AuthGuard" }

func (authGuard) check(perm RoutePermission, snap session.Snapshot, _ time.Time) (Reason, bool) {
	if perm.RequiresAuth && !snap.Authenticated() {
		return ReasonAuthRequired, false
	}
	return "", true
}

// roleGuard denies users outside the route's allowed role set.
type roleGuard struct{}

func (roleGuard) name() string { return "RoleGuard" }

func (roleGuard) check(perm RoutePermission, snap session.Snapshot, _ time.Time) (Reason, bool) {
	if len(perm.AllowedRoles) == 0 {
		return "", true
	}
	if snap.User == nil || !perm.roleAllowed(snap.User.Role) {
		return ReasonRoleDenied, false
	}
	return "", true
}

// hipaaGuard denies PHI routes that demand MFA when the session was only
// password-verified or the verification has gone stale.
type hipaaGuard struct {
	freshness time.Duration
}

func (hipaaGuard) name() string { return "HipaaGuard" }

func (g hipaaGuard) check(perm RoutePermission, snap session.Snapshot, now time.Time) (Reason, bool) {
	if !perm.HIPAACompliant || !perm.AccessRestrictions.MFARequired {
		return "", true
	}
	strong := snap.AuthMethod == session.AuthMethodMFA || snap.AuthMethod == session.AuthMethodBiometric
	if !strong || !snap.VerifiedWithin(g.freshness, now) {
		return ReasonMFARequired, false
	}
	return "", true
}
