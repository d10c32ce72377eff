package session

import "time"

// Status is the authentication lifecycle state of the session.
type Status uint8

const (
	// StatusIdle is the initial state and the reset target for logout,
	// expiry, and security violations.
	StatusIdle Status = iota
	// StatusAuthenticating is set while a login call is in flight.
	StatusAuthenticating
	// StatusAuthenticated means a live access token and fresh verification.
	StatusAuthenticated
	// StatusMFARequired means primary credentials passed and a second
	// factor is pending.
	StatusMFARequired
	// StatusBiometricRequired means a biometric step-up has been requested.
	StatusBiometricRequired
	// StatusTokenRefreshRequired means the access token is near expiry and
	// a refresh is in flight.
	StatusTokenRefreshRequired
	// StatusSessionExpired means the session lapsed through idle timeout,
	// token expiry, or verification staleness.
	StatusSessionExpired
	// StatusSecurityViolation means a violation signal cleared the session.
	StatusSecurityViolation
	// StatusError means the last operation failed terminally for this attempt.
	StatusError
)

var statusNames = map[Status]string{
	StatusIdle:                 "idle",
	StatusAuthenticating:       "authenticating",
	StatusAuthenticated:        "authenticated",
	StatusMFARequired:          "mfa_required",
	StatusBiometricRequired:    "biometric_required",
	StatusTokenRefreshRequired: "token_refresh_required",
	StatusSessionExpired:       "session_expired",
	StatusSecurityViolation:    "security_violation",
	StatusError:                "error",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

// AuthMethod records how the current session was last verified.
type AuthMethod uint8

const (
	// AuthMethodNone is an unauthenticated session.
	AuthMethodNone AuthMethod = iota
	// AuthMethodPassword is primary-credential verification only.
	AuthMethodPassword
	// AuthMethodMFA is password plus a confirmed second factor.
	AuthMethodMFA
	// AuthMethodBiometric is a completed biometric verification.
	AuthMethodBiometric
)

func (m AuthMethod) String() string {
	switch m {
	case AuthMethodPassword:
		return "password"
	case AuthMethodMFA:
		return "mfa"
	case AuthMethodBiometric:
		return "biometric"
	default:
		return "none"
	}
}

// Role is a coarse access role carried on the user record and matched
// against route permission tables.
type Role string

// RoleAll matches any authenticated user in a route permission entry.
const RoleAll Role = "ALL"

// User is the authenticated principal attached to the session.
type User struct {
	ID   string
	Name string
	Role Role
}

// Token is an access token together with its parsed expiry.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Live reports whether the token exists and has not expired at now.
func (t *Token) Live(now time.Time) bool {
	return t != nil && t.Value != "" && now.Before(t.ExpiresAt)
}

// Session is the full authentication session value. It is owned by the
// store and mutated exclusively through engine transitions.
type Session struct {
	Status         Status
	User           *User
	AccessToken    *Token
	RefreshToken   string
	MFAToken       string
	BiometricToken string
	LastActivity   time.Time
	Context        SecurityContext
	AuthMethod     AuthMethod
	Err            error
}

// Snapshot is the immutable read view handed to navigation authorization
// and other observers. It carries only what a guard needs to decide.
type Snapshot struct {
	Status          Status
	User            *User
	AuthMethod      AuthMethod
	LastVerifiedAt  time.Time
	AccessExpiresAt time.Time
	LastActivity    time.Time
}

// Authenticated reports whether the snapshot represents a logged-in user.
func (s Snapshot) Authenticated() bool {
	return s.Status == StatusAuthenticated && s.User != nil
}

// VerifiedWithin reports whether the last verification step happened less
// than window ago.
func (s Snapshot) VerifiedWithin(window time.Duration, now time.Time) bool {
	if s.LastVerifiedAt.IsZero() {
		return false
	}
	return now.Sub(s.LastVerifiedAt) < window
}
