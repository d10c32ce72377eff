package authgate

import "errors"

var (
	// ErrEngineNotReady indicates the engine was used before Build completed.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrInvalidCredentials indicates the transport rejected the supplied credentials.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked indicates the identity-scoped failure threshold was reached.
	ErrAccountLocked = errors.New("account locked")
	// ErrRateLimited indicates the device-scoped attempt window is exhausted.
	ErrRateLimited = errors.New("rate limited")
	// ErrTokenInvalid indicates a malformed or unverifiable access token.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired indicates the access token is past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrMFARequired indicates the login needs a second factor to complete.
	ErrMFARequired = errors.New("mfa required")
	// ErrMFAInvalid indicates the MFA code or challenge token did not match.
	ErrMFAInvalid = errors.New("mfa code invalid")
	// ErrBiometricUnavailable indicates no usable biometric capability or token.
	ErrBiometricUnavailable = errors.New("biometric authentication unavailable")
	// ErrBiometricRejected indicates the platform biometric check did not succeed.
	ErrBiometricRejected = errors.New("biometric authentication rejected")
	// ErrSecurityViolation indicates a violation signal cleared the session.
	ErrSecurityViolation = errors.New("security violation")
	// ErrTransportUnavailable indicates the auth transport failed for non-domain reasons.
	ErrTransportUnavailable = errors.New("auth transport unavailable")
	// ErrLoginInFlight indicates another login attempt is already awaiting the transport.
	ErrLoginInFlight = errors.New("login already in flight")
	// ErrInvalidState indicates the operation is not valid in the current session state.
	ErrInvalidState = errors.New("operation invalid in current session state")
)

// ViolationType classifies a security violation signal.
type ViolationType string

const (
	// ViolationIPChange is a network identity change mid-session.
	ViolationIPChange ViolationType = "ip_change"
	// ViolationDeviceChange is a device identity change mid-session.
	ViolationDeviceChange ViolationType = "device_change"
	// ViolationSuspiciousActivity is a caller-detected anomaly.
	ViolationSuspiciousActivity ViolationType = "suspicious_activity"
)

// SecurityViolation carries the trigger preserved in the session error
// after a violation transition.
type SecurityViolation struct {
	Type    ViolationType
	Details string
}

// Error implements error.
func (v *SecurityViolation) Error() string {
	if v.Details == "" {
		return "security violation: " + string(v.Type)
	}
	return "security violation: " + string(v.Type) + ": " + v.Details
}

// Is matches ErrSecurityViolation so callers can test with errors.Is.
func (v *SecurityViolation) Is(target error) bool {
	return target == ErrSecurityViolation
}
