// Package jwt wraps token parsing and issuance for the session engine.
//
// The engine consumes tokens issued by the auth transport; this package
// verifies their signature, extracts the expiry that drives the refresh
// timer, and distinguishes expired from malformed tokens. CreateAccess
// exists for transport fakes and tests.
package jwt
