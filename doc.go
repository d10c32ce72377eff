// Package authgate is a client-side authentication session and
// navigation authorization engine. It owns the full session lifecycle:
// credential login with device-scoped rate limiting and identity-scoped
// lockout, server-driven MFA, biometric step-up for sensitive access,
// proactive token refresh, idle timeout, and explicit logout with
// offline revocation queuing. A route permission table and a guard
// pipeline decide navigation, and every attempt feeds an asynchronous
// audit trail.
//
// Engines are assembled with a [Builder]:
//
//	engine, err := authgate.New().
//		WithTransport(transport).
//		WithRoutes(routes).
//		WithConfig(cfg).
//		Build()
//
// The engine is the only writer of session state; callers observe it
// through [Engine.Snapshot] and authorize transitions through
// [Engine.Navigation].
package authgate
