// Package rate implements the device-scoped fixed-window attempt limiter
// used to gate login, MFA, and biometric operations.
//
// # Design
//
// Each operation class owns an independent window: a counter plus the time
// the window opened. Attempt increments the counter; once it reaches the
// class budget the window is locked until it lapses, at which point the
// next attempt resets the counter to 1 with a fresh window start. The reset
// is performed atomically on read, so callers never observe a stale locked
// window after its duration has elapsed.
//
// # What this package must NOT do
//
//   - Track per-user identity. Identity-scoped lockout lives in
//     internal/lockout and is deliberately independent.
//   - Perform I/O. The limiter is local to the device running the engine.
package rate
