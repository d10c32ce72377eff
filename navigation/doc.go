// Package navigation enforces per-route access control over the current
// session snapshot.
//
// # Architecture boundaries
//
// Authorization is a pure ordered guard pipeline (auth, role, hipaa) over
// a static route permission table loaded once at startup. The effecting
// Navigate operation adds a throttle, a bounded FIFO history for back
// navigation, and unconditional audit emission for allowed and denied
// attempts alike. Denials are decision values, never errors: callers are
// expected to redirect, not unwind.
//
// # What this package must NOT do
//
//   - Mutate the session. It only reads snapshots.
//   - Keep per-screen permission logic; every check lives in the pipeline.
//   - Accept table mutations after construction.
package navigation
