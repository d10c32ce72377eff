// Package session defines the authentication session value, its security
// context, and the single-writer store that owns the current session.
//
// # Architecture boundaries
//
// The store is an explicitly constructed instance injected into the engine;
// there is no package-level session state. The engine is the sole writer:
// all mutation goes through [Store.Update] and [Store.Reset], and readers
// only ever observe a complete session value, never a partial update.
//
// # What this package must NOT do
//
//   - Perform I/O or talk to the transport.
//   - Import the root package or any sibling package.
//   - Expose mutable references to the stored session.
package session
