// Package audit defines the audit trail event model, the consumed sink
// interface, and the asynchronous dispatcher that feeds it.
//
// # Architecture boundaries
//
// The engine and the navigation authorizer emit events; delivery
// guarantees belong to the sink implementation. The dispatcher buffers
// events on a channel and never retries: a full buffer either blocks the
// emitter (default) or drops the event and counts it (DropIfFull).
//
// # What this package must NOT do
//
//   - Persist events itself beyond the channel buffer.
//   - Import the root package or session/navigation packages.
package audit
