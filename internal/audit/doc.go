// Package audit implements async event dispatching for token operations.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, zap, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full / block-if-full semantics.
//   - [Event]: structured audit record with timestamp, type, grant, algorithm, token
//     and key ids.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide which events
// to emit; that belongs to the Engine.
//
// # What this package must NOT do
//
//   - Record secrets or token strings.
//   - Import goGrant or any sibling internal package.
//   - Perform network I/O beyond what a caller-supplied Sink does.
package audit
