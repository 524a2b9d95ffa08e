// Package goGrant issues and verifies stateless grant tokens: signed tokens asserting
// that the bearer may perform one action on one target until an expiry time.
//
// The pure engine lives in package token; this package wraps it for services. [Engine]
// returns every create and verify outcome as an [envelope.Envelope], draws signing and
// candidate keys from a [keyring.Source], counts outcomes in lock-free [Metrics], and
// emits audit events through an async dispatcher.
//
// Engine methods are safe to call from multiple goroutines after [Builder.Build].
//
// # Architecture boundaries
//
// goGrant is the public surface. It exposes [Engine], [Builder], [Config] and value
// types (MetricsSnapshot, AuditEvent). Audit dispatch, metric storage and rate limiting
// live under internal/.
//
// # What this package must NOT do
//
//   - Log. Outcomes are reported through envelopes, metrics and audit events.
//   - Put secrets or token strings into audit events.
//   - Downgrade an engine error to a success envelope.
package goGrant
