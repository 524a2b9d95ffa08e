// Package rate provides a Redis-backed fixed-window limiter on failed token
// verifications per client.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Keys are
// "<prefix>:<client>" with prefix "ggv" by default.
//
// # What this package must NOT do
//
//   - Count successful verifications.
//   - Be imported outside the goGrant module.
package rate
