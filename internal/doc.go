// Package internal holds engine machinery that is private to goGrant.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - metrics: lock-free counters and latency histograms
//   - rate: Redis-backed failure counting per client
//
// # What this package must NOT do
//
//   - Export types that appear in the public goGrant API.
//   - Be imported by any package outside the goGrant module.
package internal
