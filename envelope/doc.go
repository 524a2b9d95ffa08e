// Package envelope implements the result protocol for every boundary call: a value
// that carries either an error or a success payload, never both, and that the
// receiver releases exactly once.
//
// # Ownership
//
// An [Envelope] owns a private copy of its payload. [Envelope.Payload] hands out
// further copies, so no caller ever aliases envelope memory. [Envelope.Release]
// zeroes and drops the payload; a second Release and any read after Release fail
// with [ErrReleased].
//
// Hosts that cannot hold Go values across their boundary park envelopes in a
// [Table] and address them by handle. The table owns parked envelopes; releasing the
// handle releases the envelope.
//
// # Wire form
//
// [Envelope.MarshalCBOR] encodes with Core Deterministic CBOR (RFC 8949 §4.2) and
// integer map keys. [Decode] is its inverse.
package envelope
