// Package token creates and verifies compact signed grant tokens.
//
// A token is a JWS compact string carrying exactly one [grant.Grant], an issued-at
// time, an expiration time and a random token ID. Creation signs with one secret;
// verification searches an ordered list of candidate secrets so that tokens issued
// under a retiring secret keep verifying until that secret is dropped from the list.
//
// # Verification order
//
// Verify runs a fixed sequence and stops at the first failure:
//
//	Parsing -> SignatureCheck -> ExpiryCheck -> GrantCheck -> Valid
//
// Only the header is decoded before the signature is authenticated. The payload is
// opaque until some candidate secret verifies it, so unauthenticated claims never
// influence which error is reported.
//
// # What this package must NOT do
//
//   - Hold secrets, grants, or tokens between calls.
//   - Log, retry, or downgrade an error.
//   - Start goroutines or perform I/O.
package token
