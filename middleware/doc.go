// Package middleware exposes HTTP guards that admit a request only when it carries a
// bearer token granting a specific action on a specific target.
//
// # Guards
//
//   - [RequireGrant] checks a fixed grant.
//   - [RequireGrantFunc] derives the grant from the request, for routes whose target
//     is a path parameter.
//
// Each guard reads the Authorization header, calls Engine.Verify against the
// engine keyring, and injects the verified claims into the request context.
//
// # What this package must NOT do
//
//   - Parse or sign tokens directly.
//   - Make authorization decisions beyond pass/reject from Engine.Verify.
package middleware
