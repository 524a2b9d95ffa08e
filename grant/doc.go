// Package grant defines the single authorization capability embedded in every token:
// a permitted action on a permitted target.
//
// # Equality
//
// Two grants match only when both fields are byte-for-byte equal. There is no
// case-folding, trimming, or wildcard expansion; callers are expected to pass
// canonical values.
//
// # What this package must NOT do
//
//   - Normalize or rewrite grant fields.
//   - Import token, envelope, or the root goGrant package.
package grant
