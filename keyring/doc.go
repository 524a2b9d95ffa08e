// Package keyring supplies the ordered candidate secrets a verifier tries during key
// rotation, and the current signing key.
//
// Three sources are provided: Static (in memory, optionally loaded from YAML),
// RedisStore and SQLStore. Every source returns active keys newest first; that order
// is the candidate order handed to token verification.
package keyring
