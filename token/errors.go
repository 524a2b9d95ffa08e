package token

import "errors"

var (
	// ErrUnsupportedAlgorithm is returned when an algorithm identifier is not in the supported set.
	ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")
	// ErrSigningFailure is returned when the signing primitive rejects the key material.
	ErrSigningFailure = errors.New("signing failure")
	// ErrMalformed is returned when a token does not decode to header, payload and signature.
	ErrMalformed = errors.New("malformed token")
	// ErrSignatureInvalid is returned when no candidate secret validates the signature.
	ErrSignatureInvalid = errors.New("signature invalid")
	// ErrExpired is returned when the signature is valid but the token is at or past expiry.
	ErrExpired = errors.New("token expired")
	// ErrGrantMismatch is returned when a valid, unexpired token carries a different grant.
	ErrGrantMismatch = errors.New("grant mismatch")
	// ErrInvalidLifetime is returned when the requested lifetime is negative or overflows.
	ErrInvalidLifetime = errors.New("invalid lifetime")
	// ErrInvalidGrant is returned when a grant cannot be embedded in a token.
	ErrInvalidGrant = errors.New("invalid grant")
)

// Reason is a stable, machine-readable failure code.
type Reason string

const (
	ReasonNone                 Reason = ""
	ReasonUnsupportedAlgorithm Reason = "unsupported_algorithm"
	ReasonSigningFailure       Reason = "signing_failure"
	ReasonMalformed            Reason = "malformed"
	ReasonSignatureInvalid     Reason = "signature_invalid"
	ReasonExpired              Reason = "expired"
	ReasonGrantMismatch        Reason = "grant_mismatch"
	ReasonInvalidLifetime      Reason = "invalid_lifetime"
	ReasonInvalidGrant         Reason = "invalid_grant"
	ReasonInternal             Reason = "internal"
)

var reasonTable = []struct {
	err    error
	reason Reason
}{
	{ErrUnsupportedAlgorithm, ReasonUnsupportedAlgorithm},
	{ErrSigningFailure, ReasonSigningFailure},
	{ErrMalformed, ReasonMalformed},
	{ErrSignatureInvalid, ReasonSignatureInvalid},
	{ErrExpired, ReasonExpired},
	{ErrGrantMismatch, ReasonGrantMismatch},
	{ErrInvalidLifetime, ReasonInvalidLifetime},
	{ErrInvalidGrant, ReasonInvalidGrant},
}

// ReasonCarrier is implemented by errors defined outside this package that report
// their own Reason.
type ReasonCarrier interface {
	error
	Reason() Reason
}

// ReasonOf maps err to its Reason. A nil error maps to ReasonNone. Errors outside the
// taxonomy map to the Reason they carry, or to ReasonInternal.
func ReasonOf(err error) Reason {
	if err == nil {
		return ReasonNone
	}
	for _, entry := range reasonTable {
		if errors.Is(err, entry.err) {
			return entry.reason
		}
	}
	var carrier ReasonCarrier
	if errors.As(err, &carrier) {
		return carrier.Reason()
	}
	return ReasonInternal
}

// Sentinel returns the taxonomy error for r, or nil when r has none.
func (r Reason) Sentinel() error {
	for _, entry := range reasonTable {
		if entry.reason == r {
			return entry.err
		}
	}
	return nil
}
