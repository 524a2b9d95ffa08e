package goGrant

import (
	"errors"

	"github.com/MrEthical07/goGrant/token"
)

var (
	// ErrKeyringRequired is returned by keyring-backed operations on an engine built
	// without a keyring. Failed envelopes report it as "keyring_required".
	ErrKeyringRequired error = &reasonError{msg: "keyring required", reason: "keyring_required"}
	// ErrNoSigningKey is returned when the keyring holds no active key. Failed
	// envelopes report it as "no_signing_key".
	ErrNoSigningKey error = &reasonError{msg: "no active signing key", reason: "no_signing_key"}
	// ErrEngineNotReady is returned by methods called on a nil Engine.
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrBuilderUsed is returned when Build is called twice on one Builder.
	ErrBuilderUsed = errors.New("builder already used")
	// ErrLifetimeTooLong is returned by Issue and CreateToken when the lifetime exceeds
	// Token.MaxLifetime. It also matches token.ErrInvalidLifetime.
	ErrLifetimeTooLong = errors.New("lifetime exceeds configured maximum")
)

// ErrRateLimited is returned by verification when the caller's client IP has used up
// its failure budget. Failed envelopes report it as "rate_limited".
var ErrRateLimited error = &reasonError{msg: "too many failed verifications", reason: "rate_limited"}

// ErrRateLimiterUnavailable is returned when the failure limiter cannot reach Redis.
// Verification fails closed.
var ErrRateLimiterUnavailable = errors.New("rate limiter unavailable")

type reasonError struct {
	msg    string
	reason token.Reason
}

func (e *reasonError) Error() string { return e.msg }

func (e *reasonError) Reason() token.Reason { return e.reason }
