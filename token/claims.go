package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/MrEthical07/goGrant/grant"
)

// Claims is the decoded payload of a fully verified token.
//
// Claims is only ever returned when signature, expiry and grant checks all passed.
type Claims struct {
	Grant     grant.Grant `json:"grant" cbor:"1,keyasint"`
	IssuedAt  time.Time   `json:"iat" cbor:"2,keyasint"`
	ExpiresAt time.Time   `json:"exp" cbor:"3,keyasint"`
	ID        string      `json:"jti,omitempty" cbor:"4,keyasint,omitempty"`
	KeyID     string      `json:"kid,omitempty" cbor:"5,keyasint,omitempty"`
	Algorithm Algorithm   `json:"alg" cbor:"6,keyasint"`
}

// TTL returns the time remaining until expiry relative to now, floored at zero.
func (c *Claims) TTL(now time.Time) time.Duration {
	if c == nil {
		return 0
	}
	d := c.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// grantClaims is the JSON payload carried inside the token.
type grantClaims struct {
	Grant *grant.Grant `json:"grant"`
	jwt.RegisteredClaims
}
