package token

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Key is a secret tagged with the algorithm it belongs to. ID is optional; when set it
// is written to the token header as kid and reported back in Claims.KeyID.
type Key struct {
	ID        string
	Algorithm Algorithm
	Secret    []byte
}

// signKey converts key material into the value the signing method expects.
func (e *Engine) signKey(alg Algorithm, secret []byte) (interface{}, error) {
	switch alg {
	case HS256, HS384, HS512:
		if len(secret) < e.minHMACKeyBytes {
			return nil, fmt.Errorf("%w: hmac secret shorter than %d bytes", ErrSigningFailure, e.minHMACKeyBytes)
		}
		return secret, nil
	case EdDSA:
		key, err := parseEdPrivateKey(secret)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSigningFailure, err)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, alg)
	}
}

// verifyKey converts candidate key material into a verification key. ok is false when
// the material cannot be used with alg; such candidates never match.
func (e *Engine) verifyKey(alg Algorithm, secret []byte) (interface{}, bool) {
	switch alg {
	case HS256, HS384, HS512:
		if len(secret) == 0 || len(secret) < e.minHMACKeyBytes {
			return nil, false
		}
		return secret, true
	case EdDSA:
		if pub, err := parseEdPublicKey(secret); err == nil {
			return pub, true
		}
		priv, err := parseEdPrivateKey(secret)
		if err != nil {
			return nil, false
		}
		pub, ok := priv.Public().(ed25519.PublicKey)
		return pub, ok
	default:
		return nil, false
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
