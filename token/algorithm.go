package token

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Algorithm is one of the supported signing algorithms. The set is closed; the zero
// value is not a valid algorithm.
type Algorithm uint8

const (
	// HS256 is HMAC using SHA-256.
	HS256 Algorithm = iota + 1
	// HS384 is HMAC using SHA-384.
	HS384
	// HS512 is HMAC using SHA-512.
	HS512
	// EdDSA is Ed25519. Signing takes a private key, verification a public or private key.
	EdDSA
)

// Algorithms lists every supported algorithm in a stable order.
var Algorithms = []Algorithm{HS256, HS384, HS512, EdDSA}

// ParseAlgorithm resolves a JWS alg identifier. Matching is exact; "none" and any
// other identifier outside the set fail with ErrUnsupportedAlgorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch name {
	case "HS256":
		return HS256, nil
	case "HS384":
		return HS384, nil
	case "HS512":
		return HS512, nil
	case "EdDSA":
		return EdDSA, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, name)
	}
}

// String returns the JWS alg identifier.
func (a Algorithm) String() string {
	switch a {
	case HS256:
		return "HS256"
	case HS384:
		return "HS384"
	case HS512:
		return "HS512"
	case EdDSA:
		return "EdDSA"
	default:
		return fmt.Sprintf("Algorithm(%d)", uint8(a))
	}
}

// Valid reports whether a is one of the supported algorithms.
func (a Algorithm) Valid() bool {
	return a >= HS256 && a <= EdDSA
}

// Symmetric reports whether the same secret signs and verifies.
func (a Algorithm) Symmetric() bool {
	return a == HS256 || a == HS384 || a == HS512
}

// MarshalText implements encoding.TextMarshaler.
func (a Algorithm) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, a)
	}
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Algorithm) UnmarshalText(text []byte) error {
	parsed, err := ParseAlgorithm(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func (a Algorithm) method() jwt.SigningMethod {
	switch a {
	case HS256:
		return jwt.SigningMethodHS256
	case HS384:
		return jwt.SigningMethodHS384
	case HS512:
		return jwt.SigningMethodHS512
	case EdDSA:
		return jwt.SigningMethodEdDSA
	default:
		return nil
	}
}
