package token

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/MrEthical07/goGrant/grant"
)

// maxExpiry is 9999-12-31T23:59:59Z. Expirations past it cannot round-trip through
// the float-based NumericDate decoding without precision loss.
const maxExpiry int64 = 253402300799

// Config tunes an Engine. The zero value is valid.
type Config struct {
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
	// MinHMACKeyBytes is the shortest HMAC secret accepted for signing and verification.
	// Zero means 1: empty secrets are always rejected.
	MinHMACKeyBytes int
	// Algorithms restricts the header algorithms verification accepts. A token whose
	// header names another algorithm fails with ErrSignatureInvalid before any
	// candidate is tried. Empty accepts every supported algorithm. Signing is not
	// restricted.
	Algorithms []Algorithm
}

// Engine creates and verifies grant tokens. It holds no secrets and no per-call state;
// a single Engine may be shared by any number of goroutines.
type Engine struct {
	now             func() time.Time
	minHMACKeyBytes int
	allowed         algorithmSet
	parser          *jwt.Parser
}

// algorithmSet is indexed by Algorithm; the zero value allows nothing.
type algorithmSet [EdDSA + 1]bool

func (s algorithmSet) has(alg Algorithm) bool {
	return alg.Valid() && s[alg]
}

var defaultEngine = mustEngine(Config{})

func mustEngine(cfg Config) *Engine {
	e, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return e
}

// New validates cfg and returns an Engine.
func New(cfg Config) (*Engine, error) {
	if cfg.MinHMACKeyBytes < 0 {
		return nil, fmt.Errorf("token: MinHMACKeyBytes must be >= 0")
	}
	if cfg.MinHMACKeyBytes == 0 {
		cfg.MinHMACKeyBytes = 1
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	var allowed algorithmSet
	if len(cfg.Algorithms) == 0 {
		for _, alg := range Algorithms {
			allowed[alg] = true
		}
	}
	for _, alg := range cfg.Algorithms {
		if !alg.Valid() {
			return nil, fmt.Errorf("token: %w: %s", ErrUnsupportedAlgorithm, alg)
		}
		allowed[alg] = true
	}

	return &Engine{
		now:             cfg.Now,
		minHMACKeyBytes: cfg.MinHMACKeyBytes,
		allowed:         allowed,
		parser:          jwt.NewParser(jwt.WithStrictDecoding()),
	}, nil
}

// Create signs a token for g with the package default engine.
func Create(alg string, secret []byte, lifetimeSeconds int64, g grant.Grant) (string, error) {
	return defaultEngine.Create(alg, secret, lifetimeSeconds, g)
}

// Verify checks a token with the package default engine.
func Verify(tokenString string, candidates [][]byte, expected grant.Grant) (*Claims, error) {
	return defaultEngine.Verify(tokenString, candidates, expected)
}

// CreateWithKey signs with key using the package default engine.
func CreateWithKey(key Key, lifetimeSeconds int64, g grant.Grant) (string, error) {
	return defaultEngine.CreateWithKey(key, lifetimeSeconds, g)
}

// VerifyAs checks a token against candidates pinned to alg with the package default engine.
func VerifyAs(tokenString string, alg Algorithm, candidates [][]byte, expected grant.Grant) (*Claims, error) {
	return defaultEngine.VerifyAs(tokenString, alg, candidates, expected)
}

// VerifyKeys checks a token against tagged keys with the package default engine.
func VerifyKeys(tokenString string, keys []Key, expected grant.Grant) (*Claims, error) {
	return defaultEngine.VerifyKeys(tokenString, keys, expected)
}

// Create resolves alg, then signs a token that embeds g and expires lifetimeSeconds
// after issuance. A lifetime of zero yields a token that is already expired.
func (e *Engine) Create(alg string, secret []byte, lifetimeSeconds int64, g grant.Grant) (string, error) {
	algorithm, err := ParseAlgorithm(alg)
	if err != nil {
		return "", err
	}
	return e.CreateWithKey(Key{Algorithm: algorithm, Secret: secret}, lifetimeSeconds, g)
}

// CreateWithKey is Create with an already resolved, optionally identified key.
func (e *Engine) CreateWithKey(key Key, lifetimeSeconds int64, g grant.Grant) (string, error) {
	signed, _, err := e.Sign(key, lifetimeSeconds, g)
	return signed, err
}

// Sign is CreateWithKey that also reports the claims written into the token.
func (e *Engine) Sign(key Key, lifetimeSeconds int64, g grant.Grant) (string, *Claims, error) {
	method := key.Algorithm.method()
	if method == nil {
		return "", nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, key.Algorithm)
	}
	if err := g.Validate(); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidGrant, err)
	}

	issuedAt := e.now().Truncate(time.Second)
	iat := issuedAt.Unix()
	if lifetimeSeconds < 0 || lifetimeSeconds > maxExpiry-iat {
		return "", nil, fmt.Errorf("%w: %d seconds", ErrInvalidLifetime, lifetimeSeconds)
	}

	signKey, err := e.signKey(key.Algorithm, key.Secret)
	if err != nil {
		return "", nil, err
	}

	embedded := g
	expiresAt := time.Unix(iat+lifetimeSeconds, 0)
	claims := grantClaims{
		Grant: &embedded,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	tok := jwt.NewWithClaims(method, claims)
	if key.ID != "" {
		tok.Header["kid"] = key.ID
	}

	signed, err := tok.SignedString(signKey)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrSigningFailure, err)
	}
	return signed, &Claims{
		Grant:     g,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
		ID:        claims.ID,
		KeyID:     key.ID,
		Algorithm: key.Algorithm,
	}, nil
}

// Verify checks tokenString against candidates in order. Every candidate is treated as
// key material for the algorithm named in the token header, within the engine's
// Algorithms. Hosts that hold asymmetric public keys as candidates must pin the
// algorithm with VerifyAs or Config.Algorithms: otherwise a public key is also
// accepted as an HMAC secret.
func (e *Engine) Verify(tokenString string, candidates [][]byte, expected grant.Grant) (*Claims, error) {
	keys := make([]Key, len(candidates))
	for i, secret := range candidates {
		keys[i] = Key{Secret: secret}
	}
	return e.verify(tokenString, keys, expected, false)
}

// VerifyAs is Verify with every candidate bound to alg. A token whose header names any
// other algorithm fails with ErrSignatureInvalid.
func (e *Engine) VerifyAs(tokenString string, alg Algorithm, candidates [][]byte, expected grant.Grant) (*Claims, error) {
	if !alg.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, alg)
	}
	keys := make([]Key, len(candidates))
	for i, secret := range candidates {
		keys[i] = Key{Algorithm: alg, Secret: secret}
	}
	return e.verify(tokenString, keys, expected, true)
}

// VerifyKeys checks tokenString against tagged keys in order. A key whose Algorithm
// differs from the token header never matches.
func (e *Engine) VerifyKeys(tokenString string, keys []Key, expected grant.Grant) (*Claims, error) {
	return e.verify(tokenString, keys, expected, true)
}

func (e *Engine) verify(tokenString string, keys []Key, expected grant.Grant, checkFamily bool) (*Claims, error) {
	// Parsing
	parts, alg, err := e.parseHeader(tokenString)
	if err != nil {
		return nil, err
	}

	// SignatureCheck
	if !e.allowed.has(alg) {
		return nil, ErrSignatureInvalid
	}
	matched, ok := e.findKey(alg, parts, keys, checkFamily)
	if !ok {
		return nil, ErrSignatureInvalid
	}

	claims, err := e.decodeClaims(parts[1])
	if err != nil {
		return nil, err
	}

	// ExpiryCheck
	now := e.now()
	expiresAt := claims.ExpiresAt.Time
	if !now.Before(expiresAt) {
		return nil, ErrExpired
	}

	// GrantCheck
	if !grant.Matches(expected, *claims.Grant) {
		return nil, ErrGrantMismatch
	}

	return &Claims{
		Grant:     *claims.Grant,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: expiresAt,
		ID:        claims.ID,
		KeyID:     matched.ID,
		Algorithm: alg,
	}, nil
}

func (e *Engine) parseHeader(tokenString string) ([]string, Algorithm, error) {
	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 {
		return nil, 0, fmt.Errorf("%w: token contains %d segments", ErrMalformed, len(parts))
	}

	headerBytes, err := e.parser.DecodeSegment(parts[0])
	if err != nil {
		return nil, 0, fmt.Errorf("%w: header is not base64url: %v", ErrMalformed, err)
	}
	var header map[string]interface{}
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return nil, 0, fmt.Errorf("%w: header is not a JSON object: %v", ErrMalformed, err)
	}
	name, ok := header["alg"].(string)
	if !ok {
		return nil, 0, fmt.Errorf("%w: header has no alg", ErrMalformed)
	}

	alg, err := ParseAlgorithm(name)
	if err != nil {
		return nil, 0, err
	}
	return parts, alg, nil
}

// findKey returns the first key whose material verifies the signature. An undecodable
// signature segment matches nothing.
func (e *Engine) findKey(alg Algorithm, parts []string, keys []Key, checkFamily bool) (Key, bool) {
	sig, err := e.parser.DecodeSegment(parts[2])
	if err != nil || len(sig) == 0 {
		return Key{}, false
	}

	method := alg.method()
	signingString := parts[0] + "." + parts[1]
	for _, key := range keys {
		if checkFamily && key.Algorithm != alg {
			continue
		}
		verifyKey, ok := e.verifyKey(alg, key.Secret)
		if !ok {
			continue
		}
		if method.Verify(signingString, sig, verifyKey) == nil {
			return key, true
		}
	}
	return Key{}, false
}

func (e *Engine) decodeClaims(segment string) (*grantClaims, error) {
	payload, err := e.parser.DecodeSegment(segment)
	if err != nil {
		return nil, fmt.Errorf("%w: payload is not base64url: %v", ErrMalformed, err)
	}
	var claims grantClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("%w: payload is not valid claims JSON: %v", ErrMalformed, err)
	}
	if claims.Grant == nil {
		return nil, fmt.Errorf("%w: payload has no grant", ErrMalformed)
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return nil, fmt.Errorf("%w: payload lacks iat or exp", ErrMalformed)
	}
	return &claims, nil
}

// Now returns the engine clock reading.
func (e *Engine) Now() time.Time {
	return e.now()
}
