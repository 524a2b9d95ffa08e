package goGrant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goGrant/envelope"
	"github.com/MrEthical07/goGrant/grant"
	"github.com/MrEthical07/goGrant/internal/audit"
	"github.com/MrEthical07/goGrant/internal/rate"
	"github.com/MrEthical07/goGrant/keyring"
	"github.com/MrEthical07/goGrant/token"
)

// Engine is the service facade over the token engine.
//
// Engine instances are immutable after Build and safe for concurrent use.
type Engine struct {
	config  Config
	tokens  *token.Engine
	keyring keyring.Source
	results *envelope.Table
	audit   *audit.Dispatcher
	metrics *Metrics
	limiter *rate.Limiter
	now     func() time.Time
}

// CreateToken signs a token for g with an explicit algorithm and secret. The envelope
// payload is the compact token string. Every failure, including an unknown algorithm,
// comes back as a failed envelope.
func (e *Engine) CreateToken(ctx context.Context, alg string, secret []byte, lifetimeSeconds int64, g grant.Grant) *envelope.Envelope {
	if e == nil {
		return envelope.Failure(ErrEngineNotReady)
	}

	algorithm, err := token.ParseAlgorithm(alg)
	if err != nil {
		e.recordCreate(ctx, token.Claims{Grant: g}, err)
		return envelope.Failure(err)
	}
	if err := e.checkLifetime(lifetimeSeconds); err != nil {
		e.recordCreate(ctx, token.Claims{Grant: g, Algorithm: algorithm}, err)
		return envelope.Failure(err)
	}
	signed, claims, err := e.tokens.Sign(token.Key{Algorithm: algorithm, Secret: secret}, lifetimeSeconds, g)
	if err != nil {
		e.recordCreate(ctx, token.Claims{Grant: g, Algorithm: algorithm}, err)
		return envelope.Failure(err)
	}

	e.recordCreate(ctx, *claims, nil)
	return envelope.Success([]byte(signed))
}

// CreateTokenFlat is CreateToken for callers holding target and action as scalars.
func (e *Engine) CreateTokenFlat(ctx context.Context, alg string, secret []byte, lifetimeSeconds int64, target, action string) *envelope.Envelope {
	return e.CreateToken(ctx, alg, secret, lifetimeSeconds, grant.New(target, action))
}

// VerifyToken checks tok against candidates in order. The envelope payload is the
// verified claims in CBOR form; see envelope.DecodeClaims.
func (e *Engine) VerifyToken(ctx context.Context, tok string, candidates [][]byte, expected grant.Grant) *envelope.Envelope {
	if e == nil {
		return envelope.Failure(ErrEngineNotReady)
	}

	start := e.now()
	if err := e.checkLimit(ctx); err != nil {
		e.recordVerify(ctx, expected, nil, err, start)
		return envelope.Failure(err)
	}
	claims, err := e.tokens.Verify(tok, candidates, expected)
	e.countFailure(ctx, err)
	e.recordVerify(ctx, expected, claims, err, start)
	return claimsEnvelope(claims, err)
}

// VerifyTokenAs is VerifyToken with every candidate bound to alg. Hosts holding Ed25519
// public keys as candidates use it so that a public key is never tried as an HMAC
// secret. A token signed with any other algorithm fails with signature_invalid.
func (e *Engine) VerifyTokenAs(ctx context.Context, tok, alg string, candidates [][]byte, expected grant.Grant) *envelope.Envelope {
	if e == nil {
		return envelope.Failure(ErrEngineNotReady)
	}

	start := e.now()
	algorithm, err := token.ParseAlgorithm(alg)
	if err != nil {
		e.recordVerify(ctx, expected, nil, err, start)
		return envelope.Failure(err)
	}
	if err := e.checkLimit(ctx); err != nil {
		e.recordVerify(ctx, expected, nil, err, start)
		return envelope.Failure(err)
	}
	claims, err := e.tokens.VerifyAs(tok, algorithm, candidates, expected)
	e.countFailure(ctx, err)
	e.recordVerify(ctx, expected, claims, err, start)
	return claimsEnvelope(claims, err)
}

// VerifyTokenFlat is VerifyToken for callers holding target and action as scalars.
func (e *Engine) VerifyTokenFlat(ctx context.Context, tok string, candidates [][]byte, target, action string) *envelope.Envelope {
	return e.VerifyToken(ctx, tok, candidates, grant.New(target, action))
}

// Issue signs a token for g with the keyring's newest active key.
func (e *Engine) Issue(ctx context.Context, lifetimeSeconds int64, g grant.Grant) (string, error) {
	signed, _, err := e.issue(ctx, lifetimeSeconds, g)
	return signed, err
}

// IssueEnvelope is Issue with the outcome wrapped in an envelope.
func (e *Engine) IssueEnvelope(ctx context.Context, lifetimeSeconds int64, g grant.Grant) *envelope.Envelope {
	signed, _, err := e.issue(ctx, lifetimeSeconds, g)
	if err != nil {
		return envelope.Failure(err)
	}
	return envelope.Success([]byte(signed))
}

func (e *Engine) issue(ctx context.Context, lifetimeSeconds int64, g grant.Grant) (string, *token.Claims, error) {
	if e == nil {
		return "", nil, ErrEngineNotReady
	}
	if e.keyring == nil {
		return "", nil, ErrKeyringRequired
	}
	if err := e.checkLifetime(lifetimeSeconds); err != nil {
		e.recordCreate(ctx, token.Claims{Grant: g}, err)
		return "", nil, err
	}

	key, err := e.keyring.Signing(ctx)
	if err != nil {
		err = keyringError(err)
		e.recordCreate(ctx, token.Claims{Grant: g}, err)
		return "", nil, err
	}

	signed, claims, err := e.tokens.Sign(key, lifetimeSeconds, g)
	if err != nil {
		e.recordCreate(ctx, token.Claims{Grant: g, Algorithm: key.Algorithm, KeyID: key.ID}, err)
		return "", nil, err
	}
	e.recordCreate(ctx, *claims, nil)
	return signed, claims, nil
}

// checkLifetime enforces Token.MaxLifetime.
func (e *Engine) checkLifetime(lifetimeSeconds int64) error {
	if limit := int64(e.config.Token.MaxLifetime / time.Second); limit > 0 && lifetimeSeconds > limit {
		return fmt.Errorf("%w: %w: %d > %d seconds", token.ErrInvalidLifetime, ErrLifetimeTooLong, lifetimeSeconds, limit)
	}
	return nil
}

// Verify checks tok against the keyring's active keys, newest first. Keys only match
// tokens of their own algorithm.
func (e *Engine) Verify(ctx context.Context, tok string, expected grant.Grant) (*token.Claims, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if e.keyring == nil {
		return nil, ErrKeyringRequired
	}

	start := e.now()
	if err := e.checkLimit(ctx); err != nil {
		e.recordVerify(ctx, expected, nil, err, start)
		return nil, err
	}
	keys, err := e.keyring.Candidates(ctx)
	if err != nil {
		err = keyringError(err)
		e.recordVerify(ctx, expected, nil, err, start)
		return nil, err
	}

	if len(keys) == 0 {
		e.metricInc(MetricVerifyNoKeys)
	}
	claims, err := e.tokens.VerifyKeys(tok, keys, expected)
	e.countFailure(ctx, err)
	e.recordVerify(ctx, expected, claims, err, start)
	return claims, err
}

// VerifyEnvelope is Verify with the outcome wrapped in an envelope.
func (e *Engine) VerifyEnvelope(ctx context.Context, tok string, expected grant.Grant) *envelope.Envelope {
	return claimsEnvelope(e.Verify(ctx, tok, expected))
}

// Release releases env. It fails with envelope.ErrReleased on a second call.
func (e *Engine) Release(ctx context.Context, env *envelope.Envelope) error {
	if err := env.Release(); err != nil {
		return err
	}
	if e != nil {
		e.recordRelease(ctx, "")
	}
	return nil
}

// Retain parks env in the result table and returns its handle.
func (e *Engine) Retain(env *envelope.Envelope) (envelope.Handle, error) {
	if e == nil {
		return envelope.Handle{}, ErrEngineNotReady
	}
	h, err := e.results.Put(env)
	if err != nil {
		return envelope.Handle{}, err
	}
	e.metricInc(MetricResultRetained)
	return h, nil
}

// ReleaseHandle releases a parked envelope. Each handle is released exactly once.
func (e *Engine) ReleaseHandle(ctx context.Context, h envelope.Handle) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if err := e.results.Release(h); err != nil {
		return err
	}
	e.recordRelease(ctx, h.String())
	return nil
}

// Results returns the handle table for hosts that address envelopes by handle.
func (e *Engine) Results() *envelope.Table {
	if e == nil {
		return nil
	}
	return e.results
}

// Now returns the engine clock reading.
func (e *Engine) Now() time.Time {
	if e == nil {
		return time.Now()
	}
	return e.now()
}

// Close stops the audit dispatcher after draining queued events and releases every
// parked envelope.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
	e.results.Drain()
}

// AuditDropped returns the number of audit events dropped because the buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func claimsEnvelope(claims *token.Claims, err error) *envelope.Envelope {
	if err != nil {
		return envelope.Failure(err)
	}
	payload, err := envelope.EncodeClaims(claims)
	if err != nil {
		return envelope.Failure(err)
	}
	return envelope.Success(payload)
}

func keyringError(err error) error {
	if errors.Is(err, keyring.ErrNoKeys) {
		return fmt.Errorf("%w: %v", ErrNoSigningKey, err)
	}
	return err
}
