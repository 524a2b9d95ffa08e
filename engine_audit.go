package goGrant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goGrant/grant"
	"github.com/MrEthical07/goGrant/internal/rate"
	"github.com/MrEthical07/goGrant/token"
)

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// checkLimit rejects clients that used up their failure budget. Calls without a client
// IP in ctx are not limited.
func (e *Engine) checkLimit(ctx context.Context) error {
	ip := clientIPFromContext(ctx)
	if ip == "" || !e.limiter.Enabled() {
		return nil
	}
	err := e.limiter.Check(ctx, ip)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rate.ErrRateLimited):
		e.metricInc(MetricRateLimitHit)
		return ErrRateLimited
	default:
		return fmt.Errorf("%w: %v", ErrRateLimiterUnavailable, err)
	}
}

// countFailure charges a failed token check to the client's budget. Limiter errors are
// dropped: the verification already failed.
func (e *Engine) countFailure(ctx context.Context, err error) {
	if err == nil {
		return
	}
	ip := clientIPFromContext(ctx)
	if ip == "" || !e.limiter.Enabled() {
		return
	}
	if token.ReasonOf(err).Sentinel() == nil {
		return
	}
	_ = e.limiter.RecordFailure(ctx, ip)
}

func (e *Engine) recordCreate(ctx context.Context, claims token.Claims, err error) {
	if err != nil {
		e.metricInc(MetricTokenCreateFailure)
		e.emitAudit(ctx, AuditEventTokenCreateFail, false, claims, err)
		return
	}
	e.metricInc(MetricTokenCreated)
	e.emitAudit(ctx, AuditEventTokenCreated, true, claims, nil)
}

func (e *Engine) recordVerify(ctx context.Context, expected grant.Grant, claims *token.Claims, err error, start time.Time) {
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricVerifyLatency, e.now().Sub(start))
	}

	if err == nil {
		e.metricInc(MetricVerifyValid)
		e.emitAudit(ctx, AuditEventTokenVerified, true, *claims, nil)
		return
	}

	e.metricInc(verifyMetric(err))
	e.emitAudit(ctx, AuditEventTokenVerifyFail, false, token.Claims{Grant: expected}, err)
}

func (e *Engine) recordRelease(ctx context.Context, handle string) {
	e.metricInc(MetricResultReleased)
	if e.audit == nil {
		return
	}
	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: AuditEventResultReleased,
		ClientIP:  clientIPFromContext(ctx),
		Success:   true,
	}
	if handle != "" {
		event.Metadata = map[string]string{"handle": handle}
	}
	e.audit.Emit(ctx, event)
}

func (e *Engine) emitAudit(ctx context.Context, eventType string, success bool, claims token.Claims, err error) {
	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		Target:    claims.Grant.Target,
		Action:    claims.Grant.Action,
		TokenID:   claims.ID,
		KeyID:     claims.KeyID,
		ClientIP:  clientIPFromContext(ctx),
		Success:   success,
	}
	if claims.Algorithm.Valid() {
		event.Algorithm = claims.Algorithm.String()
	}
	if err != nil {
		event.Reason = string(token.ReasonOf(err))
		event.Error = auditErrorText(err)
	}

	e.audit.Emit(ctx, event)
}

// auditErrorText keeps the sentinel text only; wrapped causes can echo caller input.
func auditErrorText(err error) string {
	switch {
	case errors.Is(err, ErrKeyringRequired):
		return ErrKeyringRequired.Error()
	case errors.Is(err, ErrNoSigningKey):
		return ErrNoSigningKey.Error()
	case errors.Is(err, ErrLifetimeTooLong):
		return ErrLifetimeTooLong.Error()
	case errors.Is(err, ErrRateLimited):
		return ErrRateLimited.Error()
	case errors.Is(err, ErrRateLimiterUnavailable):
		return ErrRateLimiterUnavailable.Error()
	}
	if sentinel := token.ReasonOf(err).Sentinel(); sentinel != nil {
		return sentinel.Error()
	}
	return "internal error"
}

func verifyMetric(err error) MetricID {
	switch {
	case errors.Is(err, token.ErrMalformed):
		return MetricVerifyMalformed
	case errors.Is(err, token.ErrUnsupportedAlgorithm):
		return MetricVerifyUnsupportedAlgorithm
	case errors.Is(err, token.ErrExpired):
		return MetricVerifyExpired
	case errors.Is(err, token.ErrGrantMismatch):
		return MetricVerifyGrantMismatch
	case errors.Is(err, token.ErrSignatureInvalid):
		return MetricVerifySignatureInvalid
	default:
		// keyring failures have no counter; Inc ignores out-of-range ids
		return metricIDCount
	}
}
