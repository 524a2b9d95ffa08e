package goGrant

import (
	"io"

	"go.uber.org/zap"

	internalaudit "github.com/MrEthical07/goGrant/internal/audit"
	internalmetrics "github.com/MrEthical07/goGrant/internal/metrics"
)

// AuditEvent is the structured audit record emitted by the Engine.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the dispatcher goroutine.
type AuditSink = internalaudit.Sink

// NoOpSink discards audit events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink delivers audit events on a buffered channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON audit event per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// ZapSink logs audit events through zap.
type ZapSink = internalaudit.ZapSink

// Audit event types.
const (
	AuditEventTokenCreated    = internalaudit.EventTokenCreated
	AuditEventTokenCreateFail = internalaudit.EventCreateFailed
	AuditEventTokenVerified   = internalaudit.EventTokenVerified
	AuditEventTokenVerifyFail = internalaudit.EventVerifyFailed
	AuditEventResultReleased  = internalaudit.EventResultRelease
)

// NewChannelSink returns a ChannelSink with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a sink writing JSON lines to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewZapSink returns a sink logging through logger.
func NewZapSink(logger *zap.Logger) *ZapSink {
	return internalaudit.NewZapSink(logger)
}

// MetricID identifies an engine counter.
type MetricID = internalmetrics.MetricID

const (
	MetricTokenCreated               = MetricID(internalmetrics.MetricTokenCreated)
	MetricTokenCreateFailure         = MetricID(internalmetrics.MetricTokenCreateFailure)
	MetricVerifyValid                = MetricID(internalmetrics.MetricVerifyValid)
	MetricVerifyMalformed            = MetricID(internalmetrics.MetricVerifyMalformed)
	MetricVerifyUnsupportedAlgorithm = MetricID(internalmetrics.MetricVerifyUnsupportedAlgorithm)
	MetricVerifySignatureInvalid     = MetricID(internalmetrics.MetricVerifySignatureInvalid)
	MetricVerifyExpired              = MetricID(internalmetrics.MetricVerifyExpired)
	MetricVerifyGrantMismatch        = MetricID(internalmetrics.MetricVerifyGrantMismatch)
	MetricVerifyNoKeys               = MetricID(internalmetrics.MetricVerifyNoKeys)
	MetricResultRetained             = MetricID(internalmetrics.MetricResultRetained)
	MetricResultReleased             = MetricID(internalmetrics.MetricResultReleased)
	MetricRateLimitHit               = MetricID(internalmetrics.MetricRateLimitHit)
	MetricVerifyLatency              = MetricID(internalmetrics.MetricVerifyLatency)

	metricIDCount = internalmetrics.MetricIDCount
)

// Metrics holds the engine counters.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics returns Metrics configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:                 cfg.Enabled,
		EnableLatencyHistograms: cfg.EnableLatencyHistograms,
	})
}
