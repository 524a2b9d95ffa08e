package goGrant

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goGrant/envelope"
	"github.com/MrEthical07/goGrant/internal/audit"
	"github.com/MrEthical07/goGrant/internal/rate"
	"github.com/MrEthical07/goGrant/keyring"
	"github.com/MrEthical07/goGrant/token"
)

// Builder assembles an Engine. A Builder is single use: configure it during
// initialization, call Build once, then discard it.
type Builder struct {
	config    Config
	keyring   keyring.Source
	auditSink AuditSink
	redis     redis.UniversalClient
	now       func() time.Time

	built bool
}

// New returns a Builder holding DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithKeyring sets the source used by Issue and Verify. Engines built without one can
// still CreateToken and VerifyToken with explicit secrets.
func (b *Builder) WithKeyring(source keyring.Source) *Builder {
	b.keyring = source
	return b
}

// WithRedis sets the client backing the verify failure limiter.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAuditSink sets the audit sink and enables auditing.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = sink != nil
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the verify latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// WithClock replaces time.Now for token timestamps, expiry checks and audit events.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build validates the configuration and returns a ready Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	now := b.now
	if now == nil {
		now = time.Now
	}

	tokens, err := token.New(token.Config{
		Now:             now,
		MinHMACKeyBytes: cfg.Token.MinHMACKeyBytes,
		Algorithms:      cfg.Token.Algorithms,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:  cfg,
		tokens:  tokens,
		keyring: b.keyring,
		results: envelope.NewTable(cfg.Results.Capacity),
		metrics: NewMetrics(cfg.Metrics),
		now:     now,
	}
	if b.redis != nil && cfg.Limits.MaxVerifyFailures > 0 {
		engine.limiter = rate.New(b.redis, rate.Config{
			MaxFailures: cfg.Limits.MaxVerifyFailures,
			Window:      cfg.Limits.Window,
		})
	}
	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	b.built = true

	return engine, nil
}
