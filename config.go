package goGrant

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/MrEthical07/goGrant/token"
)

// Config controls an Engine. Start from DefaultConfig and adjust.
type Config struct {
	Token   TokenConfig
	Audit   AuditConfig
	Metrics MetricsConfig
	Results ResultsConfig
	Limits  LimitsConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig tunes the token engine.
type TokenConfig struct {
	// MinHMACKeyBytes is the shortest HMAC secret accepted. Zero means 1.
	MinHMACKeyBytes int
	// MaxLifetime caps lifetimes passed to Issue and CreateToken. Zero means no cap.
	MaxLifetime time.Duration
	// Algorithms restricts the token header algorithms every verification path
	// accepts. Empty accepts all supported algorithms.
	Algorithms []token.Algorithm
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
RESULTS CONFIG
====================================
*/

// ResultsConfig sizes the handle table returned by Engine.Results.
type ResultsConfig struct {
	// Capacity bounds parked envelopes. Zero means unbounded.
	Capacity int
}

/*
====================================
LIMITS CONFIG
====================================
*/

// LimitsConfig caps failed verifications per client IP. It takes effect only when the
// Builder is given a Redis client and the context carries a client IP.
type LimitsConfig struct {
	// MaxVerifyFailures per Window. Zero disables the limiter.
	MaxVerifyFailures int
	Window            time.Duration
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			MinHMACKeyBytes: 1,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
		Results: ResultsConfig{
			Capacity: 10000,
		},
		Limits: LimitsConfig{
			MaxVerifyFailures: 0,
			Window:            time.Minute,
		},
	}
}

func cloneConfig(cfg Config) Config {
	cfg.Token.Algorithms = slices.Clone(cfg.Token.Algorithms)
	return cfg
}

// Validate checks cfg for values the Engine cannot run with.
func (c *Config) Validate() error {
	if c.Token.MinHMACKeyBytes < 0 {
		return errors.New("Token MinHMACKeyBytes must be >= 0")
	}
	if c.Token.MaxLifetime < 0 {
		return errors.New("Token MaxLifetime must be >= 0")
	}
	if c.Token.MaxLifetime%time.Second != 0 {
		return errors.New("Token MaxLifetime must be a whole number of seconds")
	}
	for _, alg := range c.Token.Algorithms {
		if !alg.Valid() {
			return fmt.Errorf("Token Algorithms contains unsupported %s", alg)
		}
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	if c.Results.Capacity < 0 {
		return errors.New("Results Capacity must be >= 0")
	}

	if c.Limits.MaxVerifyFailures < 0 {
		return errors.New("Limits MaxVerifyFailures must be >= 0")
	}
	if c.Limits.MaxVerifyFailures > 0 && c.Limits.Window <= 0 {
		return errors.New("Limits Window must be > 0 when MaxVerifyFailures is set")
	}

	return nil
}
