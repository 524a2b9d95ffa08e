package goGrant

import (
	"slices"
	"time"

	"github.com/MrEthical07/goGrant/token"
)

// SecurityReport summarizes the posture an Engine was built with.
type SecurityReport struct {
	MinHMACKeyBytes   int
	MaxLifetime       time.Duration
	// Algorithms are the header algorithms verification accepts.
	Algorithms []token.Algorithm
	// AlgorithmsPinned is false when every supported algorithm is accepted.
	AlgorithmsPinned  bool
	KeyringConfigured bool
	AuditEnabled      bool
	AuditDropIfFull   bool
	MetricsEnabled    bool
	LatencyHistograms bool
	ResultsCapacity   int
	// VerifyFailureLimit is the per-client failure budget, zero when no limiter runs.
	VerifyFailureLimit int
	// WeakHMACAllowed is true when secrets shorter than 32 bytes are accepted.
	WeakHMACAllowed bool
}

// SecurityReport describes e as built.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	minHMAC := e.config.Token.MinHMACKeyBytes
	if minHMAC == 0 {
		minHMAC = 1
	}

	algorithms := slices.Clone(e.config.Token.Algorithms)
	pinned := len(algorithms) > 0
	if !pinned {
		algorithms = slices.Clone(token.Algorithms)
	}

	limit := 0
	if e.limiter.Enabled() {
		limit = e.config.Limits.MaxVerifyFailures
	}

	return SecurityReport{
		MinHMACKeyBytes:    minHMAC,
		MaxLifetime:        e.config.Token.MaxLifetime,
		Algorithms:         algorithms,
		AlgorithmsPinned:   pinned,
		KeyringConfigured:  e.keyring != nil,
		AuditEnabled:       e.audit != nil,
		AuditDropIfFull:    e.config.Audit.Enabled && e.config.Audit.DropIfFull,
		MetricsEnabled:     e.metrics.Enabled(),
		LatencyHistograms:  e.metrics.LatencyEnabled(),
		ResultsCapacity:    e.config.Results.Capacity,
		VerifyFailureLimit: limit,
		WeakHMACAllowed:    minHMAC < 32,
	}
}
