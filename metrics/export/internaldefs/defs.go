package internaldefs

import (
	goGrant "github.com/MrEthical07/goGrant"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   goGrant.MetricID
	Name string
	Help string
}

// HistogramDef names one engine latency histogram for exporters.
type HistogramDef struct {
	ID   goGrant.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: goGrant.MetricTokenCreated, Name: "gogrant_token_created_total", Help: "Tokens signed."},
	{ID: goGrant.MetricTokenCreateFailure, Name: "gogrant_token_create_failure_total", Help: "Token creations that failed."},
	{ID: goGrant.MetricVerifyValid, Name: "gogrant_verify_valid_total", Help: "Tokens verified successfully."},
	{ID: goGrant.MetricVerifyMalformed, Name: "gogrant_verify_malformed_total", Help: "Verifications rejected as malformed."},
	{ID: goGrant.MetricVerifyUnsupportedAlgorithm, Name: "gogrant_verify_unsupported_algorithm_total", Help: "Verifications rejected for an unsupported algorithm."},
	{ID: goGrant.MetricVerifySignatureInvalid, Name: "gogrant_verify_signature_invalid_total", Help: "Verifications where no candidate key matched."},
	{ID: goGrant.MetricVerifyExpired, Name: "gogrant_verify_expired_total", Help: "Verifications rejected as expired."},
	{ID: goGrant.MetricVerifyGrantMismatch, Name: "gogrant_verify_grant_mismatch_total", Help: "Verifications whose grant did not match."},
	{ID: goGrant.MetricVerifyNoKeys, Name: "gogrant_verify_no_keys_total", Help: "Verifications attempted with an empty keyring."},
	{ID: goGrant.MetricResultRetained, Name: "gogrant_result_retained_total", Help: "Results parked in the result table."},
	{ID: goGrant.MetricResultReleased, Name: "gogrant_result_released_total", Help: "Results released."},
	{ID: goGrant.MetricRateLimitHit, Name: "gogrant_rate_limit_hit_total", Help: "Verification requests denied by the failure limiter."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goGrant.MetricVerifyLatency, Name: "gogrant_verify_latency_seconds", Help: "Verify latency histogram."},
}

// HistogramBounds are the upper bucket bounds in seconds, rendered for text output.
var HistogramBounds = []string{
	"0.00005",
	"0.0001",
	"0.00025",
	"0.0005",
	"0.001",
	"0.0025",
	"0.005",
	"+Inf",
}

// HistogramUpperBounds are HistogramBounds as floats, without the +Inf bucket.
var HistogramUpperBounds = []float64{
	0.00005,
	0.0001,
	0.00025,
	0.0005,
	0.001,
	0.0025,
	0.005,
}

// HistogramBoundSuffix is HistogramBounds made safe for instrument names.
var HistogramBoundSuffix = []string{
	"0_00005",
	"0_0001",
	"0_00025",
	"0_0005",
	"0_001",
	"0_0025",
	"0_005",
	"inf",
}

// NormalizeBuckets copies raw into a fixed eight-bucket array, padding with zeros.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
