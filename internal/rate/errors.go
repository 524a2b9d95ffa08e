package rate

import "errors"

var (
	// ErrRateLimited is returned once a client exhausts its failure budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps Redis failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
