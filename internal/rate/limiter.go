package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds limiter tuning parameters.
type Config struct {
	// MaxFailures is the number of failed verifications a client may make per window.
	MaxFailures int
	Window      time.Duration
	Prefix      string
}

// Limiter caps failed token verifications per client using Redis fixed-window
// counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if cfg.Prefix == "" {
		cfg.Prefix = "ggv"
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// Enabled reports whether the limiter enforces anything.
func (l *Limiter) Enabled() bool {
	return l != nil && l.redis != nil && l.config.MaxFailures > 0
}

// Check returns ErrRateLimited when client has exhausted its failure budget.
func (l *Limiter) Check(ctx context.Context, client string) error {
	if !l.Enabled() {
		return nil
	}
	count, err := l.redis.Get(ctx, l.key(client)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count >= int64(l.config.MaxFailures) {
		return ErrRateLimited
	}
	return nil
}

// RecordFailure counts one failed verification for client.
func (l *Limiter) RecordFailure(ctx context.Context, client string) error {
	if !l.Enabled() {
		return nil
	}
	_, err := l.incrementWithTTL(ctx, l.key(client), l.config.Window)
	return err
}

// Reset clears the failure counter for client.
func (l *Limiter) Reset(ctx context.Context, client string) error {
	if !l.Enabled() {
		return nil
	}
	if err := l.redis.Del(ctx, l.key(client)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Failures returns the current counter for client. Missing keys return zero.
func (l *Limiter) Failures(ctx context.Context, client string) (int, error) {
	if !l.Enabled() {
		return 0, nil
	}
	count, err := l.redis.Get(ctx, l.key(client)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

func (l *Limiter) key(client string) string {
	return l.config.Prefix + ":" + client
}

// incrementScript bumps a fixed-window counter and starts the window on the first hit,
// in one round trip so a counter never outlives its window.
var incrementScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := incrementScript.Run(ctx, l.redis, []string{key}, ttl.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return count, nil
}
