package goGrant

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goGrant/token"
)

func newLimitedEngine(t *testing.T, maxFailures int) (*Engine, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := DefaultConfig()
	cfg.Limits.MaxVerifyFailures = maxFailures
	ring := newStaticKeyring(t, hsRecord("k", string(testSecret), newFakeClock().Now()))
	return buildTestEngine(t, New().WithConfig(cfg).WithRedis(rdb).WithKeyring(ring)), mr
}

func TestVerifyFailuresAreLimitedPerClient(t *testing.T) {
	engine, _ := newLimitedEngine(t, 2)
	attacker := WithClientIP(context.Background(), "203.0.113.9")
	other := WithClientIP(context.Background(), "198.51.100.1")

	tok, err := engine.Issue(context.Background(), 60, ordersRead)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	for i := 0; i < 2; i++ {
		env := engine.VerifyToken(attacker, tok, [][]byte{[]byte("wrong-secret")}, ordersRead)
		if env.Code() != token.ReasonSignatureInvalid {
			t.Fatalf("attempt %d: code = %q", i, env.Code())
		}
	}

	env := engine.VerifyToken(attacker, tok, [][]byte{testSecret}, ordersRead)
	if env.Code() != "rate_limited" {
		t.Fatalf("code = %q, want rate_limited", env.Code())
	}
	if !errors.Is(env.Err(), ErrRateLimited) {
		t.Fatalf("envelope error %v does not match ErrRateLimited", env.Err())
	}
	if _, err := engine.Verify(attacker, tok, ordersRead); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("keyring verify: expected ErrRateLimited, got %v", err)
	}

	if _, err := engine.Verify(other, tok, ordersRead); err != nil {
		t.Fatalf("other client limited: %v", err)
	}
	if got := engine.MetricsSnapshot().Counters[MetricRateLimitHit]; got != 2 {
		t.Fatalf("rate limit hits = %d, want 2", got)
	}
}

func TestVerifyWithoutClientIPIsNotLimited(t *testing.T) {
	engine, _ := newLimitedEngine(t, 1)
	ctx := context.Background()
	tok, _ := engine.Issue(ctx, 60, ordersRead)

	for i := 0; i < 3; i++ {
		engine.VerifyToken(ctx, tok, [][]byte{[]byte("wrong")}, ordersRead)
	}
	if _, err := engine.Verify(ctx, tok, ordersRead); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestVerifyFailsClosedWhenLimiterDown(t *testing.T) {
	engine, mr := newLimitedEngine(t, 3)
	ctx := WithClientIP(context.Background(), "203.0.113.9")
	tok, _ := engine.Issue(context.Background(), 60, ordersRead)

	mr.Close()
	_, err := engine.Verify(ctx, tok, ordersRead)
	if !errors.Is(err, ErrRateLimiterUnavailable) {
		t.Fatalf("expected ErrRateLimiterUnavailable, got %v", err)
	}
	if engine.VerifyToken(ctx, tok, [][]byte{testSecret}, ordersRead).Code() != token.ReasonInternal {
		t.Fatal("expected internal code when limiter is unreachable")
	}
}

func TestSecurityReportShowsLimiter(t *testing.T) {
	engine, _ := newLimitedEngine(t, 5)
	if got := engine.SecurityReport().VerifyFailureLimit; got != 5 {
		t.Fatalf("VerifyFailureLimit = %d, want 5", got)
	}
	if got := buildTestEngine(t, New()).SecurityReport().VerifyFailureLimit; got != 0 {
		t.Fatalf("VerifyFailureLimit without redis = %d", got)
	}
}
