package goGrant

import (
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/goGrant/token"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{name: "defaults", mutate: func(*Config) {}, wantValid: true},
		{
			name:      "min hmac negative",
			mutate:    func(c *Config) { c.Token.MinHMACKeyBytes = -1 },
			wantValid: false,
		},
		{
			name:      "min hmac hardened",
			mutate:    func(c *Config) { c.Token.MinHMACKeyBytes = 32 },
			wantValid: true,
		},
		{
			name:      "max lifetime negative",
			mutate:    func(c *Config) { c.Token.MaxLifetime = -time.Second },
			wantValid: false,
		},
		{
			name:      "max lifetime fractional",
			mutate:    func(c *Config) { c.Token.MaxLifetime = 1500 * time.Millisecond },
			wantValid: false,
		},
		{
			name:      "algorithms pinned",
			mutate:    func(c *Config) { c.Token.Algorithms = []token.Algorithm{token.EdDSA} },
			wantValid: true,
		},
		{
			name:      "algorithms unsupported",
			mutate:    func(c *Config) { c.Token.Algorithms = []token.Algorithm{token.HS256, 0} },
			wantValid: false,
		},
		{
			name:      "audit zero buffer",
			mutate:    func(c *Config) { c.Audit = AuditConfig{Enabled: true, BufferSize: 0} },
			wantValid: false,
		},
		{
			name:      "latency without metrics",
			mutate:    func(c *Config) { c.Metrics = MetricsConfig{Enabled: false, EnableLatencyHistograms: true} },
			wantValid: false,
		},
		{
			name:      "results unbounded",
			mutate:    func(c *Config) { c.Results.Capacity = 0 },
			wantValid: true,
		},
		{
			name:      "results negative",
			mutate:    func(c *Config) { c.Results.Capacity = -5 },
			wantValid: false,
		},
		{
			name:      "limits negative",
			mutate:    func(c *Config) { c.Limits.MaxVerifyFailures = -1 },
			wantValid: false,
		},
		{
			name: "limits without window",
			mutate: func(c *Config) {
				c.Limits.MaxVerifyFailures = 10
				c.Limits.Window = 0
			},
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantValid && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tt.wantValid && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Token.MinHMACKeyBytes = -1
	if _, err := New().WithConfig(cfg).Build(); err == nil {
		t.Fatal("expected build error")
	}
}

func TestBuilderIsSingleUse(t *testing.T) {
	b := New()
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer engine.Close()
	if _, err := b.Build(); !errors.Is(err, ErrBuilderUsed) {
		t.Fatalf("expected ErrBuilderUsed, got %v", err)
	}
}

func TestBuildConfigImmutableAfterBuild(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Token.MinHMACKeyBytes = 32
	b := New().WithConfig(cfg)
	cfg.Token.MinHMACKeyBytes = 1

	engine := buildTestEngine(t, b)
	if got := engine.SecurityReport().MinHMACKeyBytes; got != 32 {
		t.Fatalf("MinHMACKeyBytes = %d, want 32", got)
	}
}
