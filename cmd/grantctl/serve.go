package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	goGrant "github.com/MrEthical07/goGrant"
	"github.com/MrEthical07/goGrant/metrics/export/prometheus"
	"github.com/MrEthical07/goGrant/server"
	"github.com/MrEthical07/goGrant/token"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the token HTTP API",
		Long: `Serve POST /v1/tokens, POST /v1/tokens/verify and the retained result routes.
Tokens created without an explicit secret are signed with the configured keyring.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.runServe(ctx)
		},
	}

	fs := cmd.Flags()
	fs.String("address", ":8080", "address to listen on")
	fs.Bool("trust-proxy", false, "take client IPs from X-Forwarded-For / X-Real-IP")
	fs.Bool("metrics", true, "serve Prometheus metrics at /metrics")
	fs.Bool("latency-histograms", false, "record the verify latency histogram")
	fs.Bool("audit", false, "log audit events through the process logger")
	fs.Int("min-hmac-bytes", 32, "shortest accepted HMAC secret")
	fs.Duration("max-lifetime", 24*time.Hour, "longest token lifetime accepted (0 = no cap)")
	fs.StringSlice("algorithms", nil, "token algorithms verification accepts, comma separated (empty = all)")
	fs.Int("results-capacity", 10000, "maximum retained results (0 = unbounded)")
	fs.Int("max-verify-failures", 0, "failed verifications allowed per client IP per window (0 = off; needs redis)")
	fs.Duration("failure-window", time.Minute, "window for --max-verify-failures")
	return cmd
}

func (a *app) engineConfig() (goGrant.Config, error) {
	cfg := goGrant.DefaultConfig()
	for _, name := range a.v.GetStringSlice("algorithms") {
		alg, err := token.ParseAlgorithm(strings.TrimSpace(name))
		if err != nil {
			return goGrant.Config{}, fmt.Errorf("--algorithms: %w", err)
		}
		cfg.Token.Algorithms = append(cfg.Token.Algorithms, alg)
	}
	cfg.Token.MinHMACKeyBytes = a.v.GetInt("min-hmac-bytes")
	cfg.Token.MaxLifetime = a.v.GetDuration("max-lifetime")
	cfg.Metrics.Enabled = a.v.GetBool("metrics")
	cfg.Metrics.EnableLatencyHistograms = a.v.GetBool("metrics") && a.v.GetBool("latency-histograms")
	cfg.Results.Capacity = a.v.GetInt("results-capacity")
	cfg.Limits.MaxVerifyFailures = a.v.GetInt("max-verify-failures")
	cfg.Limits.Window = a.v.GetDuration("failure-window")
	return cfg, nil
}

func (a *app) runServe(ctx context.Context) error {
	b, err := a.openKeyring(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	cfg, err := a.engineConfig()
	if err != nil {
		return err
	}
	builder := goGrant.New().WithConfig(cfg).WithKeyring(b.store)
	if a.v.GetBool("audit") {
		builder.WithAuditSink(goGrant.NewZapSink(a.logger))
	}
	if cfg.Limits.MaxVerifyFailures > 0 {
		client, err := a.openRedis(ctx, b)
		if err != nil {
			return err
		}
		builder.WithRedis(client)
	}

	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	opts := []server.Option{
		server.WithLogger(a.logger.Named("http")),
		server.WithConfig(server.Config{TrustProxy: a.v.GetBool("trust-proxy")}),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, server.WithMetricsHandler(prometheus.NewPrometheusExporter(engine).Handler()))
	}
	srv, err := server.New(engine, opts...)
	if err != nil {
		return err
	}

	report := engine.SecurityReport()
	a.logger.Info("starting grant server",
		zap.String("address", a.v.GetString("address")),
		zap.String("keyring", a.v.GetString("keyring")),
		zap.Int("min_hmac_bytes", report.MinHMACKeyBytes),
		zap.Duration("max_lifetime", report.MaxLifetime),
		zap.Stringers("algorithms", report.Algorithms),
		zap.Int("verify_failure_limit", report.VerifyFailureLimit),
		zap.Bool("audit", report.AuditEnabled),
	)
	if report.WeakHMACAllowed {
		a.logger.Warn("HMAC secrets shorter than 32 bytes are accepted")
	}

	return srv.ListenAndServe(ctx, a.v.GetString("address"))
}
