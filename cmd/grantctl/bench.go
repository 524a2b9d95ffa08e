package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	goGrant "github.com/MrEthical07/goGrant"
	"github.com/MrEthical07/goGrant/grant"
	"github.com/MrEthical07/goGrant/keyring"
	"github.com/MrEthical07/goGrant/token"
)

func newBenchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Load test token creation and verification in process",
		Long: `Seed a keyring with --keys generated keys, then run a create phase and a verify
phase of --ops operations each across --concurrency workers. Verify tokens are signed
by random keys, so the rotation search walks past newer keys.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runBench(cmd.Context(), cmd.OutOrStdout())
		},
	}
	fs := cmd.Flags()
	fs.String("alg", "HS256", "key algorithm")
	fs.Int("keys", 4, "active keys in the keyring")
	fs.Int("grants", 1000, "distinct grants")
	fs.Int("concurrency", 64, "concurrent workers")
	fs.Int("ops", 200000, "operations per phase")
	return cmd
}

type benchInput struct {
	engine *goGrant.Engine
	keys   []token.Key
	grants []grant.Grant
	tokens []string
}

func (a *app) runBench(ctx context.Context, out io.Writer) error {
	keys, grants, concurrency, ops := a.v.GetInt("keys"), a.v.GetInt("grants"), a.v.GetInt("concurrency"), a.v.GetInt("ops")
	if keys <= 0 || grants <= 0 || concurrency <= 0 || ops <= 0 {
		return errors.New("keys, grants, concurrency and ops must be > 0")
	}
	alg, err := token.ParseAlgorithm(a.v.GetString("alg"))
	if err != nil {
		return err
	}

	in, err := seedBench(ctx, alg, keys, grants)
	if err != nil {
		return err
	}
	defer in.engine.Close()

	createStats := runPhase(ops, concurrency, func(r *rand.Rand, _ int) error {
		key := in.keys[r.Intn(len(in.keys))]
		env := in.engine.CreateToken(ctx, key.Algorithm.String(), key.Secret, 3600, in.grants[r.Intn(len(in.grants))])
		defer func() { _ = env.Release() }()
		return env.Err()
	})
	verifyStats := runPhase(ops, concurrency, func(_ *rand.Rand, i int) error {
		idx := i % len(in.tokens)
		_, err := in.engine.Verify(ctx, in.tokens[idx], in.grants[idx%len(in.grants)])
		return err
	})

	fmt.Fprintln(out, "---- results ----")
	printStats(out, "create", createStats)
	printStats(out, "verify", verifyStats)
	return nil
}

func seedBench(ctx context.Context, alg token.Algorithm, keyCount, grantCount int) (*benchInput, error) {
	base := time.Now().Add(-time.Hour)
	records := make([]keyring.Record, keyCount)
	for i := range records {
		r, err := keyring.Generate(alg)
		if err != nil {
			return nil, err
		}
		r.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		records[i] = r
	}
	ring, err := keyring.NewStatic(records...)
	if err != nil {
		return nil, err
	}
	engine, err := goGrant.New().WithKeyring(ring).WithLatencyHistograms(true).Build()
	if err != nil {
		return nil, err
	}

	in := &benchInput{engine: engine, grants: make([]grant.Grant, grantCount)}
	for i := range in.grants {
		in.grants[i] = grant.New(fmt.Sprintf("resource-%d", i), "read")
	}
	for _, r := range records {
		in.keys = append(in.keys, r.Key())
	}

	// one token per grant, each signed by a random key so verification exercises
	// the full rotation search
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	for _, g := range in.grants {
		key := in.keys[rnd.Intn(len(in.keys))]
		env := engine.CreateToken(ctx, key.Algorithm.String(), key.Secret, 3600, g)
		tok, err := env.Payload()
		_ = env.Release()
		if err != nil {
			engine.Close()
			return nil, fmt.Errorf("seed token: %w", err)
		}
		in.tokens = append(in.tokens, string(tok))
	}
	return in, nil
}

func runPhase(ops, concurrency int, op func(r *rand.Rand, i int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			local := make([]time.Duration, 0, ops/concurrency+1)
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					break
				}
				t0 := time.Now()
				if err := op(r, i); err != nil {
					atomic.AddInt64(&failures, 1)
				}
				local = append(local, time.Since(t0))
			}
			mu.Lock()
			latencies = append(latencies, local...)
			mu.Unlock()
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(out io.Writer, name string, s phaseStats) {
	fmt.Fprintf(out, "%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
