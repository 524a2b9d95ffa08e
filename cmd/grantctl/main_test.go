package main

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/MrEthical07/goGrant/keyring"
	"github.com/MrEthical07/goGrant/token"
)

var testSecret = "0123456789abcdef0123456789abcdef"

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append(args, "--env-file", "", "--log-level", "error"))
	err := cmd.Execute()
	return out.String(), err
}

func writeKeyring(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "keys.yaml")
	doc := "keys:\n" +
		"  - id: new\n    algorithm: HS256\n    secret: " + base64.StdEncoding.EncodeToString([]byte(testSecret)) + "\n    created_at: 2026-10-01T00:00:00Z\n" +
		"  - id: old\n    algorithm: HS256\n    secret: " + base64.StdEncoding.EncodeToString([]byte("an-older-secret-an-older-secret!")) + "\n    created_at: 2026-09-01T00:00:00Z\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write keyring: %v", err)
	}
	return path
}

func TestCreateAndVerifyWithSecrets(t *testing.T) {
	out, err := run(t, "", "create", "--secret", testSecret, "--target", "orders", "--action", "read", "--lifetime", "60")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	tok := strings.TrimSpace(out)
	if strings.Count(tok, ".") != 2 {
		t.Fatalf("unexpected token %q", tok)
	}

	out, err = run(t, tok+"\n", "verify", "--candidate", "wrong,secret-with-a-comma-in-it-xyz", "--candidate", testSecret, "--target", "orders", "--action", "read")
	if err != nil {
		t.Fatalf("verify: %v (%s)", err, out)
	}
	var claims token.Claims
	if err := json.Unmarshal([]byte(out), &claims); err != nil {
		t.Fatalf("decode claims %q: %v", out, err)
	}
	if claims.Grant.Target != "orders" || claims.Algorithm != token.HS256 {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestVerifyReportsReasonCode(t *testing.T) {
	out, err := run(t, "", "create", "--secret", testSecret, "--target", "orders", "--action", "read")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	out, err = run(t, "", "verify", strings.TrimSpace(out), "--candidate", testSecret, "--target", "orders", "--action", "write")
	var failed failedResult
	if !errors.As(err, &failed) || failed.code != token.ReasonGrantMismatch {
		t.Fatalf("expected grant_mismatch failure, got %v", err)
	}
	if !strings.HasPrefix(out, "grant_mismatch:") {
		t.Fatalf("output %q does not lead with the reason", out)
	}
}

func TestVerifyAlgorithmFlagPinsCandidates(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	pubB64 := base64.StdEncoding.EncodeToString(pub)

	forged, err := run(t, "", "create", "--alg", "HS256", "--secret-b64", pubB64, "--target", "orders", "--action", "read")
	if err != nil {
		t.Fatalf("create forged: %v", err)
	}
	out, err := run(t, "", "verify", strings.TrimSpace(forged), "--candidate-b64", pubB64, "--algorithm", "EdDSA", "--target", "orders", "--action", "read")
	var failed failedResult
	if !errors.As(err, &failed) || failed.code != token.ReasonSignatureInvalid {
		t.Fatalf("expected signature_invalid, got %v (%s)", err, out)
	}

	signed, err := run(t, "", "create", "--alg", "EdDSA", "--secret-b64", base64.StdEncoding.EncodeToString(priv), "--target", "orders", "--action", "read")
	if err != nil {
		t.Fatalf("create EdDSA: %v", err)
	}
	out, err = run(t, "", "verify", strings.TrimSpace(signed), "--candidate-b64", pubB64, "--algorithm", "EdDSA", "--target", "orders", "--action", "read")
	if err != nil {
		t.Fatalf("verify EdDSA: %v (%s)", err, out)
	}
}

func TestStaticKeyringRoundTrip(t *testing.T) {
	path := writeKeyring(t)

	out, err := run(t, "", "create", "--keyring-file", path, "--target", "orders", "--action", "read")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	tok := strings.TrimSpace(out)

	out, err = run(t, "", "verify", tok, "--keyring-file", path, "--target", "orders", "--action", "read")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !strings.Contains(out, `"kid": "new"`) {
		t.Fatalf("expected newest key to sign, got %s", out)
	}

	if _, err := run(t, "", "keys", "add", "--keyring-file", path); !errors.Is(err, errReadOnlyKeyring) {
		t.Fatalf("expected read-only error, got %v", err)
	}
}

func TestSQLiteKeyManagement(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "keys.db")
	t.Setenv("GOGRANT_KEYRING", "sqlite")
	t.Setenv("GOGRANT_SQLITE_DSN", dsn)

	if _, err := run(t, "", "keys", "add", "--id", "first", "--alg", "HS384"); err != nil {
		t.Fatalf("add first: %v", err)
	}
	out, err := run(t, "", "keys", "add", "--id", "second", "--alg", "EdDSA")
	if err != nil {
		t.Fatalf("add second: %v", err)
	}
	if strings.TrimSpace(out) != "second" {
		t.Fatalf("add printed %q", out)
	}

	tok, err := run(t, "", "create", "--target", "orders", "--action", "read")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := run(t, "", "keys", "retire", "second"); err != nil {
		t.Fatalf("retire: %v", err)
	}
	out, err = run(t, "", "keys", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[1], "second") || !strings.Contains(lines[1], "retired") || !strings.Contains(lines[2], "active") {
		t.Fatalf("unexpected listing:\n%s", out)
	}

	_, err = run(t, "", "verify", strings.TrimSpace(tok), "--target", "orders", "--action", "read")
	var failed failedResult
	if !errors.As(err, &failed) || failed.code != token.ReasonSignatureInvalid {
		t.Fatalf("token from a retired key: expected signature_invalid, got %v", err)
	}
}

func TestDotenvConfiguresFlags(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("GOGRANT_KEYRING_FILE="+writeKeyring(t)+"\n"), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Cleanup(func() { _ = os.Unsetenv("GOGRANT_KEYRING_FILE") })

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"create", "--env-file", envFile, "--log-level", "error", "--target", "orders", "--action", "read"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("create with dotenv keyring: %v", err)
	}
}

func TestBenchRuns(t *testing.T) {
	out, err := run(t, "", "bench", "--keys", "3", "--grants", "10", "--concurrency", "4", "--ops", "50")
	if err != nil {
		t.Fatalf("bench: %v", err)
	}
	if !strings.Contains(out, "create: ops=50 failures=0") || !strings.Contains(out, "verify: ops=50 failures=0") {
		t.Fatalf("unexpected bench output:\n%s", out)
	}
}

func TestUnknownKeyringBackend(t *testing.T) {
	if _, err := run(t, "", "keys", "list", "--keyring", "vault"); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestParseBenchmarks(t *testing.T) {
	samples, err := parseBenchmarks(strings.NewReader(`goos: linux
BenchmarkVerifyTokenEnvelope-8   	 1000000	      1200 ns/op	     512 B/op	       9 allocs/op
BenchmarkVerifyTokenEnvelope-8   	 1000000	      1000 ns/op	     512 B/op	       9 allocs/op
BenchmarkMetricsInc-8            	 9000000	        12 ns/op
PASS
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got := samples["BenchmarkVerifyTokenEnvelope"]["ns/op"]
	if len(got) != 2 || median(got) != 1100 {
		t.Fatalf("unexpected samples %v", got)
	}
	if _, ok := samples["BenchmarkMetricsInc"]; ok {
		t.Fatal("untracked benchmark was kept")
	}
}

func TestPerfCheckThreshold(t *testing.T) {
	dir := t.TempDir()
	baseline := filepath.Join(dir, "base.txt")
	candidate := filepath.Join(dir, "cand.txt")
	write := func(path string, ns int) {
		line := "BenchmarkCreateHS256-4 100000 " + strconv.Itoa(ns) + " ns/op\n"
		if err := os.WriteFile(path, []byte(line), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	write(baseline, 1000)
	write(candidate, 1200)
	out, err := run(t, "", "perfcheck", "--baseline", baseline, "--candidate", candidate)
	if err != nil {
		t.Fatalf("20%% slower should pass the default threshold: %v", err)
	}
	if !strings.Contains(out, "BenchmarkCreateHS256 ns/op 1000.000 1200.000 +20.00%") {
		t.Fatalf("unexpected output %q", out)
	}

	write(candidate, 1500)
	if _, err := run(t, "", "perfcheck", "--baseline", baseline, "--candidate", candidate); err == nil {
		t.Fatal("expected regression failure")
	}
}

func TestSealedSQLiteKeyring(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "sealed.db")
	master := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("m", 32)))
	other := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("n", 32)))
	common := []string{"--keyring", "sqlite", "--sqlite-dsn", dsn}

	if _, err := run(t, "", append([]string{"keys", "add", "--id", "k1", "--master-key-b64", master}, common...)...); err != nil {
		t.Fatalf("add: %v", err)
	}
	tok, err := run(t, "", append([]string{"create", "--target", "orders", "--action", "read", "--master-key-b64", master}, common...)...)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := run(t, "", append([]string{"verify", strings.TrimSpace(tok), "--target", "orders", "--action", "read", "--master-key-b64", master}, common...)...); err != nil {
		t.Fatalf("verify: %v", err)
	}

	if _, err := run(t, "", append([]string{"keys", "list", "--master-key-b64", other}, common...)...); !errors.Is(err, keyring.ErrSealed) {
		t.Fatalf("expected ErrSealed with another master key, got %v", err)
	}
}
