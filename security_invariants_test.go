package goGrant

import (
	"context"
	"errors"
	"testing"

	"github.com/MrEthical07/goGrant/grant"
	"github.com/MrEthical07/goGrant/keyring"
	"github.com/MrEthical07/goGrant/token"
)

func TestSecurityInvariantTamperNeverVerifies(t *testing.T) {
	engine := buildTestEngine(t, New())
	ctx := context.Background()
	raw, err := engine.CreateToken(ctx, "HS256", testSecret, 600, ordersRead).Payload()
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	firstDot := -1
	for i, c := range raw {
		if c == '.' {
			firstDot = i
			break
		}
	}
	for i := firstDot + 1; i < len(raw); i++ {
		if raw[i] == '.' {
			continue
		}
		tampered := append([]byte(nil), raw...)
		tampered[i] ^= 0x01
		env := engine.VerifyToken(ctx, string(tampered), [][]byte{testSecret}, ordersRead)
		if env.OK() {
			t.Fatalf("tampered byte %d verified", i)
		}
		if env.Code() != token.ReasonSignatureInvalid {
			t.Fatalf("tampered byte %d: code = %q, want signature_invalid", i, env.Code())
		}
	}
}

func TestSecurityInvariantKeyringFamilyIsolation(t *testing.T) {
	edRecord, err := keyring.Generate(token.EdDSA)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	edRecord.ID = "ed"
	ring := newStaticKeyring(t, edRecord)
	engine := buildTestEngine(t, New().WithKeyring(ring))
	ctx := context.Background()

	// An HMAC token keyed with the stored EdDSA key bytes must not verify: keyring
	// keys only match tokens of their own algorithm.
	forged := engine.CreateToken(ctx, "HS256", edRecord.Secret, 600, ordersRead)
	tok, err := forged.Payload()
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := engine.Verify(ctx, string(tok), ordersRead); !errors.Is(err, token.ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
}

func TestSecurityInvariantGrantIsExact(t *testing.T) {
	engine := buildTestEngine(t, New())
	ctx := context.Background()
	tok, _ := engine.CreateToken(ctx, "HS256", testSecret, 600, ordersRead).Payload()

	for _, g := range []grant.Grant{
		grant.New("orders", "Read"),
		grant.New("Orders", "read"),
		grant.New("orders", "read "),
		grant.New("orders", ""),
		grant.New("orders/1", "read"),
	} {
		env := engine.VerifyToken(ctx, string(tok), [][]byte{testSecret}, g)
		if !errors.Is(env.Err(), token.ErrGrantMismatch) {
			t.Fatalf("grant %q: expected mismatch, got %v", g, env.Err())
		}
	}
}

func TestSecurityInvariantEnvelopesDoNotAliasInputs(t *testing.T) {
	engine := buildTestEngine(t, New())
	ctx := context.Background()
	secret := append([]byte(nil), testSecret...)

	env := engine.CreateToken(ctx, "HS256", secret, 600, ordersRead)
	tok, _ := env.Payload()
	for i := range secret {
		secret[i] = 0
	}
	if v := engine.VerifyToken(ctx, string(tok), [][]byte{testSecret}, ordersRead); !v.OK() {
		t.Fatalf("verify after caller zeroed its secret: %v", v.Err())
	}

	if err := engine.Release(ctx, env); err != nil {
		t.Fatalf("release: %v", err)
	}
	if string(tok) == "" {
		t.Fatal("caller copy cleared by release")
	}
}
