package keyring

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/MrEthical07/goGrant/token"
)

const sampleYAML = `
keys:
  - id: current
    algorithm: HS256
    secret: Y3VycmVudC1zZWNyZXQ=
  - id: previous
    algorithm: HS256
    secret: cHJldmlvdXMtc2VjcmV0
  - id: revoked
    algorithm: HS512
    secret: cmV2b2tlZA==
    retired: true
`

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	keys, err := s.Candidates(context.Background())
	if err != nil {
		t.Fatalf("candidates: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("got %d active keys, want 2", len(keys))
	}
	if keys[0].ID != "current" || string(keys[0].Secret) != "current-secret" {
		t.Fatalf("unexpected first key %+v", keys[0])
	}
	if keys[1].ID != "previous" || keys[1].Algorithm != token.HS256 {
		t.Fatalf("unexpected second key %+v", keys[1])
	}
}

func TestParseYAMLRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"algorithm": "keys:\n  - id: a\n    algorithm: none\n    secret: YQ==\n",
		"secret":    "keys:\n  - id: a\n    algorithm: HS256\n    secret: '***'\n",
		"missing id": "keys:\n  - algorithm: HS256\n    secret: YQ==\n",
		"duplicate": "keys:\n  - id: a\n    algorithm: HS256\n    secret: YQ==\n  - id: a\n    algorithm: HS256\n    secret: YQ==\n",
		"syntax":    "keys: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseYAML([]byte(doc)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error")
	}
}

func TestStaticKeysAreCopies(t *testing.T) {
	s, err := NewStatic(Record{ID: "a", Algorithm: token.HS256, Secret: []byte("secret")})
	if err != nil {
		t.Fatalf("static: %v", err)
	}
	keys, _ := s.Candidates(context.Background())
	keys[0].Secret[0] = 'X'
	again, _ := s.Candidates(context.Background())
	if string(again[0].Secret) != "secret" {
		t.Fatal("candidate secret aliases stored record")
	}
	if _, err := NewStatic(Record{ID: "b", Algorithm: token.HS256}); !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord, got %v", err)
	}
}
