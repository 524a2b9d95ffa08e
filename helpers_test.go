package goGrant

import (
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goGrant/keyring"
	"github.com/MrEthical07/goGrant/token"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func buildTestEngine(t testing.TB, b *Builder) *Engine {
	t.Helper()
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func newStaticKeyring(t testing.TB, records ...keyring.Record) *keyring.Static {
	t.Helper()
	ring, err := keyring.NewStatic(records...)
	if err != nil {
		t.Fatalf("static keyring: %v", err)
	}
	return ring
}

func hsRecord(id, secret string, created time.Time) keyring.Record {
	return keyring.Record{ID: id, Algorithm: token.HS256, Secret: []byte(secret), CreatedAt: created}
}
