package envelope

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestTableReleaseExactlyOnce(t *testing.T) {
	table := NewTable(0)
	env := Success([]byte("tok"))

	h, err := table.Put(env)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if table.Len() != 1 {
		t.Fatalf("len = %d, want 1", table.Len())
	}

	got, err := table.Get(h)
	if err != nil || got != env {
		t.Fatalf("get: env=%p err=%v", got, err)
	}

	if err := table.Release(h); err != nil {
		t.Fatalf("release: %v", err)
	}
	if !env.Released() {
		t.Fatal("expected envelope released with its handle")
	}
	if err := table.Release(h); !errors.Is(err, ErrUnknownHandle) {
		t.Fatalf("second release: expected ErrUnknownHandle, got %v", err)
	}
	if _, err := table.Get(h); !errors.Is(err, ErrUnknownHandle) {
		t.Fatalf("get after release: expected ErrUnknownHandle, got %v", err)
	}
	if table.Len() != 0 {
		t.Fatalf("len = %d, want 0", table.Len())
	}
}

func TestTableCapacity(t *testing.T) {
	table := NewTable(2)
	for i := 0; i < 2; i++ {
		if _, err := table.Put(Success([]byte("x"))); err != nil {
			t.Fatalf("put %d: %v", i, err)
		}
	}
	if _, err := table.Put(Success([]byte("x"))); !errors.Is(err, ErrTableFull) {
		t.Fatalf("expected ErrTableFull, got %v", err)
	}
}

func TestTableRejectsNilAndReleased(t *testing.T) {
	table := NewTable(0)
	if _, err := table.Put(nil); !errors.Is(err, ErrNilEnvelope) {
		t.Fatalf("expected ErrNilEnvelope, got %v", err)
	}
	env := Success([]byte("x"))
	_ = env.Release()
	if _, err := table.Put(env); !errors.Is(err, ErrReleased) {
		t.Fatalf("expected ErrReleased, got %v", err)
	}
}

func TestTableUnknownHandle(t *testing.T) {
	table := NewTable(0)
	if err := table.Release(uuid.New()); !errors.Is(err, ErrUnknownHandle) {
		t.Fatalf("expected ErrUnknownHandle, got %v", err)
	}
	if _, err := ParseHandle("not-a-handle"); !errors.Is(err, ErrUnknownHandle) {
		t.Fatalf("expected ErrUnknownHandle for bad handle, got %v", err)
	}
}

func TestTableDrain(t *testing.T) {
	table := NewTable(0)
	envs := []*Envelope{Success([]byte("a")), Failure(errors.New("b"))}
	for _, env := range envs {
		if _, err := table.Put(env); err != nil {
			t.Fatalf("put: %v", err)
		}
	}
	if n := table.Drain(); n != 2 {
		t.Fatalf("drained %d, want 2", n)
	}
	for _, env := range envs {
		if !env.Released() {
			t.Fatal("expected drained envelope to be released")
		}
	}
}
