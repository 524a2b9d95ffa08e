package envelope

import (
	"sync"

	"github.com/google/uuid"
)

// Handle addresses an envelope parked in a Table.
type Handle = uuid.UUID

// ParseHandle parses the string form of a Handle.
func ParseHandle(s string) (Handle, error) {
	h, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, ErrUnknownHandle
	}
	return h, nil
}

// Table parks envelopes for hosts that address results by handle. The table owns
// every parked envelope until its handle is released.
type Table struct {
	mu       sync.Mutex
	entries  map[Handle]*Envelope
	capacity int
}

// NewTable returns a table holding at most capacity envelopes. A capacity of zero or
// less means unbounded.
func NewTable(capacity int) *Table {
	return &Table{
		entries:  make(map[Handle]*Envelope),
		capacity: capacity,
	}
}

// Put parks env and returns its handle.
func (t *Table) Put(env *Envelope) (Handle, error) {
	if env == nil {
		return uuid.Nil, ErrNilEnvelope
	}
	if env.Released() {
		return uuid.Nil, ErrReleased
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.capacity > 0 && len(t.entries) >= t.capacity {
		return uuid.Nil, ErrTableFull
	}
	h := uuid.New()
	t.entries[h] = env
	return h, nil
}

// Get returns the parked envelope without transferring ownership. Callers read it and
// must not call Release on it directly.
func (t *Table) Get(h Handle) (*Envelope, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	env, ok := t.entries[h]
	if !ok {
		return nil, ErrUnknownHandle
	}
	return env, nil
}

// Release removes h and releases its envelope. A handle is released exactly once;
// later calls return ErrUnknownHandle.
func (t *Table) Release(h Handle) error {
	t.mu.Lock()
	env, ok := t.entries[h]
	if ok {
		delete(t.entries, h)
	}
	t.mu.Unlock()

	if !ok {
		return ErrUnknownHandle
	}
	return env.Release()
}

// Len returns the number of parked envelopes.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Drain releases every parked envelope and returns how many were outstanding.
func (t *Table) Drain() int {
	t.mu.Lock()
	entries := t.entries
	t.entries = make(map[Handle]*Envelope)
	t.mu.Unlock()

	for _, env := range entries {
		_ = env.Release()
	}
	return len(entries)
}
