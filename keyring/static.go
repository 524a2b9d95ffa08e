package keyring

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MrEthical07/goGrant/token"
)

// Static is an in-memory Store. It is safe for concurrent use.
type Static struct {
	mu      sync.RWMutex
	records []Record
	now     func() time.Time
}

var _ Store = (*Static)(nil)

// NewStatic returns a Static holding records, ordered newest first. Records without
// a creation time keep their relative order.
func NewStatic(records ...Record) (*Static, error) {
	s := &Static{now: time.Now}
	for _, r := range records {
		if err := r.validate(); err != nil {
			return nil, err
		}
		if r.ID == "" {
			return nil, fmt.Errorf("%w: missing id", ErrInvalidRecord)
		}
		for _, existing := range s.records {
			if existing.ID == r.ID {
				return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, r.ID)
			}
		}
		s.records = append(s.records, r)
	}
	sortNewestFirst(s.records)
	return s, nil
}

// Signing implements Source.
func (s *Static) Signing(ctx context.Context) (token.Key, error) {
	keys, err := s.Candidates(ctx)
	if err != nil {
		return token.Key{}, err
	}
	return signingFrom(keys)
}

// Candidates implements Source.
func (s *Static) Candidates(context.Context) ([]token.Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return activeKeys(s.records), nil
}

// Add stores r in front of the existing keys.
func (s *Static) Add(_ context.Context, r Record) (Record, error) {
	r, err := prepare(r, s.now())
	if err != nil {
		return Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.records {
		if existing.ID == r.ID {
			return Record{}, fmt.Errorf("%w: %s", ErrAlreadyExists, r.ID)
		}
	}
	s.records = append([]Record{r}, s.records...)
	sortNewestFirst(s.records)
	return r, nil
}

// List returns every record, active and retired, newest first.
func (s *Static) List(context.Context) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out, nil
}

// Retire marks id retired. Retiring a retired key is a no-op.
func (s *Static) Retire(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if s.records[i].ID != id {
			continue
		}
		if s.records[i].Active() {
			s.records[i].RetiredAt = s.now()
		}
		return nil
	}
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Close implements Store.
func (s *Static) Close() error { return nil }

type fileKey struct {
	ID        string    `yaml:"id"`
	Algorithm string    `yaml:"algorithm"`
	Secret    string    `yaml:"secret"`
	CreatedAt time.Time `yaml:"created_at,omitempty"`
	Retired   bool      `yaml:"retired,omitempty"`
}

type fileKeyring struct {
	Keys []fileKey `yaml:"keys"`
}

// LoadFile reads a YAML keyring:
//
//	keys:
//	  - id: 2026-10
//	    algorithm: HS256
//	    secret: <base64>
//	    created_at: 2026-10-01T00:00:00Z
//
// Keys without created_at are taken as listed, newest first.
func LoadFile(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("keyring: read %s: %w", path, err)
	}
	return ParseYAML(data)
}

// ParseYAML parses the LoadFile format.
func ParseYAML(data []byte) (*Static, error) {
	var doc fileKeyring
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	records := make([]Record, 0, len(doc.Keys))
	for i, k := range doc.Keys {
		alg, err := token.ParseAlgorithm(k.Algorithm)
		if err != nil {
			return nil, fmt.Errorf("%w: key %d: %v", ErrInvalidRecord, i, err)
		}
		secret, err := base64.StdEncoding.DecodeString(k.Secret)
		if err != nil {
			return nil, fmt.Errorf("%w: key %d: secret is not base64", ErrInvalidRecord, i)
		}
		r := Record{ID: k.ID, Algorithm: alg, Secret: secret, CreatedAt: k.CreatedAt}
		if k.Retired {
			r.RetiredAt = time.Unix(0, 0)
		}
		records = append(records, r)
	}
	return NewStatic(records...)
}
