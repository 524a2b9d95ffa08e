package keyring

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"sort"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/MrEthical07/goGrant/token"
)

// Record is a stored signing key.
type Record struct {
	ID        string
	Algorithm token.Algorithm
	Secret    []byte
	CreatedAt time.Time
	// RetiredAt is zero while the key is active.
	RetiredAt time.Time
}

// Active reports whether the key still signs and verifies.
func (r Record) Active() bool {
	return r.RetiredAt.IsZero()
}

// Key returns the token key for r.
func (r Record) Key() token.Key {
	secret := make([]byte, len(r.Secret))
	copy(secret, r.Secret)
	return token.Key{ID: r.ID, Algorithm: r.Algorithm, Secret: secret}
}

func (r Record) validate() error {
	if !r.Algorithm.Valid() {
		return fmt.Errorf("%w: unsupported algorithm %q", ErrInvalidRecord, r.Algorithm)
	}
	if len(r.Secret) == 0 {
		return fmt.Errorf("%w: empty secret", ErrInvalidRecord)
	}
	return nil
}

// prepare fills in the id and creation time of a record about to be stored.
func prepare(r Record, now time.Time) (Record, error) {
	if err := r.validate(); err != nil {
		return Record{}, err
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	secret := make([]byte, len(r.Secret))
	copy(secret, r.Secret)
	r.Secret = secret
	return r, nil
}

// Generate returns a new record with fresh key material for alg. HMAC secrets match
// the digest size; EdDSA records hold the 64-byte private key.
func Generate(alg token.Algorithm) (Record, error) {
	var secret []byte
	switch alg {
	case token.HS256:
		secret = make([]byte, 32)
	case token.HS384:
		secret = make([]byte, 48)
	case token.HS512:
		secret = make([]byte, 64)
	case token.EdDSA:
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return Record{}, fmt.Errorf("keyring: generate ed25519 key: %w", err)
		}
		return Record{ID: uuid.NewString(), Algorithm: alg, Secret: priv}, nil
	default:
		return Record{}, fmt.Errorf("%w: unsupported algorithm %q", ErrInvalidRecord, alg)
	}
	if _, err := rand.Read(secret); err != nil {
		return Record{}, fmt.Errorf("keyring: generate secret: %w", err)
	}
	return Record{ID: uuid.NewString(), Algorithm: alg, Secret: secret}, nil
}

// Source yields the keys used to sign and verify tokens.
type Source interface {
	// Signing returns the newest active key.
	Signing(ctx context.Context) (token.Key, error)
	// Candidates returns every active key, newest first.
	Candidates(ctx context.Context) ([]token.Key, error)
}

// Store is a Source that can be managed.
type Store interface {
	Source
	Add(ctx context.Context, r Record) (Record, error)
	List(ctx context.Context) ([]Record, error)
	Retire(ctx context.Context, id string) error
	Close() error
}

// sortNewestFirst orders records by creation time, newest first. Ties keep their
// existing order.
func sortNewestFirst(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
}

func activeKeys(records []Record) []token.Key {
	keys := make([]token.Key, 0, len(records))
	for _, r := range records {
		if r.Active() {
			keys = append(keys, r.Key())
		}
	}
	return keys
}

func signingFrom(keys []token.Key) (token.Key, error) {
	if len(keys) == 0 {
		return token.Key{}, ErrNoKeys
	}
	return keys[0], nil
}

var (
	recordEnc cbor.EncMode
	recordDec cbor.DecMode
)

func init() {
	var err error
	recordEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("keyring: CBOR encoder initialization failed: " + err.Error())
	}
	recordDec, err = cbor.DecOptions{DupMapKey: cbor.DupMapKeyEnforcedAPF}.DecMode()
	if err != nil {
		panic("keyring: CBOR decoder initialization failed: " + err.Error())
	}
}

type recordWire struct {
	ID        string `cbor:"1,keyasint"`
	Algorithm string `cbor:"2,keyasint"`
	Secret    []byte `cbor:"3,keyasint"`
	CreatedAt int64  `cbor:"4,keyasint"`
	RetiredAt int64  `cbor:"5,keyasint,omitempty"`
}

func encodeRecord(r Record, sealer *Sealer) ([]byte, error) {
	secret, err := sealer.Seal(r.ID, r.Secret)
	if err != nil {
		return nil, err
	}
	w := recordWire{
		ID:        r.ID,
		Algorithm: r.Algorithm.String(),
		Secret:    secret,
		CreatedAt: r.CreatedAt.UnixNano(),
	}
	if !r.RetiredAt.IsZero() {
		w.RetiredAt = r.RetiredAt.UnixNano()
	}
	return recordEnc.Marshal(w)
}

func decodeRecord(data []byte, sealer *Sealer) (Record, error) {
	var w recordWire
	if err := recordDec.Unmarshal(data, &w); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	alg, err := token.ParseAlgorithm(w.Algorithm)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	secret, err := sealer.Open(w.ID, w.Secret)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	r := Record{
		ID:        w.ID,
		Algorithm: alg,
		Secret:    secret,
		CreatedAt: time.Unix(0, w.CreatedAt),
	}
	if w.RetiredAt != 0 {
		r.RetiredAt = time.Unix(0, w.RetiredAt)
	}
	return r, nil
}
