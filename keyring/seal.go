package keyring

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// MasterKeySize is the size of the key passed to NewSealer.
const MasterKeySize = 32

const sealedVersion byte = 0x01

// sealedOverhead is version + nonce + tag.
const sealedOverhead = 1 + chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead

var sealInfo = []byte("gogrant.keyring.seal.v1")

// ErrSealed is returned when a stored secret cannot be opened: wrong master key,
// tampered data or a record moved under another id.
var ErrSealed = errors.New("keyring: cannot open sealed secret")

// Sealer encrypts key secrets before a store persists them. Sealed secrets use the
// layout
//
//	[version 0x01] [24-byte nonce] [ciphertext + 16-byte tag]
//
// with the version byte and the record id as additional data, so a sealed secret
// only opens under the id it was stored with.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives the sealing key from masterKey with HKDF-SHA256.
func NewSealer(masterKey []byte) (*Sealer, error) {
	if len(masterKey) != MasterKeySize {
		return nil, fmt.Errorf("keyring: master key must be %d bytes, got %d", MasterKeySize, len(masterKey))
	}

	derived := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, masterKey, nil, sealInfo), derived); err != nil {
		return nil, fmt.Errorf("keyring: derive sealing key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(derived)
	if err != nil {
		return nil, fmt.Errorf("keyring: create cipher: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

// Seal encrypts secret for the record id. A nil Sealer returns secret unchanged.
func (s *Sealer) Seal(id string, secret []byte) ([]byte, error) {
	if s == nil {
		return secret, nil
	}

	var nonce [chacha20poly1305.NonceSizeX]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("keyring: generate nonce: %w", err)
	}

	out := make([]byte, 1+len(nonce), sealedOverhead+len(secret))
	out[0] = sealedVersion
	copy(out[1:], nonce[:])
	return s.aead.Seal(out, nonce[:], secret, additionalData(id)), nil
}

// Open reverses Seal. A nil Sealer returns sealed unchanged.
func (s *Sealer) Open(id string, sealed []byte) ([]byte, error) {
	if s == nil {
		return sealed, nil
	}
	if len(sealed) < sealedOverhead {
		return nil, fmt.Errorf("%w: %d bytes is too short", ErrSealed, len(sealed))
	}
	if sealed[0] != sealedVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrSealed, sealed[0])
	}

	nonce := sealed[1 : 1+chacha20poly1305.NonceSizeX]
	secret, err := s.aead.Open(nil, nonce, sealed[1+chacha20poly1305.NonceSizeX:], additionalData(id))
	if err != nil {
		return nil, fmt.Errorf("%w: key %s", ErrSealed, id)
	}
	return secret, nil
}

func additionalData(id string) []byte {
	ad := make([]byte, 1+len(id))
	ad[0] = sealedVersion
	copy(ad[1:], id)
	return ad
}

// Option configures a RedisStore or SQLStore.
type Option func(*storeOptions)

type storeOptions struct {
	sealer *Sealer
}

// WithSealer seals secrets at rest. Every record of a store must be written with the
// same master key; records written without a sealer cannot be read with one.
func WithSealer(s *Sealer) Option {
	return func(o *storeOptions) { o.sealer = s }
}

func applyOptions(opts []Option) storeOptions {
	var o storeOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
