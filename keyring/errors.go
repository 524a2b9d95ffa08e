package keyring

import "errors"

var (
	// ErrNoKeys is returned when a source holds no active key.
	ErrNoKeys = errors.New("keyring: no active keys")
	// ErrNotFound is returned when a key id is unknown.
	ErrNotFound = errors.New("keyring: key not found")
	// ErrAlreadyExists is returned when adding a key whose id is taken.
	ErrAlreadyExists = errors.New("keyring: key already exists")
	// ErrInvalidRecord is returned for records that cannot be stored or decoded.
	ErrInvalidRecord = errors.New("keyring: invalid key record")
	// ErrUnavailable wraps backend failures.
	ErrUnavailable = errors.New("keyring: backend unavailable")
)
