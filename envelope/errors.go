package envelope

import "errors"

var (
	// ErrReleased is returned when an envelope is read or released after Release.
	ErrReleased = errors.New("envelope already released")
	// ErrUnknownHandle is returned for handles that were never issued or were already released.
	ErrUnknownHandle = errors.New("unknown result handle")
	// ErrTableFull is returned when a Table holds its maximum number of envelopes.
	ErrTableFull = errors.New("result table full")
	// ErrNilEnvelope is returned when a nil envelope is parked.
	ErrNilEnvelope = errors.New("nil envelope")
	// ErrInvalidWire is returned when decoded wire data violates the one-side-populated rule.
	ErrInvalidWire = errors.New("invalid envelope wire data")
)
