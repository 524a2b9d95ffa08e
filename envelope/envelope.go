package envelope

import (
	"errors"
	"sync"

	"github.com/MrEthical07/goGrant/token"
)

// Envelope is the tagged success/error result of one boundary call.
//
// Exactly one side is populated: a failed envelope has a code and message and no
// payload; a successful envelope has a payload and no code. Envelope methods are
// safe for concurrent use.
type Envelope struct {
	mu       sync.Mutex
	ok       bool
	code     token.Reason
	message  string
	payload  []byte
	released bool
}

// Success returns an envelope owning a copy of payload.
func Success(payload []byte) *Envelope {
	return &Envelope{ok: true, payload: cloneBytes(payload)}
}

// Failure returns an envelope describing err. The code is derived with token.ReasonOf.
// A nil err still produces a failed envelope; errors are never downgraded to success.
func Failure(err error) *Envelope {
	if err == nil {
		return &Envelope{code: token.ReasonInternal, message: "unknown error"}
	}
	return &Envelope{code: token.ReasonOf(err), message: err.Error()}
}

// OK reports whether the envelope carries a payload.
func (e *Envelope) OK() bool {
	if e == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ok
}

// Code returns the failure reason, or token.ReasonNone on success.
func (e *Envelope) Code() token.Reason {
	if e == nil {
		return token.ReasonInternal
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.code
}

// Err returns the failure as an *Error, or nil on success. The error matches the
// token package sentinels with errors.Is. After Release the message is gone and the
// error text falls back to the code.
func (e *Envelope) Err() error {
	if e == nil {
		return &Error{Code: token.ReasonInternal, Message: "nil envelope"}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ok {
		return nil
	}
	return &Error{Code: e.code, Message: e.message}
}

// Payload returns a copy of the success payload. It fails with ErrReleased after
// Release and with the envelope error when the envelope is a failure.
func (e *Envelope) Payload() ([]byte, error) {
	if e == nil {
		return nil, ErrNilEnvelope
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.released {
		return nil, ErrReleased
	}
	if !e.ok {
		return nil, &Error{Code: e.code, Message: e.message}
	}
	return cloneBytes(e.payload), nil
}

// Len returns the payload length, or zero for failures and released envelopes.
func (e *Envelope) Len() int {
	if e == nil {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.payload)
}

// Release zeroes and drops the payload. It must be called exactly once; later calls
// return ErrReleased and change nothing.
func (e *Envelope) Release() error {
	if e == nil {
		return ErrNilEnvelope
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.released {
		return ErrReleased
	}
	clear(e.payload)
	e.payload = nil
	e.message = ""
	e.released = true
	return nil
}

// Released reports whether Release has run.
func (e *Envelope) Released() bool {
	if e == nil {
		return true
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.released
}

// Error is the failure side of an envelope.
type Error struct {
	Code    token.Reason
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return e.Message
}

// Is matches the token sentinel that corresponds to Code, or any error carrying the
// same Reason.
func (e *Error) Is(target error) bool {
	if sentinel := e.Code.Sentinel(); sentinel != nil {
		return errors.Is(sentinel, target)
	}
	if carrier, ok := target.(token.ReasonCarrier); ok {
		return carrier.Reason() == e.Code
	}
	return false
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return []byte{}
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
