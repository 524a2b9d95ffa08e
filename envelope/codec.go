package envelope

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/MrEthical07/goGrant/grant"
	"github.com/MrEthical07/goGrant/token"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("envelope: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthForbidden,
	}.DecMode()
	if err != nil {
		panic("envelope: CBOR decoder initialization failed: " + err.Error())
	}
}

type wire struct {
	OK      bool   `cbor:"1,keyasint" json:"ok"`
	Code    string `cbor:"2,keyasint,omitempty" json:"code,omitempty"`
	Message string `cbor:"3,keyasint,omitempty" json:"error,omitempty"`
	Data    []byte `cbor:"4,keyasint,omitempty" json:"data,omitempty"`
}

func (e *Envelope) toWire() (wire, error) {
	if e == nil {
		return wire{}, ErrNilEnvelope
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.released {
		return wire{}, ErrReleased
	}
	if e.ok {
		return wire{OK: true, Data: e.payload}, nil
	}
	return wire{Code: string(e.code), Message: e.message}, nil
}

// MarshalCBOR implements cbor.Marshaler.
func (e *Envelope) MarshalCBOR() ([]byte, error) {
	w, err := e.toWire()
	if err != nil {
		return nil, err
	}
	return encMode.Marshal(w)
}

// MarshalJSON implements json.Marshaler. Data is base64 encoded.
func (e *Envelope) MarshalJSON() ([]byte, error) {
	w, err := e.toWire()
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

// Decode parses the CBOR wire form into a new envelope owned by the caller.
func Decode(data []byte) (*Envelope, error) {
	var w wire
	if err := decMode.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWire, err)
	}
	if w.OK {
		if w.Code != "" || w.Message != "" {
			return nil, fmt.Errorf("%w: success envelope carries an error", ErrInvalidWire)
		}
		return Success(w.Data), nil
	}
	if len(w.Data) > 0 {
		return nil, fmt.Errorf("%w: failed envelope carries a payload", ErrInvalidWire)
	}
	if w.Code == "" {
		return nil, fmt.Errorf("%w: failed envelope has no code", ErrInvalidWire)
	}
	return &Envelope{code: token.Reason(w.Code), message: w.Message}, nil
}

type claimsWire struct {
	Target    string `cbor:"1,keyasint"`
	Action    string `cbor:"2,keyasint"`
	IssuedAt  int64  `cbor:"3,keyasint"`
	ExpiresAt int64  `cbor:"4,keyasint"`
	ID        string `cbor:"5,keyasint,omitempty"`
	KeyID     string `cbor:"6,keyasint,omitempty"`
	Algorithm string `cbor:"7,keyasint"`
}

// EncodeClaims encodes verified claims as the payload of a verification envelope.
func EncodeClaims(c *token.Claims) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("envelope: nil claims")
	}
	return encMode.Marshal(claimsWire{
		Target:    c.Grant.Target,
		Action:    c.Grant.Action,
		IssuedAt:  c.IssuedAt.Unix(),
		ExpiresAt: c.ExpiresAt.Unix(),
		ID:        c.ID,
		KeyID:     c.KeyID,
		Algorithm: c.Algorithm.String(),
	})
}

// DecodeClaims is the inverse of EncodeClaims.
func DecodeClaims(data []byte) (*token.Claims, error) {
	var w claimsWire
	if err := decMode.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWire, err)
	}
	alg, err := token.ParseAlgorithm(w.Algorithm)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWire, err)
	}
	return &token.Claims{
		Grant:     grant.New(w.Target, w.Action),
		IssuedAt:  time.Unix(w.IssuedAt, 0),
		ExpiresAt: time.Unix(w.ExpiresAt, 0),
		ID:        w.ID,
		KeyID:     w.KeyID,
		Algorithm: alg,
	}, nil
}
