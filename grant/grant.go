package grant

import (
	"errors"
	"unicode"
)

var (
	// ErrEmptyTarget is returned by Validate when Target is empty.
	ErrEmptyTarget = errors.New("grant target is empty")
	// ErrEmptyAction is returned by Validate when Action is empty.
	ErrEmptyAction = errors.New("grant action is empty")
	// ErrControlCharacter is returned by Validate when a field contains a control character.
	ErrControlCharacter = errors.New("grant contains control character")
)

// Grant is a permitted Action on a permitted Target.
//
// Grant is a value type. It is created per request and never mutated.
type Grant struct {
	Target string `json:"target" cbor:"1,keyasint"`
	Action string `json:"action" cbor:"2,keyasint"`
}

// New builds a Grant from two scalar values. It exists for callers that cannot pass
// a structured value; it performs no normalization.
func New(target, action string) Grant {
	return Grant{Target: target, Action: action}
}

// Matches reports whether actual grants exactly what expected requires.
func Matches(expected, actual Grant) bool {
	return expected.Target == actual.Target && expected.Action == actual.Action
}

// Equal is Matches with g as the expected grant.
func (g Grant) Equal(other Grant) bool {
	return Matches(g, other)
}

// IsZero reports whether both fields are empty.
func (g Grant) IsZero() bool {
	return g.Target == "" && g.Action == ""
}

// String renders the grant as target:action. It is intended for audit output only and
// must not be parsed back.
func (g Grant) String() string {
	return g.Target + ":" + g.Action
}

// Validate checks that the grant can be embedded in a token.
func (g Grant) Validate() error {
	if g.Target == "" {
		return ErrEmptyTarget
	}
	if g.Action == "" {
		return ErrEmptyAction
	}
	if hasControl(g.Target) || hasControl(g.Action) {
		return ErrControlCharacter
	}
	return nil
}

func hasControl(s string) bool {
	for _, r := range s {
		if unicode.IsControl(r) {
			return true
		}
	}
	return false
}
