package grant

import (
	"errors"
	"testing"
)

func TestMatchesIsExact(t *testing.T) {
	base := New("orders", "read")

	tests := []struct {
		name   string
		actual Grant
		want   bool
	}{
		{name: "identical", actual: New("orders", "read"), want: true},
		{name: "different action", actual: New("orders", "write"), want: false},
		{name: "target case differs", actual: New("Orders", "read"), want: false},
		{name: "action case differs", actual: New("orders", "READ"), want: false},
		{name: "trailing space", actual: New("orders ", "read"), want: false},
		{name: "swapped fields", actual: New("read", "orders"), want: false},
		{name: "wildcard is literal", actual: New("*", "read"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(base, tt.actual); got != tt.want {
				t.Fatalf("Matches(%v, %v) = %v, want %v", base, tt.actual, got, tt.want)
			}
			if got := base.Equal(tt.actual); got != tt.want {
				t.Fatalf("Equal(%v) = %v, want %v", tt.actual, got, tt.want)
			}
		})
	}
}

func TestMatchesIsSymmetric(t *testing.T) {
	a := New("orders", "read")
	b := New("orders", "read")
	if Matches(a, b) != Matches(b, a) {
		t.Fatal("expected Matches to be symmetric")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		g    Grant
		want error
	}{
		{name: "valid", g: New("orders", "read"), want: nil},
		{name: "empty target", g: New("", "read"), want: ErrEmptyTarget},
		{name: "empty action", g: New("orders", ""), want: ErrEmptyAction},
		{name: "newline in target", g: New("ord\ners", "read"), want: ErrControlCharacter},
		{name: "nul in action", g: New("orders", "re\x00ad"), want: ErrControlCharacter},
		{name: "unicode allowed", g: New("commandes", "lire-é"), want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.g.Validate()
			if !errors.Is(err, tt.want) {
				t.Fatalf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestStringAndZero(t *testing.T) {
	g := New("orders", "read")
	if got := g.String(); got != "orders:read" {
		t.Fatalf("String() = %q", got)
	}
	if g.IsZero() {
		t.Fatal("expected non-zero grant")
	}
	if !(Grant{}).IsZero() {
		t.Fatal("expected zero grant")
	}
}
