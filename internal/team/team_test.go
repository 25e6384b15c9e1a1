package team

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain slack id", in: "U04ABC123", want: "U04ABC123"},
		{name: "lowercase upcased", in: "u04abc123", want: "U04ABC123"},
		{name: "surrounding whitespace", in: "  U04ABC123\t", want: "U04ABC123"},
		{name: "smart quotes stripped", in: "“U04ABC123”", want: "U04ABC123"},
		{name: "interior space stripped", in: "U04 ABC 123", want: "U04ABC123"},
		{name: "punctuation stripped", in: "<@U04ABC123>", want: "U04ABC123"},
		{name: "empty", in: "", want: ""},
		{name: "only junk", in: "  -–— ", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRosterOrderAndMembership(t *testing.T) {
	r := NewRoster("u111, U222 ,,“u333”, u111")

	want := []string{"U111", "U222", "U333"}
	if got := r.Members(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Members() = %v, want %v", got, want)
	}
	if r.Size() != 3 {
		t.Fatalf("Size() = %d, want 3", r.Size())
	}

	for _, id := range []string{"U111", "u111", " u222 ", "<@U333>"} {
		if !r.Contains(id) {
			t.Errorf("Contains(%q) = false, want true", id)
		}
	}
	if r.Contains("U999") {
		t.Error("Contains(U999) = true, want false")
	}
	if r.Contains("") {
		t.Error("Contains(\"\") = true, want false")
	}
}

func TestRosterMembersIsACopy(t *testing.T) {
	r := NewRoster("U111,U222")
	m := r.Members()
	m[0] = "HACKED"
	if got := r.Members()[0]; got != "U111" {
		t.Fatalf("roster mutated through Members() slice: %q", got)
	}
}

func TestRosterEmptyConfig(t *testing.T) {
	r := NewRoster("")
	if r.Size() != 0 {
		t.Fatalf("Size() = %d, want 0", r.Size())
	}
	if r.Contains("U111") {
		t.Error("empty roster should contain nothing")
	}
}
