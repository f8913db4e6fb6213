package urlutil

import (
	"errors"
	"testing"

	"sitesweep/internal/domain"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "https://example.com/page", want: "https://example.com/page"},
		{in: "http://example.com", want: "http://example.com"},
		{in: "example.com", want: "https://example.com"},
		{in: "  example.com/a  ", want: "https://example.com/a"},
		{in: "", wantErr: true},
		{in: "ftp://example.com", wantErr: true},
		{in: "https://", wantErr: true},
		{in: "https://localhost", wantErr: true},
		{in: "not a url at all", wantErr: true},
	}
	for _, c := range cases {
		got, err := Normalize(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("Normalize(%q): expected error, got %q", c.in, got)
			} else if !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("Normalize(%q): error not classified as invalid input: %v", c.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("Normalize(%q): %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestCanonicalKey(t *testing.T) {
	a := CanonicalKey("https://Example.com/Page/")
	b := CanonicalKey("https://example.com/page")
	if a != b {
		t.Fatalf("keys differ: %q vs %q", a, b)
	}
}

func TestRegistrableDomain(t *testing.T) {
	if got := RegistrableDomain("https://www.example.co.uk/path"); got != "example.co.uk" {
		t.Fatalf("unexpected registrable domain: %q", got)
	}
	if got := RegistrableDomain("https://shop.example.com"); got != "example.com" {
		t.Fatalf("unexpected registrable domain: %q", got)
	}
}
