package identity

import (
	"testing"

	"padwatch/models"
)

func TestNormalizeAddress(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"350 East 4th Street", "350 e 4th st"},
		{"350 E 4th St.", "350 e 4th st"},
		{"  101 Avenue A,  Apt 3 ", "101 ave a apt 3"},
		{"22-15 Jackson Avenue", "22 15 jackson ave"},
	}

	for _, c := range cases {
		got := NormalizeAddress(c.in)
		if got != c.want {
			t.Fatalf("NormalizeAddress(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFingerprint_StableAcrossFormatting(t *testing.T) {
	a := &models.RawListing{Address: "350 East 4th Street", Unit: "4B", Bedrooms: 2, Bathrooms: 1}
	b := &models.RawListing{Address: "350 E 4th St.", Unit: "4b", Bedrooms: 2, Bathrooms: 1}

	if Fingerprint(a) != Fingerprint(b) {
		t.Fatalf("expected identical fingerprints for equivalent addresses")
	}
}

func TestFingerprint_DistinguishesUnits(t *testing.T) {
	a := &models.RawListing{Address: "350 E 4th St", Unit: "4B", Bedrooms: 2, Bathrooms: 1}
	b := &models.RawListing{Address: "350 E 4th St", Unit: "5B", Bedrooms: 2, Bathrooms: 1}

	if Fingerprint(a) == Fingerprint(b) {
		t.Fatalf("expected different fingerprints for different units")
	}
}
