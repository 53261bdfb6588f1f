package notify

import "testing"

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"+12125550143", "+12125550143", false},
		{"(212) 555-0143", "+12125550143", false},
		{"212-555-0143", "+12125550143", false},
		{"212.555.0143", "+12125550143", false},
		{"12125550143", "+12125550143", false},
		{"+44 20 7946 0958", "+442079460958", false},
		{"", "", true},
		{"555-0143", "", true},        // too short, no country code
		{"212555014", "", true},       // 9 digits
		{"call me maybe", "", true},   // letters
		{"+1", "", true},              // too few digits
	}

	for _, c := range cases {
		got, err := NormalizePhone(c.in)
		if c.wantErr {
			if err == nil {
				t.Fatalf("NormalizePhone(%q): expected error, got %q", c.in, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("NormalizePhone(%q): unexpected error %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("NormalizePhone(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestValidEmail(t *testing.T) {
	valid := []string{"renter@example.com", "a.b+tag@sub.example.org"}
	invalid := []string{"", "renter", "@example.com", "renter@", "renter@localhost", "two words@example.com"}

	for _, e := range valid {
		if !ValidEmail(e) {
			t.Fatalf("expected %q to be valid", e)
		}
	}
	for _, e := range invalid {
		if ValidEmail(e) {
			t.Fatalf("expected %q to be invalid", e)
		}
	}
}
