package notify

import (
	"strings"
	"testing"

	"padwatch/models"
)

func TestEmailSubject(t *testing.T) {
	subject := EmailSubject(testAlert(), testListing())
	if subject != "New match for East Village 1BR: 339 East 5th Street at $3200" {
		t.Fatalf("unexpected subject %q", subject)
	}
}

func TestEmailBody(t *testing.T) {
	listing := testListing()
	listing.NoFee = true
	listing.StabilizationStatus = models.StabilizationConfirmed

	body := EmailBody(testAlert(), listing)

	for _, want := range []string{
		"339 East 5th Street",
		"$3200/mo",
		"1 bed",
		"East Village",
		"No broker fee",
		"rent stabilized",
		listing.URL,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("email body missing %q:\n%s", want, body)
		}
	}
}

func TestEmailBodyEscapesHTML(t *testing.T) {
	listing := testListing()
	listing.Address = `1 Main <script>alert("x")</script>`

	body := EmailBody(testAlert(), listing)
	if strings.Contains(body, "<script>") {
		t.Fatalf("address not escaped:\n%s", body)
	}
}

func TestSMSBody(t *testing.T) {
	msg := SMSBody(testListing())
	want := "339 East 5th Street: $3200, 1br/1ba, East Village https://listings.example.com/rental/sl-88421"
	if msg != want {
		t.Fatalf("unexpected sms body:\n got %q\nwant %q", msg, want)
	}
}

func TestSMSBodyStudio(t *testing.T) {
	listing := testListing()
	listing.Bedrooms = 0
	listing.Bathrooms = 1.5
	listing.URL = ""

	msg := SMSBody(listing)
	if !strings.Contains(msg, "studio/1.5ba") {
		t.Fatalf("expected studio label, got %q", msg)
	}
	if strings.HasSuffix(msg, " ") {
		t.Fatalf("trailing space without URL: %q", msg)
	}
}

func TestStabilizationLineProbable(t *testing.T) {
	listing := testListing()
	listing.StabilizationStatus = models.StabilizationProbable
	p := 0.75
	listing.StabilizationProbability = &p

	line := stabilizationLine(listing)
	if !strings.Contains(line, "75%") {
		t.Fatalf("expected probability percentage, got %q", line)
	}
}
