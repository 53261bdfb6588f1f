package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"padwatch/models"
)

type fakeEmailSender struct {
	sent []string // recipient addresses
	err  error
}

func (f *fakeEmailSender) SendEmail(_ context.Context, to, subject, htmlBody string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, to)
	return "email-msg-1", nil
}

type fakeSMSSender struct {
	sent []string // normalized phone numbers
	err  error
}

func (f *fakeSMSSender) SendSMS(_ context.Context, phone, message string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, phone)
	return "sms-msg-1", nil
}

func testAlert() *models.Alert {
	return &models.Alert{
		ID:          uuid.New(),
		Name:        "East Village 1BR",
		NotifyEmail: true,
		NotifySMS:   true,
	}
}

func testUser() *models.User {
	return &models.User{
		ID:    uuid.New(),
		Email: "renter@example.com",
		Phone: "(212) 555-0143",
	}
}

func testListing() *models.Listing {
	return &models.Listing{
		ID:           uuid.New(),
		Address:      "339 East 5th Street",
		Neighborhood: "East Village",
		Price:        3200,
		Bedrooms:     1,
		Bathrooms:    1,
		URL:          "https://listings.example.com/rental/sl-88421",
	}
}

func channelResult(t *testing.T, outcome models.DispatchOutcome, channel string) models.ChannelResult {
	t.Helper()
	for _, r := range outcome.Results {
		if r.Channel == channel {
			return r
		}
	}
	t.Fatalf("no result for channel %s", channel)
	return models.ChannelResult{}
}

func TestDispatchBothChannels(t *testing.T) {
	email := &fakeEmailSender{}
	sms := &fakeSMSSender{}
	d := NewDispatcher(email, sms)

	outcome := d.Dispatch(context.Background(), testAlert(), testUser(), testListing())

	if !outcome.Attempted() || !outcome.Sent() {
		t.Fatalf("expected attempted and sent, got %+v", outcome)
	}
	if outcome.ChannelsSummary() != "email+sms" {
		t.Fatalf("expected email+sms summary, got %s", outcome.ChannelsSummary())
	}
	if len(email.sent) != 1 || email.sent[0] != "renter@example.com" {
		t.Fatalf("unexpected email recipients %v", email.sent)
	}
	if len(sms.sent) != 1 || sms.sent[0] != "+12125550143" {
		t.Fatalf("expected normalized E.164 number, got %v", sms.sent)
	}
}

func TestDispatchEmailFailureDoesNotBlockSMS(t *testing.T) {
	email := &fakeEmailSender{err: errors.New("ses throttled")}
	sms := &fakeSMSSender{}
	d := NewDispatcher(email, sms)

	outcome := d.Dispatch(context.Background(), testAlert(), testUser(), testListing())

	emailResult := channelResult(t, outcome, models.ChannelEmail)
	if !emailResult.Attempted || emailResult.Sent {
		t.Fatalf("expected attempted-but-failed email, got %+v", emailResult)
	}
	if emailResult.Reason != "ses throttled" {
		t.Fatalf("expected failure reason, got %q", emailResult.Reason)
	}

	smsResult := channelResult(t, outcome, models.ChannelSMS)
	if !smsResult.Sent {
		t.Fatalf("expected sms to go out despite email failure")
	}

	// One attempt is enough to mark the pair notified.
	if !outcome.Attempted() {
		t.Fatalf("expected outcome attempted")
	}
	if outcome.ChannelsSummary() != "sms" {
		t.Fatalf("expected sms-only summary, got %s", outcome.ChannelsSummary())
	}
}

func TestDispatchNoPhone(t *testing.T) {
	d := NewDispatcher(&fakeEmailSender{}, &fakeSMSSender{})

	user := testUser()
	user.Phone = ""
	outcome := d.Dispatch(context.Background(), testAlert(), user, testListing())

	smsResult := channelResult(t, outcome, models.ChannelSMS)
	if smsResult.Attempted {
		t.Fatalf("expected no sms attempt without a phone number")
	}
	if smsResult.Reason != "no valid phone on account" {
		t.Fatalf("unexpected skip reason %q", smsResult.Reason)
	}

	if !channelResult(t, outcome, models.ChannelEmail).Sent {
		t.Fatalf("expected email to still go out")
	}
}

func TestDispatchDisabledChannel(t *testing.T) {
	// SMS sender nil: channel disabled by configuration.
	d := NewDispatcher(&fakeEmailSender{}, nil)

	outcome := d.Dispatch(context.Background(), testAlert(), testUser(), testListing())

	smsResult := channelResult(t, outcome, models.ChannelSMS)
	if smsResult.Attempted {
		t.Fatalf("expected no attempt on disabled channel")
	}
	if smsResult.Reason != "sms channel disabled" {
		t.Fatalf("unexpected reason %q", smsResult.Reason)
	}
}

func TestDispatchRespectsAlertChannelFlags(t *testing.T) {
	email := &fakeEmailSender{}
	sms := &fakeSMSSender{}
	d := NewDispatcher(email, sms)

	alert := testAlert()
	alert.NotifySMS = false
	outcome := d.Dispatch(context.Background(), alert, testUser(), testListing())

	if len(outcome.Results) != 1 || outcome.Results[0].Channel != models.ChannelEmail {
		t.Fatalf("expected only the email channel, got %+v", outcome.Results)
	}
	if len(sms.sent) != 0 {
		t.Fatalf("expected no sms sends")
	}
}
