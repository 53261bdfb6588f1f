package notify

import (
	"context"
	"log"

	"padwatch/models"
)

// EmailSender and SMSSender are the transport seams; the AWS-backed
// implementations live in ses.go and sns.go.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, htmlBody string) (messageID string, err error)
}

type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) (messageID string, err error)
}

// Dispatcher fans one matched listing out to the channels an alert asks
// for. A nil sender means the channel is disabled by configuration and
// is reported as skipped, never as failed.
type Dispatcher struct {
	email EmailSender
	sms   SMSSender
}

func NewDispatcher(email EmailSender, sms SMSSender) *Dispatcher {
	return &Dispatcher{email: email, sms: sms}
}

// Dispatch attempts every enabled channel independently; an email failure
// never blocks the SMS and vice versa. The outcome records, per channel,
// whether a send was attempted and whether it succeeded.
func (d *Dispatcher) Dispatch(ctx context.Context, alert *models.Alert, user *models.User, listing *models.Listing) models.DispatchOutcome {
	var outcome models.DispatchOutcome

	if alert.NotifyEmail {
		outcome.Results = append(outcome.Results, d.dispatchEmail(ctx, alert, user, listing))
	}
	if alert.NotifySMS {
		outcome.Results = append(outcome.Results, d.dispatchSMS(ctx, alert, user, listing))
	}

	return outcome
}

func (d *Dispatcher) dispatchEmail(ctx context.Context, alert *models.Alert, user *models.User, listing *models.Listing) models.ChannelResult {
	result := models.ChannelResult{Channel: models.ChannelEmail}

	if d.email == nil {
		result.Reason = "email channel disabled"
		return result
	}
	if !ValidEmail(user.Email) {
		result.Reason = "no valid email on account"
		return result
	}

	result.Attempted = true
	msgID, err := d.email.SendEmail(ctx, user.Email, EmailSubject(alert, listing), EmailBody(alert, listing))
	if err != nil {
		log.Printf("Warning: email dispatch failed for alert %s: %v", alert.ID, err)
		result.Reason = err.Error()
		return result
	}

	result.Sent = true
	result.MessageID = msgID
	return result
}

func (d *Dispatcher) dispatchSMS(ctx context.Context, alert *models.Alert, user *models.User, listing *models.Listing) models.ChannelResult {
	result := models.ChannelResult{Channel: models.ChannelSMS}

	if d.sms == nil {
		result.Reason = "sms channel disabled"
		return result
	}

	phone, err := NormalizePhone(user.Phone)
	if err != nil {
		result.Reason = "no valid phone on account"
		return result
	}

	result.Attempted = true
	msgID, err := d.sms.SendSMS(ctx, phone, SMSBody(listing))
	if err != nil {
		log.Printf("Warning: sms dispatch failed for alert %s: %v", alert.ID, err)
		result.Reason = err.Error()
		return result
	}

	result.Sent = true
	result.MessageID = msgID
	return result
}
