package providers

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"escalation-service/internal/models"
)

// TwilioPhone delivers SMS and voice-call notifications through Twilio.
// Twilio's own delivery retries are opaque to the caller.
type TwilioPhone struct {
	client *twilio.RestClient
	from   string
	logger *logrus.Logger
}

func NewTwilioPhone(accountSID, authToken, fromNumber string, logger *logrus.Logger) *TwilioPhone {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioPhone{client: client, from: fromNumber, logger: logger}
}

func (p *TwilioPhone) NotifyBySMS(ctx context.Context, user models.User, alert models.Alert, policy models.NotificationPolicy) error {
	if user.PhoneNumber == "" {
		return fmt.Errorf("user %d has no phone number", user.ID)
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(user.PhoneNumber)
	params.SetFrom(p.from)
	params.SetBody(fmt.Sprintf("You are invited to check an alert: %s", alert.Title))

	if _, err := p.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("failed to send SMS to user %d: %w", user.ID, err)
	}
	p.logger.Infof("phone: SMS sent to user %d for alert %d", user.ID, alert.ID)
	return nil
}

func (p *TwilioPhone) NotifyByCall(ctx context.Context, user models.User, alert models.Alert, policy models.NotificationPolicy) error {
	if user.PhoneNumber == "" {
		return fmt.Errorf("user %d has no phone number", user.ID)
	}

	params := &twilioApi.CreateCallParams{}
	params.SetTo(user.PhoneNumber)
	params.SetFrom(p.from)
	params.SetTwiml(fmt.Sprintf("<Response><Say>You are invited to check an alert: %s</Say></Response>", alert.Title))

	if _, err := p.client.Api.CreateCall(params); err != nil {
		return fmt.Errorf("failed to call user %d: %w", user.ID, err)
	}
	p.logger.Infof("phone: call placed to user %d for alert %d", user.ID, alert.ID)
	return nil
}
