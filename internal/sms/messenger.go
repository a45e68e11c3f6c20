package sms

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"
)

// Messenger sends a single outbound text and returns the provider's message
// identifier. The conversational replies themselves travel back through the
// webhook response; this is only used for out-of-band sends such as the
// startup notification.
type Messenger interface {
	Send(ctx context.Context, to, body string) (string, error)
}

type twilioMessenger struct {
	client *twilio.RestClient
	from   string
}

// NewTwilioMessenger creates a Messenger backed by the Twilio REST API,
// authenticating with an API key pair.
func NewTwilioMessenger(accountSID, apiKeySID, apiKeySecret, from string) Messenger {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username:   apiKeySID,
		Password:   apiKeySecret,
		AccountSid: accountSID,
	})
	return &twilioMessenger{client: client, from: from}
}

func (m *twilioMessenger) Send(ctx context.Context, to, body string) (string, error) {
	params := &api.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(m.from)
	params.SetBody(body)

	msg, err := m.client.Api.CreateMessage(params)
	if err != nil {
		return "", fmt.Errorf("create message: %w", err)
	}
	if msg.Sid == nil {
		return "", nil
	}
	return *msg.Sid, nil
}

type logMessenger struct{}

// NewLogMessenger returns a Messenger that only logs, for local development
// without Twilio credentials.
func NewLogMessenger() Messenger {
	return logMessenger{}
}

func (logMessenger) Send(ctx context.Context, to, body string) (string, error) {
	log.Info().Str("to", to).Str("body", body).Msg("outbound message (log only)")
	return "log-only", nil
}
