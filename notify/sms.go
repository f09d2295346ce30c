package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/ahmed-abdelmageed/vise-services-sub001/config"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Texter sends a short text to the operations team.
type Texter interface {
	NotifyTeam(ctx context.Context, body string) error
}

type TwilioTexter struct {
	client *twilio.RestClient
	from   string
	to     string
}

// NewTwilioTexter sends over WhatsApp when the numbers carry the whatsapp: prefix.
func NewTwilioTexter(cfg config.TwilioConfig) *TwilioTexter {
	return &TwilioTexter{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		}),
		from: cfg.From,
		to:   cfg.TeamPhone,
	}
}

func (t *TwilioTexter) NotifyTeam(_ context.Context, body string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(t.to)
	params.SetFrom(t.from)
	params.SetBody(body)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("twilio: %w", err)
	}
	if resp.ErrorMessage != nil && strings.TrimSpace(*resp.ErrorMessage) != "" {
		return fmt.Errorf("twilio: %s", *resp.ErrorMessage)
	}
	return nil
}
