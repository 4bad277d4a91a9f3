package mail

import (
	"context"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

type sendGridClient interface {
	SendWithContext(ctx context.Context, email *sgmail.SGMailV3) (*rest.Response, error)
}

// SendGridMailer sends through the SendGrid v3 API.
type SendGridMailer struct {
	client sendGridClient
}

func NewSendGridMailer(apiKey string) *SendGridMailer {
	return &SendGridMailer{client: sendgrid.NewSendClient(apiKey)}
}

func (m *SendGridMailer) Send(ctx context.Context, msg Message) error {
	email := sgmail.NewSingleEmail(
		sgmail.NewEmail(msg.FromName, msg.From),
		msg.Subject,
		sgmail.NewEmail(msg.ToName, msg.To),
		msg.Text,
		"",
	)

	resp, err := m.client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid: unexpected status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
