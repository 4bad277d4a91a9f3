// Package mail delivers transactional email through a pluggable backend.
package mail

import (
	"context"
	"fmt"
	"strings"

	"spendlog/internal/config"
	"spendlog/internal/log"
)

// Message is a plain-text email.
type Message struct {
	FromName string `json:"from_name,omitempty"`
	From     string `json:"from"`
	ToName   string `json:"to_name,omitempty"`
	To       string `json:"to"`
	Subject  string `json:"subject"`
	Text     string `json:"text"`
}

// Mailer sends a message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// ResetSubject is the subject line of the password reset email.
const ResetSubject = "Password Reset Request"

// ResetMessage builds the password reset email pointing at link.
func ResetMessage(from, toName, to, link string) Message {
	var b strings.Builder
	b.WriteString("To reset your password, visit the following link:\n")
	b.WriteString(link)
	b.WriteString("\nIf you did not make this request, simply ignore this email and no changes will be made.\n")
	b.WriteString("Note: This link is valid only for 30 minutes from the time you requested a password change.\n")

	return Message{
		From:    from,
		ToName:  toName,
		To:      to,
		Subject: ResetSubject,
		Text:    b.String(),
	}
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct {
	logger *log.Logger
}

func NewLogMailer(logger *log.Logger) *LogMailer {
	return &LogMailer{logger: logger.WithComponent(log.ComponentMail)}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.logger.InfoContext(ctx, "email not sent, log backend",
		"to", msg.To, "subject", msg.Subject, "body", msg.Text)
	return nil
}

// New builds the Mailer selected by cfg.MailBackend. The returned close
// function releases backend connections.
func New(cfg *config.Config, logger *log.Logger) (Mailer, func() error, error) {
	noop := func() error { return nil }
	switch cfg.MailBackend {
	case config.MailBackendSendGrid:
		return NewSendGridMailer(cfg.SendGridAPIKey), noop, nil
	case config.MailBackendAMQP:
		m, err := DialAMQP(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			return nil, nil, err
		}
		return m, m.Close, nil
	case config.MailBackendLog, "":
		return NewLogMailer(logger), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown mail backend %q", cfg.MailBackend)
	}
}
