package notify

import (
	"context"

	mailjet "github.com/mailjet/mailjet-apiv3-go"
)

type EmailMessage struct {
	To      string
	Subject string
	Text    string
}

// EmailSender delivers transactional email. Implementations are wrapped by a
// circuit breaker; failures never fail the primary workflow.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

type mailjetSender struct {
	client    *mailjet.Client
	fromEmail string
	fromName  string
}

func NewMailjetSender(apiKey, secretKey, fromEmail, fromName string) EmailSender {
	return &mailjetSender{
		client:    mailjet.NewMailjetClient(apiKey, secretKey),
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

func (s *mailjetSender) Send(ctx context.Context, msg EmailMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	messages := mailjet.MessagesV31{
		Info: []mailjet.InfoMessagesV31{
			{
				From: &mailjet.RecipientV31{
					Email: s.fromEmail,
					Name:  s.fromName,
				},
				To: &mailjet.RecipientsV31{
					mailjet.RecipientV31{Email: msg.To},
				},
				Subject:  msg.Subject,
				TextPart: msg.Text,
			},
		},
	}

	_, err := s.client.SendMailV31(&messages)
	return err
}
