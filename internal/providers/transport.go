package providers

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"alert-service/pkg/email"
)

// Transport hands one rendered e-mail to a mail service.
type Transport interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPTransport sends through an SMTP relay.
type SMTPTransport struct {
	server   email.Server
	fromName string
	from     string
	send     func(email.Server, email.Message) error
}

// NewSMTPTransport constructs an SMTPTransport.
func NewSMTPTransport(server email.Server, fromName, fromAddress string) *SMTPTransport {
	return &SMTPTransport{server: server, fromName: fromName, from: fromAddress, send: email.Send}
}

func (t *SMTPTransport) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := t.send(t.server, email.Message{
		FromName:    t.fromName,
		FromAddress: t.from,
		To:          to,
		Subject:     subject,
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

// SendGridTransport sends through the SendGrid v3 API.
type SendGridTransport struct {
	from *mail.Email
	send func(ctx context.Context, msg *mail.SGMailV3) (int, string, error)
}

// NewSendGridTransport constructs a SendGridTransport for apiKey.
func NewSendGridTransport(apiKey, fromName, fromAddress string) *SendGridTransport {
	client := sendgrid.NewSendClient(apiKey)
	return &SendGridTransport{
		from: mail.NewEmail(fromName, fromAddress),
		send: func(ctx context.Context, msg *mail.SGMailV3) (int, string, error) {
			resp, err := client.SendWithContext(ctx, msg)
			if err != nil {
				return 0, "", err
			}
			return resp.StatusCode, resp.Body, nil
		},
	}
}

func (t *SendGridTransport) Send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewSingleEmail(t.from, subject, mail.NewEmail("", to), body, "")
	status, respBody, err := t.send(ctx, msg)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	if status >= 300 {
		return fmt.Errorf("sendgrid rejected email to %s: status %d: %s", to, status, respBody)
	}
	return nil
}
