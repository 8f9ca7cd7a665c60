package email

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type Message struct {
	To       string
	Subject  string
	Content  string
	HTMLBody string
}

type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

type sendGridSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
}

func NewSendGridSender(apiKey, fromEmail, fromName string) Sender {
	return &sendGridSender{client: sendgrid.NewSendClient(apiKey), fromEmail: fromEmail, fromName: fromName}
}

func (s *sendGridSender) Send(ctx context.Context, msg *Message) error {

	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail("", msg.To)

	message := mail.NewV3Mail()
	message.SetFrom(from)

	personalization := mail.NewPersonalization()
	personalization.AddTos(to)
	personalization.Subject = msg.Subject
	message.AddPersonalizations(personalization)

	message.AddContent(mail.NewContent("text/plain", msg.Content))

	if msg.HTMLBody != "" {
		message.AddContent(mail.NewContent("text/html", msg.HTMLBody))
	}

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return err
	}

	if response.StatusCode >= 400 {
		return fmt.Errorf("failed to send email, status code: %d", response.StatusCode)
	}

	return nil
}
