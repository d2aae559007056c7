package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const emailSubject = "New order"

// Email sends the summary to shop admins through SendGrid.
type Email struct {
	client     *sendgrid.Client
	from       *mail.Email
	recipients []*mail.Email
}

// NewEmail builds a SendGrid transport. host overrides the API host and is
// empty in production.
func NewEmail(apiKey, host, sender string, recipients []string) *Email {
	client := sendgrid.NewSendClient(apiKey)
	if host != "" {
		client.BaseURL = strings.TrimRight(host, "/") + "/v3/mail/send"
	}
	to := make([]*mail.Email, 0, len(recipients))
	for _, r := range recipients {
		to = append(to, mail.NewEmail("", r))
	}
	return &Email{client: client, from: mail.NewEmail("Shop", sender), recipients: to}
}

func (e *Email) Name() string { return "email" }

func (e *Email) Deliver(ctx context.Context, message string) error {
	m := mail.NewV3Mail()
	m.SetFrom(e.from)
	m.Subject = emailSubject

	p := mail.NewPersonalization()
	p.AddTos(e.recipients...)
	m.AddPersonalizations(p)
	m.AddContent(mail.NewContent("text/html", strings.ReplaceAll(message, "\n", "<br>")))

	resp, err := e.client.SendWithContext(ctx, m)
	if err != nil {
		return fmt.Errorf("sendgrid request failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("sendgrid responded %d", resp.StatusCode)
	}
	return nil
}
