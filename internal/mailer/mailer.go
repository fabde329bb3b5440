// Package mailer sends transactional email. The MailerSend implementation
// is used when an API key is configured; otherwise messages are logged.
package mailer

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/mailersend/mailersend-go"
)

type Message struct {
	ToName  string
	ToEmail string
	Subject string
	Text    string
	HTML    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

func New(apiKey, fromName, fromEmail string) Mailer {
	if strings.TrimSpace(apiKey) == "" || strings.TrimSpace(fromEmail) == "" {
		log.Println("[MAILER] [WARN] MailerSend not configured, emails will be logged")
		return DevMailer{}
	}
	return NewMailerSend(apiKey, fromName, fromEmail)
}

type MailerSend struct {
	client *mailersend.Mailersend
	from   mailersend.From
}

func NewMailerSend(apiKey, fromName, fromEmail string) *MailerSend {
	return &MailerSend{
		client: mailersend.NewMailersend(apiKey),
		from:   mailersend.From{Name: fromName, Email: fromEmail},
	}
}

func (m *MailerSend) Send(ctx context.Context, msg Message) error {
	email := m.client.Email.NewMessage()
	email.SetFrom(m.from)
	email.SetRecipients([]mailersend.Recipient{{Name: msg.ToName, Email: msg.ToEmail}})
	email.SetSubject(msg.Subject)
	email.SetText(msg.Text)
	if msg.HTML != "" {
		email.SetHTML(msg.HTML)
	}

	res, err := m.client.Email.Send(ctx, email)
	if err != nil {
		return fmt.Errorf("mailersend send: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("mailersend send: status=%d body=%s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	log.Printf("[MAILER] [INFO] sent %q to %s id=%s", msg.Subject, msg.ToEmail, res.Header.Get("X-Message-Id"))
	return nil
}

// DevMailer logs messages instead of delivering them.
type DevMailer struct{}

func (DevMailer) Send(ctx context.Context, msg Message) error {
	log.Printf("[MAILER] [DEV] to=%s subject=%q\n%s", msg.ToEmail, msg.Subject, msg.Text)
	return nil
}

// VerificationMessage builds the email-verification mail for a new account.
func VerificationMessage(name, email, link string) Message {
	return Message{
		ToName:  name,
		ToEmail: email,
		Subject: "Verify your email",
		Text:    fmt.Sprintf("Hi %s,\n\nConfirm your email address by opening the link below:\n%s\n", name, link),
		HTML:    fmt.Sprintf(`<p>Hi %s,</p><p>Confirm your email address by opening <a href="%s">this link</a>.</p>`, name, link),
	}
}
