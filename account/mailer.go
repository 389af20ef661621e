package account

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Mailer delivers verification codes.
type Mailer interface {
	SendVerificationCode(ctx context.Context, to, username, code string) error
}

const verificationSubject = "Your Memory Match verification code"

// SendGridMailer sends codes through the SendGrid v3 mail API.
type SendGridMailer struct {
	client   *sendgrid.Client
	fromName string
	fromAddr string
}

func NewSendGridMailer(apiKey, fromAddr, fromName string) *SendGridMailer {
	return &SendGridMailer{
		client:   sendgrid.NewSendClient(apiKey),
		fromName: fromName,
		fromAddr: fromAddr,
	}
}

func (m *SendGridMailer) SendVerificationCode(ctx context.Context, to, username, code string) error {
	from := mail.NewEmail(m.fromName, m.fromAddr)
	recipient := mail.NewEmail(username, to)
	plain := fmt.Sprintf("Hi %s,\n\nyour verification code is %s.\n", username, code)
	html := fmt.Sprintf("<p>Hi %s,</p><p>your verification code is <strong>%s</strong>.</p>", username, code)

	msg := mail.NewSingleEmail(from, verificationSubject, recipient, plain, html)
	resp, err := m.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid rejected verification email: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// LogMailer writes codes to the log instead of sending them. It is used
// when no SendGrid key is configured.
type LogMailer struct {
	Logger *slog.Logger
}

func (m LogMailer) SendVerificationCode(ctx context.Context, to, username, code string) error {
	log := m.Logger
	if log == nil {
		log = slog.Default()
	}
	log.InfoContext(ctx, "verification code", "username", username, "email", to, "code", code)
	return nil
}
