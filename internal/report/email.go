package report

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// Mailer sends one alert message.
type Mailer interface {
	Send(ctx context.Context, subject, body string) error
}

// smtpMailer sends alert emails over plain SMTP.
type smtpMailer struct {
	cfg EmailConfig
}

// Send delivers the message to every configured recipient.
func (m *smtpMailer) Send(_ context.Context, subject, body string) error {
	if len(m.cfg.To) == 0 {
		return fmt.Errorf("no alert recipients configured")
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.SMTPHost, m.cfg.SMTPPort)

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.SMTPHost)
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(m.cfg.To, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	if err := smtp.SendMail(addr, auth, m.cfg.From, m.cfg.To, []byte(msg.String())); err != nil {
		return fmt.Errorf("send alert email: %w", err)
	}

	return nil
}
