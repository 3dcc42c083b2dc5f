// Package mailer sends outreach email over SMTP.
package mailer

import (
	"context"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	gomail "gopkg.in/gomail.v2"
)

// Message is one outbound email.
type Message struct {
	ToName  string
	ToEmail string
	Subject string
	Body    string
}

// Receipt identifies a delivered message.
type Receipt struct {
	MessageID string
}

// Sender delivers outreach messages.
type Sender interface {
	Send(ctx context.Context, msg Message) (*Receipt, error)
}

// Config holds SMTP connection and sender identity settings.
type Config struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromName  string
	FromEmail string
}

type smtpSender struct {
	cfg    Config
	dialer *gomail.Dialer
}

// NewSMTP creates an SMTP-backed Sender.
func NewSMTP(cfg Config) Sender {
	return &smtpSender{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

func (s *smtpSender) Send(ctx context.Context, msg Message) (*Receipt, error) {
	if msg.ToEmail == "" {
		return nil, eris.New("mailer: recipient email required")
	}

	messageID := "<" + uuid.New().String() + "@" + s.cfg.Host + ">"

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.cfg.FromEmail, s.cfg.FromName)
	m.SetAddressHeader("To", msg.ToEmail, msg.ToName)
	m.SetHeader("Subject", msg.Subject)
	m.SetHeader("Message-ID", messageID)
	m.SetBody("text/plain", msg.Body)

	// gomail has no context support; honor cancellation before dialing.
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "mailer: context done")
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		return nil, eris.Wrap(err, "mailer: dial and send")
	}

	return &Receipt{MessageID: messageID}, nil
}
