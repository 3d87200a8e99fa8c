// Package mail delivers notification emails over SMTP.
package mail

import (
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"

	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/config"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/logging"
)

// Message is a plain text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer sends messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer sends through an authenticated SMTP server with mandatory TLS.
type SMTPMailer struct {
	cfg    config.MailConfig
	logger *logging.Logger
}

// New returns an SMTPMailer when SMTP is configured and a LogMailer otherwise.
func New(cfg config.MailConfig, logger *logging.Logger) Mailer {
	if !cfg.Enabled() {
		logger.Warn().Msg("SMTP host not configured, emails will only be logged")
		return &LogMailer{logger: logger}
	}
	return &SMTPMailer{cfg: cfg, logger: logger}
}

// Send delivers msg. A fresh connection is used per message; volumes are low.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	email := gomail.NewMsg()
	if err := email.From(m.cfg.From); err != nil {
		return fmt.Errorf("%w: invalid sender: %w", apperrors.ErrFailedToSendEmail, err)
	}
	if err := email.To(msg.To); err != nil {
		return fmt.Errorf("%w: invalid recipient: %w", apperrors.ErrFailedToSendEmail, err)
	}
	email.Subject(msg.Subject)
	email.SetBodyString(gomail.TypeTextPlain, msg.Body)

	opts := []gomail.Option{
		gomail.WithPort(m.cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSMandatory),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(m.cfg.Username),
			gomail.WithPassword(m.cfg.Password),
		)
	}

	client, err := gomail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrFailedToSendEmail, err)
	}
	if err := client.DialAndSendWithContext(ctx, email); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrFailedToSendEmail, err)
	}

	m.logger.Debug().Str("to", msg.To).Str("subject", msg.Subject).Msg("email sent")
	return nil
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct {
	logger *logging.Logger
}

// NewLogMailer creates a LogMailer.
func NewLogMailer(logger *logging.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Str("body", msg.Body).
		Msg("email not sent, SMTP disabled")
	return nil
}
