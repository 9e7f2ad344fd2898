package mailer

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/learnhub/internal/logging"
	"github.com/wneessen/go-mail"
)

// SMTPConfig holds the outbound SMTP settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender delivers mail through an SMTP relay, one connection per message.
type SMTPSender struct {
	cfg  SMTPConfig
	opts []mail.Option
}

// NewSMTPSender builds a sender for cfg. STARTTLS is used when offered;
// authentication is enabled when a username is set.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	return &SMTPSender{cfg: cfg, opts: opts}
}

func (s *SMTPSender) buildMsg(msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := m.AddToFormat(msg.ToName, msg.To); err != nil {
		return nil, fmt.Errorf("to address: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)
	return m, nil
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m, err := s.buildMsg(msg)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(s.cfg.Host, s.opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// LogSender writes messages to the logger instead of sending them. It is
// used when no SMTP host is configured.
type LogSender struct {
	logger logging.Logger
}

func NewLogSender(logger logging.Logger) *LogSender {
	return &LogSender{logger: logger.With("module", "mailer")}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.Info(ctx, "mail (not sent, no smtp host)", "to", msg.To, "subject", msg.Subject, "body", msg.Body)
	return nil
}
