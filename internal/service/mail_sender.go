package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"invitely/rsvphub/internal/config"
)

// MailSender delivers one HTML message and returns the provider's message id.
type MailSender interface {
	Send(ctx context.Context, to string, subject string, htmlBody string) (string, error)
}

// NewMailSender builds the sender selected by cfg.Provider.
func NewMailSender(cfg config.MailConfig, logger *zap.Logger) (MailSender, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "smtp":
		return NewSMTPSender(cfg.SMTP)
	case "http":
		return NewHTTPMailSender(cfg.HTTP, cfg.FromEmail, cfg.FromName)
	case "log", "":
		return NewLogMailSender(logger), nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.Provider)
	}
}

type logMailSender struct {
	logger *zap.Logger
}

// NewLogMailSender returns a sender that only logs, for local development.
func NewLogMailSender(logger *zap.Logger) MailSender {
	return &logMailSender{logger: logger}
}

func (s *logMailSender) Send(_ context.Context, to string, subject string, htmlBody string) (string, error) {
	id := "log-" + uuid.NewString()
	s.logger.Info("email not delivered (log provider)",
		zap.String("message_id", id),
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("html_bytes", len(htmlBody)),
	)
	return id, nil
}
