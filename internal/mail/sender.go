package mail

import (
	"fmt"
	"net/smtp"

	"go.uber.org/zap"

	"github.com/velora-app/velora-api/pkg/config"
)

// Sender hands a message to the outbound mail collaborator. Actual delivery
// (relaying, bounces, templates) happens outside this service.
type Sender interface {
	Send(to, subject, body string) error
}

// SMTPSender sends mail via an unauthenticated SMTP relay.
type SMTPSender struct {
	addr string
	from string
}

// NewSMTPSender builds a sender from SMTP config.
func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{
		addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		from: cfg.From,
	}
}

// Send delivers a single plain-text message.
func (s *SMTPSender) Send(to, subject, body string) error {
	msg := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		s.from, to, subject, body,
	)
	return smtp.SendMail(s.addr, nil, s.from, []string{to}, []byte(msg))
}

// LogSender is used when SMTP is disabled: messages are logged, not sent.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender builds a logging sender.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

// Send logs the message instead of delivering it.
func (s *LogSender) Send(to, subject, _ string) error {
	s.logger.Info("mail suppressed", zap.String("to", to), zap.String("subject", subject))
	return nil
}
