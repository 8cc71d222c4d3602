package channel

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shenikar/sos_broadcasting_system/internal/dispatch"
	"github.com/shenikar/sos_broadcasting_system/internal/models"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidEmail = errors.New("invalid email address")

	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// MailSender - транспорт почты (SMTP или лог)
type MailSender interface {
	SendMail(ctx context.Context, to, subject, body string) error
}

type EmailChannel struct {
	sender MailSender
}

func NewEmailChannel(sender MailSender) *EmailChannel {
	return &EmailChannel{sender: sender}
}

func (c *EmailChannel) Kind() models.ChannelKind {
	return models.ChannelEmail
}

func (c *EmailChannel) Send(ctx context.Context, address string, msg dispatch.Message) error {
	to := strings.TrimSpace(address)
	if !emailPattern.MatchString(to) {
		return ErrInvalidEmail
	}
	if err := c.sender.SendMail(ctx, to, msg.Subject, msg.Body); err != nil {
		return fmt.Errorf("email: %w", err)
	}
	return nil
}

type LogMailSender struct {
	logger *logrus.Logger
}

func NewLogMailSender(logger *logrus.Logger) *LogMailSender {
	return &LogMailSender{logger: logger}
}

func (s *LogMailSender) SendMail(ctx context.Context, to, subject, body string) error {
	s.logger.WithFields(logrus.Fields{
		"channel": "email",
		"to":      to,
		"subject": subject,
	}).Info("Email provider not configured, message logged only")
	return nil
}
