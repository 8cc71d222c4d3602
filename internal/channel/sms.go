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
	ErrInvalidPhoneNumber = errors.New("invalid phone number")

	e164Pattern = regexp.MustCompile(`^\+[1-9]\d{6,14}$`)
	phoneNoise  = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")
)

// SMSSender - транспорт конкретного SMS-провайдера (Twilio, SNS, лог)
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// SMSChannel нормализует номер в E.164 и отдает сообщение провайдеру
type SMSChannel struct {
	sender             SMSSender
	defaultCountryCode string
}

func NewSMSChannel(sender SMSSender, defaultCountryCode string) *SMSChannel {
	return &SMSChannel{
		sender:             sender,
		defaultCountryCode: strings.TrimPrefix(defaultCountryCode, "+"),
	}
}

func (c *SMSChannel) Kind() models.ChannelKind {
	return models.ChannelSMS
}

func (c *SMSChannel) Send(ctx context.Context, address string, msg dispatch.Message) error {
	phone, ok := NormalizePhone(address, c.defaultCountryCode)
	if !ok {
		return ErrInvalidPhoneNumber
	}
	if err := c.sender.SendSMS(ctx, phone, msg.Body); err != nil {
		return fmt.Errorf("sms: %w", err)
	}
	return nil
}

// NormalizePhone приводит номер к E.164: убирает пробелы, дефисы и скобки,
// ведущий 0 заменяет кодом страны по умолчанию
func NormalizePhone(raw, defaultCountryCode string) (string, bool) {
	phone := phoneNoise.Replace(strings.TrimSpace(raw))

	switch {
	case strings.HasPrefix(phone, "+"):
	case strings.HasPrefix(phone, "00"):
		phone = "+" + phone[2:]
	case strings.HasPrefix(phone, "0") && defaultCountryCode != "":
		phone = "+" + defaultCountryCode + phone[1:]
	case phone != "":
		phone = "+" + phone
	}

	if !e164Pattern.MatchString(phone) {
		return "", false
	}
	return phone, true
}

// LogSMSSender ничего не отправляет, только пишет в лог. Используется, пока провайдер не настроен.
type LogSMSSender struct {
	logger *logrus.Logger
}

func NewLogSMSSender(logger *logrus.Logger) *LogSMSSender {
	return &LogSMSSender{logger: logger}
}

func (s *LogSMSSender) SendSMS(ctx context.Context, to, body string) error {
	s.logger.WithFields(logrus.Fields{
		"channel": "sms",
		"to":      to,
		"length":  len(body),
	}).Info("SMS provider not configured, message logged only")
	return nil
}
