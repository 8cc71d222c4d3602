package channel

import (
	"context"
	"fmt"
	"strings"

	"github.com/shenikar/sos_broadcasting_system/internal/dispatch"
	"github.com/shenikar/sos_broadcasting_system/internal/models"
	"github.com/sirupsen/logrus"
)

// InboxStore - хранилище входящих уведомлений
type InboxStore interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// LiveNotifier доставляет уведомление в открытые сессии пользователя (websocket)
type LiveNotifier interface {
	NotifyUser(ctx context.Context, notification *models.Notification) error
}

// InAppChannel пишет уведомление во входящие получателя. Адрес - id пользователя.
// Доставка считается успешной, как только запись сохранена; live push - по возможности.
type InAppChannel struct {
	store    InboxStore
	notifier LiveNotifier
	logger   *logrus.Logger
}

func NewInAppChannel(store InboxStore, notifier LiveNotifier, logger *logrus.Logger) *InAppChannel {
	return &InAppChannel{
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
}

func (c *InAppChannel) Kind() models.ChannelKind {
	return models.ChannelInApp
}

func (c *InAppChannel) Send(ctx context.Context, address string, msg dispatch.Message) error {
	userID := strings.TrimSpace(address)
	if userID == "" {
		return fmt.Errorf("in-app: empty user id")
	}

	incidentID := msg.IncidentID
	notification := &models.Notification{
		UserID:     userID,
		Type:       models.NotificationTypeEmergency,
		Title:      msg.Subject,
		Body:       msg.Body,
		IncidentID: &incidentID,
		Read:       false,
	}
	if err := c.store.Create(ctx, notification); err != nil {
		return fmt.Errorf("in-app: %w", err)
	}

	if c.notifier != nil {
		if err := c.notifier.NotifyUser(ctx, notification); err != nil {
			c.logger.WithFields(logrus.Fields{
				"channel":         "in_app",
				"user_id":         userID,
				"notification_id": notification.ID,
			}).WithError(err).Warn("Live push failed, notification stays in inbox")
		}
	}
	return nil
}
