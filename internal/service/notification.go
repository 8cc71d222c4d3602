package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shenikar/sos_broadcasting_system/internal/models"
	"github.com/sirupsen/logrus"
)

type notificationService struct {
	repo   NotificationRepository
	logger *logrus.Logger
}

func NewNotificationService(repo NotificationRepository, logger *logrus.Logger) NotificationService {
	return &notificationService{
		repo:   repo,
		logger: logger,
	}
}

// ListNotifications возвращает входящие пользователя, новые первыми
func (s *notificationService) ListNotifications(ctx context.Context, userID string, page, pageSize int) ([]*models.Notification, error) {
	page, pageSize = clampPage(page, pageSize)

	log := s.logger.WithFields(logrus.Fields{
		"service":   "notification",
		"method":    "ListNotifications",
		"user_id":   userID,
		"page":      page,
		"page_size": pageSize,
	})

	notifications, err := s.repo.ListByUser(ctx, userID, page, pageSize)
	if err != nil {
		log.WithError(err).Error("Failed to list notifications from repository")
		return nil, fmt.Errorf("service: could not list notifications: %w", err)
	}
	return notifications, nil
}

func (s *notificationService) MarkRead(ctx context.Context, userID string, id uuid.UUID) error {
	log := s.logger.WithFields(logrus.Fields{
		"service":         "notification",
		"method":          "MarkRead",
		"user_id":         userID,
		"notification_id": id,
	})

	if err := s.repo.MarkRead(ctx, userID, id); err != nil {
		log.WithError(err).Warn("Failed to mark notification as read")
		return fmt.Errorf("service: could not mark notification as read: %w", err)
	}
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "notification",
		"method":  "MarkAllRead",
		"user_id": userID,
	})

	n, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		log.WithError(err).Error("Failed to mark notifications as read")
		return 0, fmt.Errorf("service: could not mark notifications as read: %w", err)
	}
	log.WithField("count", n).Info("Notifications marked as read")
	return n, nil
}
