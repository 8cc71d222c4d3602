package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/shenikar/sos_broadcasting_system/internal/models"
)

const (
	eventQueueKey = "incident_events"

	LiveTypeNotification = "notification.created"
)

// LiveMessage - то, что получает подписчик websocket: событие инцидента или новое уведомление
type LiveMessage struct {
	Type         string                `json:"type"`
	Event        *models.IncidentEvent `json:"event,omitempty"`
	Notification *models.Notification  `json:"notification,omitempty"`
}

// OwnerChannel - канал Pub/Sub с событиями инцидентов владельца
func OwnerChannel(ownerID string) string {
	return "events:owner:" + ownerID
}

// UserNotificationsChannel - канал Pub/Sub с in-app уведомлениями пользователя
func UserNotificationsChannel(userID string) string {
	return "notifications:user:" + userID
}

// RedisEventPublisher кладет событие в очередь вебхуков и публикует его в канал владельца
type RedisEventPublisher struct {
	redisClient *redis.Client
}

// NewRedisEventPublisher создает новый RedisEventPublisher
func NewRedisEventPublisher(client *redis.Client) *RedisEventPublisher {
	return &RedisEventPublisher{
		redisClient: client,
	}
}

// Publish публикует событие инцидента
func (p *RedisEventPublisher) Publish(ctx context.Context, event models.IncidentEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal incident event: %w", err)
	}
	live, err := json.Marshal(LiveMessage{Type: string(event.Type), Event: &event})
	if err != nil {
		return fmt.Errorf("failed to marshal live message: %w", err)
	}

	pipe := p.redisClient.Pipeline()
	// LPUSH добавляет событие в левую часть списка, воркер забирает справа
	pipe.LPush(ctx, eventQueueKey, payload)
	pipe.Publish(ctx, OwnerChannel(event.OwnerID), live)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish incident event to Redis: %w", err)
	}
	return nil
}

// NotifyUser отправляет новое уведомление в открытые сессии пользователя
func (p *RedisEventPublisher) NotifyUser(ctx context.Context, notification *models.Notification) error {
	live, err := json.Marshal(LiveMessage{Type: LiveTypeNotification, Notification: notification})
	if err != nil {
		return fmt.Errorf("failed to marshal live notification: %w", err)
	}
	if err := p.redisClient.Publish(ctx, UserNotificationsChannel(notification.UserID), live).Err(); err != nil {
		return fmt.Errorf("failed to publish notification to Redis: %w", err)
	}
	return nil
}
