package service

//go:generate mockgen -source=contracts.go -destination=mocks/mock_contracts.go -package=mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/sos_broadcasting_system/internal/models"
)

// IncidentRepository определяет контракт хранилища инцидентов.
// Журнал ответов меняется только через Create (начальные записи), AppendLog и Resolve.
type IncidentRepository interface {
	Create(ctx context.Context, incident *models.Incident) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	ListByOwner(ctx context.Context, ownerID string, page, pageSize int) ([]*models.Incident, error)
	StatsByOwner(ctx context.Context, ownerID string) (models.IncidentStats, error)
	AttachDeliverySummary(ctx context.Context, id uuid.UUID, summary models.DeliverySummary) error
	AppendLog(ctx context.Context, id uuid.UUID, entry models.ResponseLogEntry) error
	Resolve(ctx context.Context, id uuid.UUID, resolvedAt time.Time, entry models.ResponseLogEntry) error

	GetIncidentFromCache(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	SetIncidentCache(ctx context.Context, incident *models.Incident) error
	InvalidateIncidentCache(ctx context.Context, id uuid.UUID) error
}

// NotificationRepository определяет контракт входящих in-app уведомлений
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByUser(ctx context.Context, userID string, page, pageSize int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, userID string, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

// LocationResolver превращает ответ геолокации устройства в местоположение инцидента. Никогда не падает.
type LocationResolver interface {
	Resolve(ctx context.Context, report models.PositionReport, timeout time.Duration) models.Location
}

// AudienceResolver возвращает получателей тревоги владельца
type AudienceResolver interface {
	Resolve(ctx context.Context, ownerID string) ([]models.AudienceMember, error)
}

// Dispatcher рассылает тревогу всем получателям и возвращает итог доставки
type Dispatcher interface {
	Dispatch(ctx context.Context, incident *models.Incident, audience []models.AudienceMember) models.DeliverySummary
}

// EventPublisher отправляет события жизненного цикла инцидента наружу
type EventPublisher interface {
	Publish(ctx context.Context, event models.IncidentEvent) error
}

// IncidentService определяет контракт бизнес-логики тревог
type IncidentService interface {
	TriggerIncident(ctx context.Context, req models.TriggerRequest) (*models.TriggerResult, error)
	GetIncident(ctx context.Context, ownerID string, id uuid.UUID) (*models.Incident, error)
	ListIncidents(ctx context.Context, ownerID string, page, pageSize int) ([]*models.Incident, error)
	GetStats(ctx context.Context, ownerID string) (models.IncidentStats, error)
	ResolveIncident(ctx context.Context, ownerID string, id uuid.UUID) (*models.Incident, error)
}

// NotificationService определяет контракт входящих уведомлений пользователя
type NotificationService interface {
	ListNotifications(ctx context.Context, userID string, page, pageSize int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, userID string, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}
