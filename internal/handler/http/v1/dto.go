package v1

import (
	"time"

	"github.com/google/uuid"
)

// PositionRequest DTO ответа провайдера геолокации устройства
// @Description Либо координаты, либо код ошибки геолокации
type PositionRequest struct {
	Latitude  *float64 `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude *float64 `json:"longitude,omitempty" validate:"omitempty,longitude"`
	Accuracy  float64  `json:"accuracy,omitempty" validate:"gte=0"`
	Error     string   `json:"error,omitempty" validate:"omitempty,oneof=permission_denied position_unavailable timeout unsupported"`
}

// TriggerIncidentRequest DTO для поднятия тревоги
// @Description DTO для поднятия тревоги
type TriggerIncidentRequest struct {
	Severity int              `json:"severity" validate:"required,min=1,max=3"`
	Note     string           `json:"note,omitempty" validate:"max=1000"`
	Position *PositionRequest `json:"position,omitempty"`
}

// LocationResponse DTO местоположения инцидента
type LocationResponse struct {
	Status        string   `json:"status"`
	Latitude      *float64 `json:"latitude,omitempty"`
	Longitude     *float64 `json:"longitude,omitempty"`
	Accuracy      *float64 `json:"accuracy,omitempty"`
	Address       *string  `json:"address"`
	Description   string   `json:"description"`
	GeocodeStatus string   `json:"geocode_status,omitempty"`
	Reason        string   `json:"reason,omitempty"`
}

// RecipientResponse DTO получателя из снимка аудитории
type RecipientResponse struct {
	Kind        string `json:"kind"`
	Identity    string `json:"identity"`
	DisplayName string `json:"display_name"`
}

// ResponseLogEntryResponse DTO записи журнала действий
type ResponseLogEntryResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Details   string    `json:"details,omitempty"`
}

// ChannelOutcomeResponse DTO результата отправки по одному каналу
type ChannelOutcomeResponse struct {
	Channel     string    `json:"channel"`
	Address     string    `json:"address"`
	Success     bool      `json:"success"`
	Reason      string    `json:"reason,omitempty"`
	AttemptedAt time.Time `json:"attempted_at"`
}

// RecipientDeliveryResponse DTO итога доставки одному получателю
type RecipientDeliveryResponse struct {
	Kind        string                   `json:"kind"`
	Identity    string                   `json:"identity"`
	DisplayName string                   `json:"display_name"`
	Delivered   bool                     `json:"delivered"`
	Outcomes    []ChannelOutcomeResponse `json:"outcomes"`
}

// DeliverySummaryResponse DTO итогов рассылки
// @Description Итоги рассылки по получателям и каналам
type DeliverySummaryResponse struct {
	Recipients  []RecipientDeliveryResponse `json:"recipients"`
	Channels    map[string]ChannelStatsDTO  `json:"channels"`
	Delivered   int                         `json:"delivered"`
	Failed      int                         `json:"failed"`
	CompletedAt time.Time                   `json:"completed_at"`
}

// ChannelStatsDTO счетчики по каналу
type ChannelStatsDTO struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// IncidentResponse DTO для ответа с информацией об инциденте
// @Description DTO для ответа с информацией об инциденте
type IncidentResponse struct {
	ID                 uuid.UUID                  `json:"id"`
	IncidentNumber     string                     `json:"incident_number"`
	OwnerID            string                     `json:"owner_id"`
	OwnerName          string                     `json:"owner_name,omitempty"`
	Severity           int                        `json:"severity"`
	SeverityBadge      string                     `json:"severity_badge"`
	SeverityTitle      string                     `json:"severity_title"`
	SeverityDesc       string                     `json:"severity_description"`
	SeverityExamples   string                     `json:"severity_examples"`
	Status             string                     `json:"status"`
	TriggeredAt        time.Time                  `json:"triggered_at"`
	ResolvedAt         *time.Time                 `json:"resolved_at,omitempty"`
	Location           LocationResponse           `json:"location"`
	Note               string                     `json:"note,omitempty"`
	ContactsNotified   int                        `json:"contacts_notified"`
	BystandersNotified int                        `json:"bystanders_notified"`
	Audience           []RecipientResponse        `json:"audience"`
	DeliverySummary    *DeliverySummaryResponse   `json:"delivery_summary,omitempty"`
	ResponseLog        []ResponseLogEntryResponse `json:"response_log"`
	UpdatedAt          time.Time                  `json:"updated_at"`
}

// TriggerIncidentResponse DTO ответа на поднятую тревогу
// @Description Записанный инцидент, итоги рассылки и исход сценария
type TriggerIncidentResponse struct {
	Incident *IncidentResponse       `json:"incident"`
	Summary  DeliverySummaryResponse `json:"summary"`
	Outcome  string                  `json:"outcome"`
}

// PersistenceFailureResponse DTO ответа, когда тревогу не удалось записать
type PersistenceFailureResponse struct {
	Error           string `json:"error"`
	Fallback        string `json:"fallback"`
	EmergencyNumber string `json:"emergency_number"`
}

// StatsResponse DTO для ответа со статистикой
// @Description DTO для ответа со статистикой
type StatsResponse struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Resolved int `json:"resolved"`
}

// NotificationResponse DTO in-app уведомления
type NotificationResponse struct {
	ID         uuid.UUID  `json:"id"`
	Type       string     `json:"type"`
	Title      string     `json:"title"`
	Body       string     `json:"body"`
	IncidentID *uuid.UUID `json:"incident_id,omitempty"`
	Read       bool       `json:"read"`
	CreatedAt  time.Time  `json:"created_at"`
}

// MarkAllReadResponse DTO ответа на отметку всех уведомлений
type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}
