package models

import (
	"time"

	"github.com/google/uuid"
)

const NotificationTypeEmergency = "emergency"

// Notification - запись во входящих in-app уведомлениях пользователя
type Notification struct {
	ID         uuid.UUID  `json:"id"`
	UserID     string     `json:"user_id"`
	Type       string     `json:"type"`
	Title      string     `json:"title"`
	Body       string     `json:"body"`
	IncidentID *uuid.UUID `json:"incident_id,omitempty"`
	Read       bool       `json:"read"`
	CreatedAt  time.Time  `json:"created_at"`
}
