package models

import (
	"time"

	"github.com/google/uuid"
)

// EventType - тип события, которое уходит подписчикам (вебхук, websocket)
type EventType string

const (
	EventIncidentTriggered  EventType = "incident.triggered"
	EventIncidentDispatched EventType = "incident.dispatched"
	EventIncidentResolved   EventType = "incident.resolved"
)

// IncidentEvent - событие жизненного цикла инцидента
type IncidentEvent struct {
	Type           EventType      `json:"type"`
	IncidentID     uuid.UUID      `json:"incident_id"`
	OwnerID        string         `json:"owner_id"`
	IncidentNumber string         `json:"incident_number"`
	Severity       Severity       `json:"severity"`
	Status         IncidentStatus `json:"status"`
	Location       Location       `json:"location"`
	Recipients     int            `json:"recipients"`
	Delivered      int            `json:"delivered"`
	Timestamp      time.Time      `json:"timestamp"`
}

// NewIncidentEvent собирает событие из текущего состояния инцидента
func NewIncidentEvent(eventType EventType, incident *Incident, at time.Time) IncidentEvent {
	event := IncidentEvent{
		Type:           eventType,
		IncidentID:     incident.ID,
		OwnerID:        incident.OwnerID,
		IncidentNumber: incident.IncidentNumber,
		Severity:       incident.Severity,
		Status:         incident.Status,
		Location:       incident.Location,
		Recipients:     len(incident.AudienceSnapshot),
		Timestamp:      at,
	}
	if incident.DeliverySummary != nil {
		event.Delivered = incident.DeliverySummary.Delivered()
	}
	return event
}
