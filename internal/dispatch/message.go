package dispatch

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shenikar/sos_broadcasting_system/internal/models"
)

const timestampLayout = "2006-01-02 15:04:05 MST"

// Message - содержимое тревоги, одинаковое для всех каналов
type Message struct {
	IncidentID     uuid.UUID
	IncidentNumber string
	Severity       models.Severity
	Subject        string
	Body           string
}

// NewMessage рендерит тревогу: уровень, имя владельца, время, местоположение и заметка
func NewMessage(incident *models.Incident) Message {
	owner := strings.TrimSpace(incident.OwnerName)
	if owner == "" {
		owner = "Someone you know"
	}

	subject := fmt.Sprintf("[%s] Emergency alert from %s", incident.Severity.Badge(), owner)

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", subject)
	if title := incident.Severity.Title(); title != "" {
		fmt.Fprintf(&b, "%s\n", title)
	}
	fmt.Fprintf(&b, "Time: %s\n", incident.TriggeredAt.UTC().Format(timestampLayout))
	fmt.Fprintf(&b, "Location: %s\n", incident.Location.Describe())
	if incident.Location.Available() {
		fmt.Fprintf(&b, "Map: https://maps.google.com/?q=%.6f,%.6f\n", incident.Location.Latitude, incident.Location.Longitude)
	}
	if note := strings.TrimSpace(incident.Note); note != "" {
		fmt.Fprintf(&b, "Note: %s\n", note)
	}
	fmt.Fprintf(&b, "Incident: %s", incident.IncidentNumber)

	return Message{
		IncidentID:     incident.ID,
		IncidentNumber: incident.IncidentNumber,
		Severity:       incident.Severity,
		Subject:        subject,
		Body:           b.String(),
	}
}
