package models

import (
	"time"

	"github.com/google/uuid"
)

// Severity - уровень срочности ситуации на момент тревоги
type Severity int

const (
	SeverityConcern   Severity = 1
	SeverityImmediate Severity = 2
	SeverityCritical  Severity = 3
)

type severityInfo struct {
	badge       string
	title       string
	description string
	examples    string
}

var severityCatalogue = map[Severity]severityInfo{
	SeverityConcern: {
		badge:       "Level 1 - Concern",
		title:       "I Feel Unsafe",
		description: "You're being followed, feel uncomfortable, need someone on standby",
		examples:    "Walking alone at night, suspicious person nearby, verbal harassment",
	},
	SeverityImmediate: {
		badge:       "Level 2 - Immediate",
		title:       "I Need Help Now",
		description: "Verbal harassment escalating, need nearby assistance immediately",
		examples:    "Threatening situation, harassment intensifying, need intervention",
	},
	SeverityCritical: {
		badge:       "Level 3 - CRITICAL",
		title:       "EMERGENCY - Life in Danger",
		description: "Physical attack, severe danger, urgent intervention required",
		examples:    "Physical assault, imminent harm, life-threatening situation",
	},
}

// Valid сообщает, входит ли уровень в допустимый диапазон 1..3
func (s Severity) Valid() bool {
	_, ok := severityCatalogue[s]
	return ok
}

func (s Severity) Badge() string {
	if info, ok := severityCatalogue[s]; ok {
		return info.badge
	}
	return "Unknown"
}

func (s Severity) Title() string {
	return severityCatalogue[s].title
}

func (s Severity) Description() string {
	return severityCatalogue[s].description
}

// Examples - типичные ситуации для уровня, как их видит пользователь при выборе
func (s Severity) Examples() string {
	return severityCatalogue[s].examples
}

// IncidentStatus - состояние жизненного цикла инцидента
type IncidentStatus string

const (
	StatusActive   IncidentStatus = "active"
	StatusResolved IncidentStatus = "resolved"
)

// CanTransitionTo описывает машину состояний: единственный переход active -> resolved
func (s IncidentStatus) CanTransitionTo(next IncidentStatus) bool {
	return s == StatusActive && next == StatusResolved
}

// Incident - запись об одной экстренной тревоге
type Incident struct {
	ID               uuid.UUID          `json:"id"`
	OwnerID          string             `json:"owner_id"`
	OwnerName        string             `json:"owner_name"`
	IncidentNumber   string             `json:"incident_number"`
	Severity         Severity           `json:"severity"`
	Status           IncidentStatus     `json:"status"`
	TriggeredAt      time.Time          `json:"triggered_at"`
	ResolvedAt       *time.Time         `json:"resolved_at,omitempty"`
	Location         Location           `json:"location"`
	Note             string             `json:"note,omitempty"`
	AudienceSnapshot []AudienceMember   `json:"audience_snapshot"`
	DeliverySummary  *DeliverySummary   `json:"delivery_summary,omitempty"`
	ResponseLog      []ResponseLogEntry `json:"response_log"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// IncidentStats - агрегаты по инцидентам одного пользователя
type IncidentStats struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Resolved int `json:"resolved"`
}
