package models

import "time"

const (
	ActionAlertTriggered          = "Alert triggered"
	ActionNotificationsDispatched = "Notifications dispatched"
	ActionMarkedSafe              = "Marked as safe"

	ActorUser   = "User"
	ActorSystem = "System"
)

// ResponseLogEntry - запись журнала действий по инциденту. Журнал только дополняется.
type ResponseLogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Details   string    `json:"details,omitempty"`
}
