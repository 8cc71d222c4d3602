package models

import "errors"

var (
	ErrIncidentNotFound      = errors.New("incident not found")
	ErrInvalidTransition     = errors.New("invalid incident status transition")
	ErrDeliverySummaryExists = errors.New("delivery summary already attached")
	ErrIncidentPersistence   = errors.New("incident could not be recorded")
	ErrInvalidSeverity       = errors.New("severity must be 1, 2 or 3")
	ErrForbidden             = errors.New("incident belongs to another user")
	ErrNotificationNotFound  = errors.New("notification not found")
)
