package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverityCatalogue(t *testing.T) {
	tests := []struct {
		severity    Severity
		badge       string
		title       string
		description string
		examples    string
	}{
		{
			SeverityConcern, "Level 1 - Concern", "I Feel Unsafe",
			"You're being followed, feel uncomfortable, need someone on standby",
			"Walking alone at night, suspicious person nearby, verbal harassment",
		},
		{
			SeverityImmediate, "Level 2 - Immediate", "I Need Help Now",
			"Verbal harassment escalating, need nearby assistance immediately",
			"Threatening situation, harassment intensifying, need intervention",
		},
		{
			SeverityCritical, "Level 3 - CRITICAL", "EMERGENCY - Life in Danger",
			"Physical attack, severe danger, urgent intervention required",
			"Physical assault, imminent harm, life-threatening situation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.badge, func(t *testing.T) {
			assert.True(t, tt.severity.Valid())
			assert.Equal(t, tt.badge, tt.severity.Badge())
			assert.Equal(t, tt.title, tt.severity.Title())
			assert.Equal(t, tt.description, tt.severity.Description())
			assert.Equal(t, tt.examples, tt.severity.Examples())
		})
	}
}

func TestSeverity_OutOfRange(t *testing.T) {
	for _, s := range []Severity{0, 4, -1} {
		assert.False(t, s.Valid())
		assert.Equal(t, "Unknown", s.Badge())
		assert.Empty(t, s.Title())
		assert.Empty(t, s.Examples())
	}
}

func TestIncidentStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, StatusActive.CanTransitionTo(StatusResolved))
	assert.False(t, StatusResolved.CanTransitionTo(StatusResolved))
	assert.False(t, StatusResolved.CanTransitionTo(StatusActive))
	assert.False(t, StatusActive.CanTransitionTo(StatusActive))
}

func TestLocation_Describe(t *testing.T) {
	address := "Kenyatta Avenue, Nairobi, Kenya"
	empty := ""

	tests := []struct {
		name     string
		location Location
		want     string
	}{
		{"address", Location{Status: LocationAvailable, Latitude: -1.28, Longitude: 36.82, Address: &address}, address},
		{"null address", Location{Status: LocationAvailable, Latitude: -1.28638, Longitude: 36.81722}, "Coordinates: -1.2864, 36.8172"},
		{"empty address", Location{Status: LocationAvailable, Latitude: 51.5, Longitude: -0.12, Address: &empty}, "Coordinates: 51.5000, -0.1200"},
		{"unavailable", UnavailableLocation(PositionPermissionDenied), "Location unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.location.Describe())
		})
	}
}

func TestUnavailableLocation_HasNoCoordinates(t *testing.T) {
	l := UnavailableLocation(PositionTimeout)

	b, err := json.Marshal(l)
	require.NoError(t, err)

	assert.JSONEq(t, `{"status":"unavailable","address":null,"reason":"timeout"}`, string(b))
}

func TestAudienceKind_Text(t *testing.T) {
	member := AudienceMember{Kind: AudienceBystander, Identity: "user-7", DisplayName: "Neighbour"}

	b, err := json.Marshal(member)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"kind":"bystander"`)

	var decoded AudienceMember
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, AudienceBystander, decoded.Kind)
	assert.Equal(t, "bystander:user-7", decoded.Key())

	_, err = json.Marshal(AudienceMember{Kind: AudienceKind(9)})
	assert.Error(t, err)

	assert.Error(t, json.Unmarshal([]byte(`{"kind":"stranger"}`), &decoded))
}

func TestCountByKind(t *testing.T) {
	contacts, bystanders := CountByKind([]AudienceMember{
		{Kind: AudienceEmergencyContact, Identity: "c-1"},
		{Kind: AudienceEmergencyContact, Identity: "c-2"},
		{Kind: AudienceBystander, Identity: "u-1"},
	})

	assert.Equal(t, 2, contacts)
	assert.Equal(t, 1, bystanders)
}

func TestDeliverySummary_Counts(t *testing.T) {
	summary := DeliverySummary{
		Recipients: []RecipientDelivery{
			{Identity: "a", Outcomes: []ChannelOutcome{{Channel: ChannelSMS, Success: false}, {Channel: ChannelEmail, Success: true}}},
			{Identity: "b", Outcomes: []ChannelOutcome{{Channel: ChannelInApp, Success: false, Reason: "timed out after 5s"}}},
			{Identity: "c", Outcomes: []ChannelOutcome{{Channel: ChannelSMS, Success: false, Reason: "no channel addresses"}}},
		},
	}

	assert.Equal(t, 1, summary.Delivered())
	assert.Equal(t, 2, summary.Failed())
	assert.True(t, summary.Recipients[0].Delivered())
}

func TestNewIncidentEvent(t *testing.T) {
	at := time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)
	incident := &Incident{
		ID:               uuid.New(),
		OwnerID:          "user-1",
		IncidentNumber:   "INC-2026-001",
		Severity:         SeverityCritical,
		Status:           StatusActive,
		AudienceSnapshot: []AudienceMember{{Kind: AudienceEmergencyContact, Identity: "c-1"}},
	}

	event := NewIncidentEvent(EventIncidentTriggered, incident, at)
	assert.Equal(t, EventIncidentTriggered, event.Type)
	assert.Equal(t, incident.ID, event.IncidentID)
	assert.Equal(t, 1, event.Recipients)
	assert.Zero(t, event.Delivered)

	incident.DeliverySummary = &DeliverySummary{Recipients: []RecipientDelivery{
		{Identity: "c-1", Outcomes: []ChannelOutcome{{Channel: ChannelSMS, Success: true}}},
	}}
	event = NewIncidentEvent(EventIncidentDispatched, incident, at)
	assert.Equal(t, 1, event.Delivered)
	assert.Equal(t, at, event.Timestamp)
}
