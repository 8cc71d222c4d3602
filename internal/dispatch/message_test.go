package dispatch

import (
	"strings"
	"testing"

	"github.com/shenikar/sos_broadcasting_system/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestNewMessage_WithAddress(t *testing.T) {
	msg := NewMessage(testIncident())

	assert.Equal(t, "[Level 3 - CRITICAL] Emergency alert from Amina", msg.Subject)
	assert.Contains(t, msg.Body, "EMERGENCY - Life in Danger")
	assert.Contains(t, msg.Body, "Time: 2026-10-14 09:30:00 UTC")
	assert.Contains(t, msg.Body, "Location: Moi Avenue, Nairobi, Kenya")
	assert.Contains(t, msg.Body, "Map: https://maps.google.com/?q=-1.286400,36.817200")
	assert.Contains(t, msg.Body, "Note: Near the bus stop")
	assert.Contains(t, msg.Body, "Incident: INC-2026-042")
}

func TestNewMessage_LocationFallbacks(t *testing.T) {
	tests := []struct {
		name     string
		location models.Location
		want     string
		hasMap   bool
	}{
		{
			name: "raw coordinates",
			location: models.Location{
				Status:        models.LocationAvailable,
				Latitude:      -1.28641,
				Longitude:     36.81723,
				GeocodeStatus: models.GeocodeTimedOut,
			},
			want:   "Location: Coordinates: -1.2864, 36.8172",
			hasMap: true,
		},
		{
			name:     "unavailable",
			location: models.UnavailableLocation(models.PositionPermissionDenied),
			want:     "Location: Location unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			incident := testIncident()
			incident.Location = tt.location
			incident.Note = ""

			msg := NewMessage(incident)

			assert.Contains(t, msg.Body, tt.want)
			assert.Equal(t, tt.hasMap, strings.Contains(msg.Body, "Map:"))
			assert.NotContains(t, msg.Body, "Note:")
		})
	}
}

func TestNewMessage_EmptyOwnerName(t *testing.T) {
	incident := testIncident()
	incident.OwnerName = "  "
	incident.Severity = models.SeverityConcern

	msg := NewMessage(incident)

	assert.Equal(t, "[Level 1 - Concern] Emergency alert from Someone you know", msg.Subject)
}
