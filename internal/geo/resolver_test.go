package geo

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shenikar/sos_broadcasting_system/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// geocoderFunc позволяет подставить функцию вместо реального провайдера
type geocoderFunc func(ctx context.Context, lat, lng float64) (string, error)

func (f geocoderFunc) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	return f(ctx, lat, lng)
}

func newTestResolver(g Geocoder) *Resolver {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах
	return NewResolver(g, logger)
}

func coords(lat, lng float64) models.PositionReport {
	return models.PositionReport{Coordinates: &models.Coordinates{Latitude: lat, Longitude: lng, Accuracy: 12}}
}

func TestResolve_WithAddress(t *testing.T) {
	resolver := newTestResolver(geocoderFunc(func(ctx context.Context, lat, lng float64) (string, error) {
		return "Kenyatta Avenue, Nairobi, Kenya", nil
	}))

	loc := resolver.Resolve(context.Background(), coords(-1.2864, 36.8172), time.Second)

	assert.Equal(t, models.LocationAvailable, loc.Status)
	assert.Equal(t, models.GeocodeOK, loc.GeocodeStatus)
	require.NotNil(t, loc.Address)
	assert.Equal(t, "Kenyatta Avenue, Nairobi, Kenya", *loc.Address)
	assert.Equal(t, -1.2864, loc.Latitude)
	assert.Equal(t, 36.8172, loc.Longitude)
	assert.Equal(t, 12.0, loc.Accuracy)
}

func TestResolve_GeocodeTimeoutKeepsCoordinates(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	// Провайдер игнорирует контекст и висит дольше бюджета
	resolver := newTestResolver(geocoderFunc(func(ctx context.Context, lat, lng float64) (string, error) {
		<-release
		return "too late", nil
	}))

	timeout := 50 * time.Millisecond
	start := time.Now()
	loc := resolver.Resolve(context.Background(), coords(10, 20), timeout)
	elapsed := time.Since(start)

	assert.Equal(t, models.LocationAvailable, loc.Status)
	assert.Equal(t, models.GeocodeTimedOut, loc.GeocodeStatus)
	assert.Nil(t, loc.Address)
	assert.Equal(t, 10.0, loc.Latitude)
	assert.Equal(t, 20.0, loc.Longitude)
	assert.Less(t, elapsed, timeout+200*time.Millisecond)
}

func TestResolve_GeocodeErrorKeepsCoordinates(t *testing.T) {
	resolver := newTestResolver(geocoderFunc(func(ctx context.Context, lat, lng float64) (string, error) {
		return "", errors.New("service unavailable")
	}))

	loc := resolver.Resolve(context.Background(), coords(10, 20), time.Second)

	assert.Equal(t, models.LocationAvailable, loc.Status)
	assert.Equal(t, models.GeocodeFailed, loc.GeocodeStatus)
	assert.Nil(t, loc.Address)
	assert.Equal(t, "Coordinates: 10.0000, 20.0000", loc.Describe())
}

func TestResolve_PermissionDenied(t *testing.T) {
	called := false
	resolver := newTestResolver(geocoderFunc(func(ctx context.Context, lat, lng float64) (string, error) {
		called = true
		return "", nil
	}))

	loc := resolver.Resolve(context.Background(), models.PositionReport{ErrorCode: models.PositionPermissionDenied}, time.Second)

	assert.False(t, called)
	assert.Equal(t, models.LocationUnavailable, loc.Status)
	assert.Equal(t, models.PositionPermissionDenied, loc.Reason)
	assert.Equal(t, "Location unavailable", loc.Describe())
}

func TestResolve_DegradedReports(t *testing.T) {
	resolver := newTestResolver(nil)

	tests := []struct {
		name   string
		report models.PositionReport
		reason models.PositionErrorCode
	}{
		{"missing", models.PositionReport{}, models.PositionMissing},
		{"unknown code", models.PositionReport{ErrorCode: "gps_on_fire"}, models.PositionUnavailable},
		{"out of range", coords(120, 20), models.PositionInvalidCoordinates},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc := resolver.Resolve(context.Background(), tt.report, time.Second)
			assert.Equal(t, models.LocationUnavailable, loc.Status)
			assert.Equal(t, tt.reason, loc.Reason)
		})
	}
}

func TestResolve_NoGeocoderSkipsLookup(t *testing.T) {
	resolver := newTestResolver(nil)

	loc := resolver.Resolve(context.Background(), coords(1, 2), time.Second)

	assert.Equal(t, models.LocationAvailable, loc.Status)
	assert.Equal(t, models.GeocodeSkipped, loc.GeocodeStatus)
	assert.Nil(t, loc.Address)
}
