package geo

import (
	"context"
	"errors"
	"time"

	"github.com/shenikar/sos_broadcasting_system/internal/models"
	"github.com/sirupsen/logrus"
)

// Resolver превращает ответ геолокации устройства в местоположение инцидента.
// Resolve никогда не возвращает ошибку: любые сбои деградируют до unavailable или address=null.
type Resolver struct {
	geocoder Geocoder
	logger   *logrus.Logger
}

// NewResolver создает Resolver. geocoder может быть nil, тогда адрес не запрашивается.
func NewResolver(geocoder Geocoder, logger *logrus.Logger) *Resolver {
	return &Resolver{
		geocoder: geocoder,
		logger:   logger,
	}
}

// Resolve возвращает местоположение не позже чем через timeout (плюс небольшие накладные расходы)
func (r *Resolver) Resolve(ctx context.Context, report models.PositionReport, timeout time.Duration) models.Location {
	log := r.logger.WithFields(logrus.Fields{
		"service": "geo",
		"method":  "Resolve",
	})

	if report.ErrorCode != "" {
		code := normalizeErrorCode(report.ErrorCode)
		log.WithField("reason", code).Warn("Device reported no position, using unavailable location")
		return models.UnavailableLocation(code)
	}
	if report.Coordinates == nil {
		log.Warn("Device sent neither coordinates nor an error code")
		return models.UnavailableLocation(models.PositionMissing)
	}

	c := *report.Coordinates
	if !validCoordinates(c) {
		log.WithFields(logrus.Fields{"lat": c.Latitude, "lng": c.Longitude}).Warn("Device coordinates out of range")
		return models.UnavailableLocation(models.PositionInvalidCoordinates)
	}

	location := models.Location{
		Status:    models.LocationAvailable,
		Latitude:  c.Latitude,
		Longitude: c.Longitude,
		Accuracy:  c.Accuracy,
	}

	result := r.reverseGeocode(ctx, c.Latitude, c.Longitude, timeout)
	location.GeocodeStatus = result.Status
	if result.Status == models.GeocodeOK {
		address := result.Address
		location.Address = &address
	} else if result.Err != nil {
		log.WithError(result.Err).WithField("geocode_status", result.Status).Warn("Reverse geocoding degraded to raw coordinates")
	}
	return location
}

func (r *Resolver) reverseGeocode(ctx context.Context, lat, lng float64, timeout time.Duration) GeocodeResult {
	if r.geocoder == nil {
		return GeocodeResult{Status: models.GeocodeSkipped}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type answer struct {
		address string
		err     error
	}
	// Буфер 1: горутина не зависнет, если мы уже ушли по таймауту
	answers := make(chan answer, 1)
	go func() {
		address, err := r.geocoder.ReverseGeocode(ctx, lat, lng)
		answers <- answer{address: address, err: err}
	}()

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return GeocodeResult{Status: models.GeocodeTimedOut, Err: ctx.Err()}
		}
		return GeocodeResult{Status: models.GeocodeFailed, Err: ctx.Err()}
	case a := <-answers:
		switch {
		case errors.Is(a.err, context.DeadlineExceeded):
			return GeocodeResult{Status: models.GeocodeTimedOut, Err: a.err}
		case a.err != nil:
			return GeocodeResult{Status: models.GeocodeFailed, Err: a.err}
		case a.address == "":
			return GeocodeResult{Status: models.GeocodeFailed, Err: ErrNoAddress}
		}
		return GeocodeResult{Status: models.GeocodeOK, Address: a.address}
	}
}

func validCoordinates(c models.Coordinates) bool {
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

func normalizeErrorCode(code models.PositionErrorCode) models.PositionErrorCode {
	switch code {
	case models.PositionPermissionDenied, models.PositionUnavailable, models.PositionTimeout, models.PositionUnsupported:
		return code
	}
	return models.PositionUnavailable
}
