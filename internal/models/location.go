package models

import "fmt"

// LocationStatus - удалось ли получить координаты устройства
type LocationStatus string

const (
	LocationAvailable   LocationStatus = "available"
	LocationUnavailable LocationStatus = "unavailable"
)

// GeocodeStatus - результат попытки обратного геокодирования
type GeocodeStatus string

const (
	GeocodeOK       GeocodeStatus = "ok"
	GeocodeTimedOut GeocodeStatus = "timed_out"
	GeocodeFailed   GeocodeStatus = "failed"
	GeocodeSkipped  GeocodeStatus = "skipped"
)

// PositionErrorCode - код ошибки, которую вернул провайдер геолокации устройства
type PositionErrorCode string

const (
	PositionPermissionDenied   PositionErrorCode = "permission_denied"
	PositionUnavailable        PositionErrorCode = "position_unavailable"
	PositionTimeout            PositionErrorCode = "timeout"
	PositionUnsupported        PositionErrorCode = "unsupported"
	PositionMissing            PositionErrorCode = "missing"
	PositionInvalidCoordinates PositionErrorCode = "invalid_coordinates"
)

// Coordinates - координаты, полученные с устройства
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
}

// PositionReport - ответ провайдера геолокации: либо координаты, либо код ошибки
type PositionReport struct {
	Coordinates *Coordinates      `json:"coordinates,omitempty"`
	ErrorCode   PositionErrorCode `json:"error_code,omitempty"`
}

// Location - местоположение инцидента. Для статуса unavailable координаты не заполняются.
type Location struct {
	Status        LocationStatus    `json:"status"`
	Latitude      float64           `json:"latitude,omitempty"`
	Longitude     float64           `json:"longitude,omitempty"`
	Accuracy      float64           `json:"accuracy,omitempty"`
	Address       *string           `json:"address"`
	GeocodeStatus GeocodeStatus     `json:"geocode_status,omitempty"`
	Reason        PositionErrorCode `json:"reason,omitempty"`
}

// UnavailableLocation возвращает сентинел "местоположение недоступно"
func UnavailableLocation(reason PositionErrorCode) Location {
	return Location{
		Status: LocationUnavailable,
		Reason: reason,
	}
}

func (l Location) Available() bool {
	return l.Status == LocationAvailable
}

// Describe возвращает адрес, сырые координаты или явную метку недоступности
func (l Location) Describe() string {
	if !l.Available() {
		return "Location unavailable"
	}
	if l.Address != nil && *l.Address != "" {
		return *l.Address
	}
	return fmt.Sprintf("Coordinates: %.4f, %.4f", l.Latitude, l.Longitude)
}
