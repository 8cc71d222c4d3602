package geo

import (
	"context"
	"errors"

	"github.com/shenikar/sos_broadcasting_system/internal/models"
)

// ErrNoAddress - провайдер ответил, но адреса для координат нет
var ErrNoAddress = errors.New("no address found for coordinates")

// Geocoder - внешний сервис обратного геокодирования. Считается ненадежным и необязательным.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) (string, error)
}

// GeocodeResult - типизированный результат попытки геокодирования вместо проглатывания ошибок
type GeocodeResult struct {
	Status  models.GeocodeStatus
	Address string
	Err     error
}
