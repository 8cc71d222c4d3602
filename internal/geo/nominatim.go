package geo

import (
	"context"
	"fmt"
	"strings"

	geocoding "github.com/codingsince1985/geo-golang"
	"github.com/codingsince1985/geo-golang/openstreetmap"
)

const defaultNominatimURL = "https://nominatim.openstreetmap.org/"

// NominatimGeocoder - обратное геокодирование через OpenStreetMap Nominatim
type NominatimGeocoder struct {
	client geocoding.Geocoder
}

type reverseResult struct {
	address *geocoding.Address
	err     error
}

// NewNominatimGeocoder создает клиент Nominatim; пустой baseURL означает публичный сервер
func NewNominatimGeocoder(baseURL string) *NominatimGeocoder {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultNominatimURL
	}
	// Клиент дописывает "reverse?..." прямо к базовому адресу
	baseURL = strings.TrimRight(baseURL, "/") + "/"
	return &NominatimGeocoder{client: openstreetmap.GeocoderWithURL(baseURL)}
}

// ReverseGeocode возвращает человекочитаемый адрес для координат.
// Клиент не принимает context, поэтому ответ ждем не дольше дедлайна вызывающего.
func (g *NominatimGeocoder) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	done := make(chan reverseResult, 1)
	go func() {
		address, err := g.client.ReverseGeocode(lat, lng)
		done <- reverseResult{address: address, err: err}
	}()

	var res reverseResult
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("nominatim request abandoned: %w", ctx.Err())
	case res = <-done:
	}

	if res.err != nil {
		return "", fmt.Errorf("nominatim request failed: %w", res.err)
	}
	if res.address == nil {
		return "", ErrNoAddress
	}

	if address := composeAddress(res.address); address != "" {
		return address, nil
	}
	if name := strings.TrimSpace(res.address.FormattedAddress); name != "" {
		return name, nil
	}
	return "", ErrNoAddress
}

// composeAddress собирает адрес из частей в порядке улица, район, город, округ, страна.
// В каждой группе берется первое непустое поле.
func composeAddress(a *geocoding.Address) string {
	groups := [][]string{
		{a.Street},
		{a.Suburb},
		{a.City},
		{a.County, a.StateDistrict},
		{a.Country},
	}

	parts := make([]string, 0, len(groups))
	for _, group := range groups {
		for _, v := range group {
			if v = strings.TrimSpace(v); v != "" {
				parts = append(parts, v)
				break
			}
		}
	}
	return strings.Join(parts, ", ")
}
