package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	geocoding "github.com/codingsince1985/geo-golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNominatim_ComposesAddress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)
		lat, err := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
		require.NoError(t, err)
		lon, err := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
		require.NoError(t, err)
		assert.InDelta(t, -1.2864, lat, 1e-6)
		assert.InDelta(t, 36.8172, lon, 1e-6)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"display_name": "long display name",
			"address": {"road": "Moi Avenue", "suburb": "CBD", "city": "Nairobi", "state_district": "Starehe", "country": "Kenya"}
		}`))
	}))
	defer srv.Close()

	g := NewNominatimGeocoder(srv.URL)
	address, err := g.ReverseGeocode(context.Background(), -1.2864, 36.8172)

	require.NoError(t, err)
	assert.Equal(t, "Moi Avenue, CBD, Nairobi, Starehe, Kenya", address)
}

func TestNominatim_FallsBackToDisplayName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"display_name": "Somewhere at sea", "address": {}}`))
	}))
	defer srv.Close()

	address, err := NewNominatimGeocoder(srv.URL+"/").ReverseGeocode(context.Background(), 0, 0)

	require.NoError(t, err)
	assert.Equal(t, "Somewhere at sea", address)
}

func TestNominatim_ErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error": "Unable to geocode"}`))
	}))
	defer srv.Close()

	address, err := NewNominatimGeocoder(srv.URL).ReverseGeocode(context.Background(), 0, 0)

	require.Error(t, err)
	assert.Empty(t, address)
}

func TestNominatim_AbandonsOnDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := NewNominatimGeocoder(srv.URL).ReverseGeocode(ctx, 0, 0)

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestComposeAddress(t *testing.T) {
	tests := []struct {
		name    string
		address geocoding.Address
		want    string
	}{
		{"county wins over district", geocoding.Address{Street: "Kimathi Street", City: "Nairobi", County: "Nairobi County", StateDistrict: "Starehe", Country: "Kenya"}, "Kimathi Street, Nairobi, Nairobi County, Kenya"},
		{"district when no county", geocoding.Address{City: "Mombasa", StateDistrict: "Mvita", Country: "Kenya"}, "Mombasa, Mvita, Kenya"},
		{"blank parts skipped", geocoding.Address{Street: "  ", Country: "Kenya"}, "Kenya"},
		{"nothing", geocoding.Address{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, composeAddress(&tt.address))
		})
	}
}
