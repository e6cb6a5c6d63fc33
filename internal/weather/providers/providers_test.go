package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weatherki/internal/weather"
)

func TestOpenWeatherProvider_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Berlin,DE", r.URL.Query().Get("q"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		_, _ = w.Write([]byte(`{
			"dt": 1700000000,
			"name": "Berlin",
			"sys": {"country": "DE"},
			"main": {"temp": 7.5, "humidity": 81},
			"wind": {"speed": 4.1},
			"weather": [{"main": "Drizzle", "description": "light intensity drizzle"}]
		}`))
	}))
	defer srv.Close()

	p := NewOpenWeatherProvider(DefaultHTTPConfig(srv.Client()), "key")
	p.baseURL = srv.URL

	r, err := p.Fetch(context.Background(), weather.Location{City: "Berlin", Country: "DE"})
	require.NoError(t, err)
	assert.Equal(t, 7.5, r.TemperatureC)
	assert.Equal(t, 81.0, r.HumidityPct)
	assert.Equal(t, weather.ConditionRain, r.Condition)
	assert.Equal(t, "light intensity drizzle", r.Description)
	assert.Equal(t, "Berlin", r.CityName)
	assert.Equal(t, "DE", r.Country)
}

func TestOpenWeatherProvider_RequiresKey(t *testing.T) {
	p := NewOpenWeatherProvider(DefaultHTTPConfig(http.DefaultClient), "")
	_, err := p.Fetch(context.Background(), weather.Location{City: "Berlin"})
	assert.Error(t, err)
}

func TestWeatherAPIProvider_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Paris", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`{
			"location": {"name": "Paris", "country": "France", "localtime_epoch": 1700000000},
			"current": {"temp_c": 12, "humidity": 66, "wind_kph": 18, "condition": {"text": "Partly cloudy"}}
		}`))
	}))
	defer srv.Close()

	p := NewWeatherAPIProvider(DefaultHTTPConfig(srv.Client()), "key")
	p.baseURL = srv.URL

	r, err := p.Fetch(context.Background(), weather.Location{City: "Paris"})
	require.NoError(t, err)
	assert.Equal(t, 12.0, r.TemperatureC)
	assert.InDelta(t, 5.0, r.WindSpeedMS, 1e-9)
	assert.Equal(t, weather.ConditionCloudy, r.Condition)
	assert.Equal(t, "France", r.Country)
}

func TestMapWeatherAPICondition(t *testing.T) {
	tests := map[string]weather.Condition{
		"":                         weather.ConditionUnknown,
		"Sunny":                    weather.ConditionClear,
		"Overcast":                 weather.ConditionCloudy,
		"Patchy light rain":        weather.ConditionRain,
		"Moderate snow":            weather.ConditionSnow,
		"Thundery outbreaks":       weather.ConditionStorm,
		"Freezing fog":             weather.ConditionMist,
		"Something entirely novel": weather.ConditionUnknown,
	}
	for text, want := range tests {
		assert.Equal(t, want, mapWeatherAPICondition(text), text)
	}
}

func TestOpenMeteoProvider_GeocodesOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "52.520000", r.URL.Query().Get("latitude"))
		_, _ = w.Write([]byte(`{"current": {"time": "2025-01-01T12:00", "temperature_2m": 3.2,
			"relative_humidity_2m": 90, "wind_speed_10m": 2, "weather_code": 71}}`))
	}))
	defer srv.Close()

	var lookups int32
	geocode := func(loc weather.Location) (float64, float64, error) {
		atomic.AddInt32(&lookups, 1)
		return 52.52, 13.405, nil
	}
	p := NewOpenMeteoProvider(DefaultHTTPConfig(srv.Client()), geocode)
	p.baseURL = srv.URL

	for i := 0; i < 2; i++ {
		r, err := p.Fetch(context.Background(), weather.Location{City: "Berlin"})
		require.NoError(t, err)
		assert.Equal(t, weather.ConditionSnow, r.Condition)
		assert.Equal(t, 3.2, r.TemperatureC)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&lookups))
}

func TestOpenMeteoProvider_GeocodeFailure(t *testing.T) {
	p := NewOpenMeteoProvider(DefaultHTTPConfig(http.DefaultClient), func(weather.Location) (float64, float64, error) {
		return 0, 0, errors.New("ZERO_RESULTS")
	})
	_, err := p.Fetch(context.Background(), weather.Location{City: "Atlantis"})
	assert.ErrorContains(t, err, "ZERO_RESULTS")
}

func TestDoRequestWithResilience_SingleAttempt(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	build := func() (*http.Request, error) { return http.NewRequest(http.MethodGet, srv.URL, nil) }
	_, err := doRequestWithResilience(context.Background(), DefaultHTTPConfig(srv.Client()), newCircuit("test"), build)

	assert.ErrorIs(t, err, errServerError)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestDoRequestWithResilience_RejectsMissingClient(t *testing.T) {
	build := func() (*http.Request, error) { return http.NewRequest(http.MethodGet, "http://example.invalid", nil) }
	_, err := doRequestWithResilience(context.Background(), HTTPClientConfig{}, newCircuit("test"), build)
	assert.ErrorIs(t, err, errNoHTTPClient)
}

func TestDoRequestWithResilience_OpenCircuitFailsFast(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cb := newCircuit("test")
	cfg := DefaultHTTPConfig(srv.Client())
	build := func() (*http.Request, error) { return http.NewRequest(http.MethodGet, srv.URL, nil) }

	for i := 0; i < 6; i++ {
		_, err := doRequestWithResilience(context.Background(), cfg, cb, build)
		require.ErrorIs(t, err, errServerError)
	}
	_, err := doRequestWithResilience(context.Background(), cfg, cb, build)
	assert.ErrorIs(t, err, errCircuitOpen)
	assert.Equal(t, int32(6), atomic.LoadInt32(&hits))
}
