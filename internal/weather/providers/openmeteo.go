package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/kelvins/geocoder"
	"github.com/sony/gobreaker"

	"github.com/i474232898/weatherki/internal/weather"
)

// GeocodeFunc resolves a location to latitude and longitude.
type GeocodeFunc func(loc weather.Location) (lat, lon float64, err error)

var geocoderKeyMu sync.Mutex

// GoogleGeocoder returns a GeocodeFunc backed by the Google Geocoding API.
func GoogleGeocoder(apiKey string) GeocodeFunc {
	return func(loc weather.Location) (float64, float64, error) {
		if apiKey == "" {
			return 0, 0, fmt.Errorf("geocoder api key is not configured")
		}
		// The geocoder package keeps its key in a package variable.
		geocoderKeyMu.Lock()
		defer geocoderKeyMu.Unlock()
		geocoder.ApiKey = apiKey

		res, err := geocoder.Geocoding(geocoder.Address{City: loc.City, Country: loc.Country})
		if err != nil {
			return 0, 0, err
		}
		return res.Latitude, res.Longitude, nil
	}
}

// OpenMeteoProvider implements the weather.Provider interface for Open-Meteo.
// Locations without coordinates are geocoded first; results are cached.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	geocode GeocodeFunc

	mu     sync.Mutex
	coords map[string][2]float64
}

func NewOpenMeteoProvider(cfg HTTPClientConfig, geocode GeocodeFunc) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: "https://api.open-meteo.com/v1/forecast",
		httpCfg: cfg,
		circuit: newCircuit("openmeteo"),
		geocode: geocode,
		coords:  make(map[string][2]float64),
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) Fetch(ctx context.Context, loc weather.Location) (weather.ProviderReading, error) {
	lat, lon, err := p.resolve(loc)
	if err != nil {
		return weather.ProviderReading{}, fmt.Errorf("openmeteo requires latitude and longitude: %w", err)
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", fmt.Sprintf("%f", lat))
		values.Set("longitude", fmt.Sprintf("%f", lon))
		values.Set("current", "temperature_2m,relative_humidity_2m,wind_speed_10m,weather_code")
		values.Set("wind_speed_unit", "ms")

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.ProviderReading{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		Current struct {
			Time        string  `json:"time"`
			Temperature float64 `json:"temperature_2m"`
			Humidity    float64 `json:"relative_humidity_2m"`
			WindSpeed   float64 `json:"wind_speed_10m"`
			WeatherCode int     `json:"weather_code"`
		} `json:"current"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.ProviderReading{}, err
	}

	// Open-Meteo reports local ISO8601 without zone.
	ts, err := time.Parse("2006-01-02T15:04", payload.Current.Time)
	if err != nil {
		ts = time.Now().UTC()
	}

	cond, desc := mapOpenMeteoCondition(payload.Current.WeatherCode)

	return weather.ProviderReading{
		ProviderName: p.name,
		Timestamp:    ts,
		TemperatureC: payload.Current.Temperature,
		HumidityPct:  payload.Current.Humidity,
		WindSpeedMS:  payload.Current.WindSpeed,
		Condition:    cond,
		Description:  desc,
	}, nil
}

func (p *OpenMeteoProvider) resolve(loc weather.Location) (float64, float64, error) {
	if loc.Lat != nil && loc.Lon != nil {
		return *loc.Lat, *loc.Lon, nil
	}
	if p.geocode == nil {
		return 0, 0, fmt.Errorf("no geocoder configured")
	}

	key := loc.Key()
	p.mu.Lock()
	c, ok := p.coords[key]
	p.mu.Unlock()
	if ok {
		return c[0], c[1], nil
	}

	lat, lon, err := p.geocode(loc)
	if err != nil {
		return 0, 0, err
	}
	p.mu.Lock()
	p.coords[key] = [2]float64{lat, lon}
	p.mu.Unlock()
	return lat, lon, nil
}

func mapOpenMeteoCondition(code int) (weather.Condition, string) {
	// Mapping based on Open-Meteo WMO weather codes (simplified).
	switch {
	case code == 0:
		return weather.ConditionClear, "clear sky"
	case code >= 1 && code <= 3:
		return weather.ConditionCloudy, "partly cloudy"
	case code == 45 || code == 48:
		return weather.ConditionMist, "fog"
	case (code >= 51 && code <= 67) || (code >= 80 && code <= 82):
		return weather.ConditionRain, "rain"
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return weather.ConditionSnow, "snow"
	case code >= 95:
		return weather.ConditionStorm, "thunderstorm"
	default:
		return weather.ConditionUnknown, ""
	}
}
