package weather

import (
	"strings"
	"time"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
	ConditionMist    Condition = "mist"
)

// Icon returns the display token for the condition.
func (c Condition) Icon() string {
	switch c {
	case ConditionClear:
		return "☀️"
	case ConditionCloudy:
		return "☁️"
	case ConditionRain:
		return "🌧️"
	case ConditionSnow:
		return "❄️"
	case ConditionStorm:
		return "⛈️"
	case ConditionMist:
		return "🌫️"
	default:
		return "🌡️"
	}
}

// Location is a place resolved from free-text widget input.
// Lat/Lon are only known once geocoded.
type Location struct {
	City    string   `json:"city"`
	Country string   `json:"country"`
	Lat     *float64 `json:"lat,omitempty"`
	Lon     *float64 `json:"lon,omitempty"`
}

// ParseLocation splits "City, Country" input. Without a comma the whole
// input is the city.
func ParseLocation(s string) Location {
	s = strings.TrimSpace(s)
	i := strings.LastIndex(s, ",")
	if i < 0 {
		return Location{City: s}
	}
	return Location{
		City:    strings.TrimSpace(s[:i]),
		Country: strings.TrimSpace(s[i+1:]),
	}
}

// Key returns a canonical string key for logging and indexing.
func (l Location) Key() string {
	if l.Country == "" {
		return l.City
	}
	return l.City + ":" + l.Country
}

// Query returns the "city,country" form most providers accept.
func (l Location) Query() string {
	if l.Country == "" {
		return l.City
	}
	return l.City + "," + l.Country
}

// ProviderReading is a single provider's normalized reading.
type ProviderReading struct {
	ProviderName string
	Timestamp    time.Time

	TemperatureC float64
	HumidityPct  float64
	WindSpeedMS  float64
	Condition    Condition
	Description  string

	// Resolved place as reported by the provider, empty when unknown.
	CityName string
	Country  string
}
